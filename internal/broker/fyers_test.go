package broker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdeshpande/condortrack/internal/mock"
)

func testConfig() ClientConfig {
	return ClientConfig{
		ClientID:     "ABCD1234-100",
		SecretKey:    "topsecret",
		RedirectURI:  "http://127.0.0.1:5000/",
		ResponseType: "code",
		GrantType:    "authorization_code",
	}
}

func TestBuildAuthURL(t *testing.T) {
	api := NewFyersAPI(testConfig())

	got := api.BuildAuthURL("")

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "/api/v3/generate-authcode", u.Path)
	q := u.Query()
	assert.Equal(t, "ABCD1234-100", q.Get("client_id"))
	assert.Equal(t, "http://127.0.0.1:5000/", q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Empty(t, q.Get("state"))

	// Deterministic construction, no side effects.
	assert.Equal(t, got, api.BuildAuthURL(""))

	withState := api.BuildAuthURL("xyz")
	su, err := url.Parse(withState)
	require.NoError(t, err)
	assert.Equal(t, "xyz", su.Query().Get("state"))
}

func TestExchangeCodeForToken(t *testing.T) {
	cfg := testConfig()
	wantHash := sha256.Sum256([]byte(cfg.ClientID + ":" + cfg.SecretKey))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/validate-authcode", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "authorization_code", body["grant_type"])
		assert.Equal(t, hex.EncodeToString(wantHash[:]), body["appIdHash"])
		assert.Equal(t, "the-code", body["code"])

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"s": "ok", "code": 200, "access_token": "tok-123",
		})
	}))
	defer srv.Close()

	api := NewFyersAPIWithBaseURL(cfg, srv.URL, "")

	token, err := api.ExchangeCodeForToken(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)
}

func TestExchangeCodeForTokenMissingToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"s": "error", "code": -413, "message": "invalid auth code",
		})
	}))
	defer srv.Close()

	api := NewFyersAPIWithBaseURL(testConfig(), srv.URL, "")

	_, err := api.ExchangeCodeForToken(context.Background(), "bad-code")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAuthExchange))
	assert.Contains(t, err.Error(), "invalid auth code")
}

func TestExchangeCodeForTokenServerRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"s":"error"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	api := NewFyersAPIWithBaseURL(testConfig(), srv.URL, "")

	_, err := api.ExchangeCodeForToken(context.Background(), "bad-code")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAuthExchange))
}

func TestGetQuotes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/quotes", r.URL.Path)
		assert.Equal(t, "ABCD1234-100:tok-123", r.Header.Get("Authorization"))
		assert.Equal(t, "NSE:NIFTY25N1125700CE,NSE:NIFTY25N1125750CE", r.URL.Query().Get("symbols"))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"s": "ok",
			"d": []map[string]interface{}{
				{"n": "NSE:NIFTY25N1125700CE", "s": "ok", "v": map[string]float64{"lp": 52.3}},
				{"n": "NSE:NIFTY25N1125750CE", "s": "ok", "v": map[string]float64{"ltp": 38.1}},
			},
		})
	}))
	defer srv.Close()

	api := NewFyersAPIWithBaseURL(testConfig(), "", srv.URL)

	ltps, err := api.GetQuotes(context.Background(), "tok-123",
		[]string{"NSE:NIFTY25N1125700CE", "NSE:NIFTY25N1125750CE"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{
		"NSE:NIFTY25N1125700CE": 52.3,
		"NSE:NIFTY25N1125750CE": 38.1, // legacy ltp field honored
	}, ltps)
}

func TestGetQuotesNonOKEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"s": "error", "d": []interface{}{}})
	}))
	defer srv.Close()

	api := NewFyersAPIWithBaseURL(testConfig(), "", srv.URL)

	ltps, err := api.GetQuotes(context.Background(), "tok", []string{"NSE:NIFTY25N1125700CE"})
	require.NoError(t, err)
	assert.Empty(t, ltps)
}

func TestGetQuotesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	api := NewFyersAPIWithBaseURL(testConfig(), "", srv.URL)

	_, err := api.GetQuotes(context.Background(), "tok", []string{"NSE:NIFTY25N1125700CE"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
}

// failingQuoter always errors; used to trip the breaker.
type failingQuoter struct{ calls int }

func (f *failingQuoter) GetQuotes(context.Context, string, []string) (map[string]float64, error) {
	f.calls++
	return nil, errors.New("upstream down")
}

func TestCircuitBreakerTripsOnSustainedFailure(t *testing.T) {
	logger := logrus.New()
	fq := &failingQuoter{}
	cb := NewCircuitBreakerQuoterWithSettings(fq, logger, CircuitBreakerSettings{
		MaxRequests:  1,
		Interval:     0,
		Timeout:      time.Minute,
		MinRequests:  3,
		FailureRatio: 0.6,
	})

	for i := 0; i < 3; i++ {
		_, err := cb.GetQuotes(context.Background(), "tok", []string{"X"})
		require.Error(t, err)
	}

	// Breaker is now open: the underlying quoter must not be called again.
	before := fq.calls
	_, err := cb.GetQuotes(context.Background(), "tok", []string{"X"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, before, fq.calls)
}

func TestCircuitBreakerPassesThrough(t *testing.T) {
	logger := logrus.New()
	ok := mock.QuoterFunc(func(ctx context.Context, token string, symbols []string) (map[string]float64, error) {
		return map[string]float64{"X": 1.5}, nil
	})
	cb := NewCircuitBreakerQuoter(ok, logger)

	ltps, err := cb.GetQuotes(context.Background(), "tok", []string{"X"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"X": 1.5}, ltps)
}
