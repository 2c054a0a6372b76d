// Package broker provides the Fyers REST API client used to authenticate a
// trading session and poll batched option quotes.
package broker

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultAPIBaseURL  = "https://api-t1.fyers.in/api/v3"
	defaultDataBaseURL = "https://api-t1.fyers.in/data"

	// statusOK is the success marker in Fyers response envelopes.
	statusOK = "ok"
)

// ErrAuthExchange is returned when the code-for-token exchange fails,
// whether the server rejected the code or the response carried no
// access_token. Both collapse into a single authentication-failure signal
// and are never retried.
var ErrAuthExchange = errors.New("auth code exchange failed")

// APIError represents an API error with status code and response body.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Status, e.Body)
}

// ClientConfig carries the static credential values supplied externally:
// client id, secret, redirect URI and the OAuth response/grant types.
type ClientConfig struct {
	ClientID     string
	SecretKey    string
	RedirectURI  string
	ResponseType string
	GrantType    string
}

// FyersAPI is the HTTP client for the Fyers v3 REST API.
type FyersAPI struct {
	client      *http.Client
	cfg         ClientConfig
	apiBaseURL  string
	dataBaseURL string
	timeout     time.Duration
}

// NewFyersAPI creates a Fyers client with default endpoints and timeout.
func NewFyersAPI(cfg ClientConfig) *FyersAPI {
	return NewFyersAPIWithBaseURL(cfg, "", "")
}

// NewFyersAPIWithBaseURL creates a Fyers client with optional endpoint
// overrides (tests, mock upstreams). Empty strings keep the defaults.
func NewFyersAPIWithBaseURL(cfg ClientConfig, apiBaseURL, dataBaseURL string) *FyersAPI {
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
	}
	if dataBaseURL == "" {
		dataBaseURL = defaultDataBaseURL
	}

	const defaultTimeout = 10 * time.Second
	return &FyersAPI{
		client:      &http.Client{Timeout: defaultTimeout},
		cfg:         cfg,
		apiBaseURL:  strings.TrimRight(apiBaseURL, "/"),
		dataBaseURL: strings.TrimRight(dataBaseURL, "/"),
		timeout:     defaultTimeout,
	}
}

// WithHTTPClient allows overriding the HTTP client (tests, custom transport).
func (f *FyersAPI) WithHTTPClient(c *http.Client) *FyersAPI {
	if c != nil {
		f.client = c
	}
	return f
}

// WithTimeout sets the HTTP client timeout duration.
func (f *FyersAPI) WithTimeout(timeout time.Duration) *FyersAPI {
	f.timeout = timeout
	if f.client != nil {
		f.client.Timeout = timeout
	}
	return f
}

// ============ Auth ============

// BuildAuthURL constructs the hosted-login URL from the client config.
// Deterministic, no side effects; the optional state is echoed back on the
// redirect for correlation.
func (f *FyersAPI) BuildAuthURL(state string) string {
	params := url.Values{}
	params.Set("client_id", f.cfg.ClientID)
	params.Set("redirect_uri", f.cfg.RedirectURI)
	params.Set("response_type", f.cfg.ResponseType)
	if state != "" {
		params.Set("state", state)
	}
	return f.apiBaseURL + "/generate-authcode?" + params.Encode()
}

// appIDHash is the SHA-256 of "clientID:secret" the token endpoint expects
// in place of the raw secret.
func (f *FyersAPI) appIDHash() string {
	sum := sha256.Sum256([]byte(f.cfg.ClientID + ":" + f.cfg.SecretKey))
	return hex.EncodeToString(sum[:])
}

type tokenResponse struct {
	S           string `json:"s"`
	Code        int    `json:"code"`
	Message     string `json:"message"`
	AccessToken string `json:"access_token"`
}

// ExchangeCodeForToken trades the redirect auth code for an access token in
// a single call. Server rejection and a well-formed response missing
// access_token both surface as ErrAuthExchange.
func (f *FyersAPI) ExchangeCodeForToken(ctx context.Context, code string) (string, error) {
	payload := map[string]string{
		"grant_type": f.cfg.GrantType,
		"appIdHash":  f.appIDHash(),
		"code":       code,
	}

	var resp tokenResponse
	if err := f.postJSON(ctx, f.apiBaseURL+"/validate-authcode", payload, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthExchange, err)
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("%w: response missing access_token (s=%q code=%d message=%q)",
			ErrAuthExchange, resp.S, resp.Code, resp.Message)
	}
	return resp.AccessToken, nil
}

// ============ Quotes ============

// quotesResponse mirrors the batched quote envelope: per-symbol last traded
// price sits under d[].v.lp, with v.ltp as the legacy field name.
type quotesResponse struct {
	S string `json:"s"`
	D []struct {
		N string `json:"n"`
		S string `json:"s"`
		V struct {
			LP  float64 `json:"lp"`
			LTP float64 `json:"ltp"`
		} `json:"v"`
	} `json:"d"`
}

// GetQuotes fetches the last traded price for each symbol in one batched
// request. Symbols the upstream omits are absent from the result map; a
// non-ok envelope yields an empty map without error, matching the upstream
// contract where "no data" is indistinguishable from "market closed".
func (f *FyersAPI) GetQuotes(ctx context.Context, token string, symbols []string) (map[string]float64, error) {
	params := url.Values{}
	params.Set("symbols", strings.Join(symbols, ","))
	endpoint := f.dataBaseURL + "/quotes?" + params.Encode()

	var resp quotesResponse
	if err := f.getJSON(ctx, endpoint, token, &resp); err != nil {
		return nil, err
	}

	ltps := make(map[string]float64, len(resp.D))
	if resp.S != statusOK {
		return ltps, nil
	}
	for _, quote := range resp.D {
		if quote.N == "" {
			continue
		}
		ltp := quote.V.LP
		if ltp == 0 {
			ltp = quote.V.LTP
		}
		ltps[quote.N] = ltp
	}
	return ltps, nil
}

// ============ HTTP plumbing ============

// authHeader is the Fyers data-API credential format: "clientID:token".
func (f *FyersAPI) authHeader(token string) string {
	return f.cfg.ClientID + ":" + token
}

func (f *FyersAPI) getJSON(ctx context.Context, endpoint, token string, response interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	req.Header.Add("Authorization", f.authHeader(token))
	return f.do(req, response)
}

func (f *FyersAPI) postJSON(ctx context.Context, endpoint string, payload interface{}, response interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	return f.do(req, response)
}

func (f *FyersAPI) do(req *http.Request, response interface{}) error {
	req.Header.Add("Accept", "application/json")
	req.Header.Add("User-Agent", "condortrack/1.0 (+fyers)")

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, rerr := io.ReadAll(io.LimitReader(resp.Body, 64<<10)) // 64KB cap to avoid huge payloads
		if rerr != nil {
			return &APIError{Status: resp.StatusCode, Body: fmt.Sprintf("%s %s -> failed to read error body", req.Method, req.URL.Path)}
		}
		return &APIError{Status: resp.StatusCode, Body: fmt.Sprintf("%s %s -> %s", req.Method, req.URL.Path, string(body))}
	}

	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(response); err != nil && err != io.EOF {
		return err
	}
	return nil
}
