// Package auth implements the redirect-based login handshake: a local
// callback listener receives the authorization code the brokerage redirects
// back after login, and the bridge exchanges it for an access token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/browser"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrAuthTimeout is returned when no code arrives within the wait window.
// The attempt is terminal; the user restarts authentication manually.
var ErrAuthTimeout = errors.New("authentication timed out waiting for redirect")

// DefaultWait is the fixed window the bridge waits for the brokerage
// redirect before giving up.
const DefaultWait = 120 * time.Second

// TokenExchanger is the slice of the broker client the bridge needs.
type TokenExchanger interface {
	BuildAuthURL(state string) string
	ExchangeCodeForToken(ctx context.Context, code string) (string, error)
}

// Bridge hosts the local callback listener and drives the login handshake.
// The listener starts at most once per process; the received code is handed
// to the waiting flow over a one-shot channel rather than shared state.
type Bridge struct {
	exchanger TokenExchanger
	logger    *logrus.Logger
	port      int
	wait      time.Duration
	openURL   func(string) error

	startOnce sync.Once
	code      chan string
	srv       *http.Server
	group     errgroup.Group
}

// NewBridge creates a bridge listening on the given local port.
func NewBridge(exchanger TokenExchanger, port int, logger *logrus.Logger) *Bridge {
	return &Bridge{
		exchanger: exchanger,
		logger:    logger,
		port:      port,
		wait:      DefaultWait,
		openURL:   browser.OpenURL,
		code:      make(chan string, 1),
	}
}

// WithWait overrides the redirect wait window.
func (b *Bridge) WithWait(d time.Duration) *Bridge {
	if d > 0 {
		b.wait = d
	}
	return b
}

// WithOpener overrides the browser launcher (tests).
func (b *Bridge) WithOpener(open func(string) error) *Bridge {
	b.openURL = open
	return b
}

// handleCallback receives the authorization code after login. Exactly one
// code is expected per session; later deliveries are dropped.
func (b *Bridge) handleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("auth_code")
	if code == "" {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintln(w, "No auth code received.")
		return
	}
	select {
	case b.code <- code:
	default:
	}
	fmt.Fprintln(w, "Authorization successful. You can close this tab and return to the tracker.")
}

// start launches the callback listener, idempotently, once per process.
func (b *Bridge) start() {
	b.startOnce.Do(func() {
		r := chi.NewRouter()
		r.Use(middleware.Recoverer)
		r.Get("/", b.handleCallback)

		b.srv = &http.Server{
			Addr:              fmt.Sprintf(":%d", b.port),
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		}
		b.group.Go(func() error {
			if err := b.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("auth callback listener: %w", err)
			}
			return nil
		})
	})
}

// AwaitRedirectCode blocks until the listener receives a code, the wait
// window elapses, or ctx is canceled.
func (b *Bridge) AwaitRedirectCode(ctx context.Context) (string, error) {
	b.start()

	timer := time.NewTimer(b.wait)
	defer timer.Stop()

	select {
	case code := <-b.code:
		return code, nil
	case <-timer.C:
		return "", ErrAuthTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Authenticate runs the full handshake: open the hosted login page, wait
// for the redirect code, exchange it for an access token.
func (b *Bridge) Authenticate(ctx context.Context) (string, error) {
	b.start()

	authURL := b.exchanger.BuildAuthURL("")
	if err := b.openURL(authURL); err != nil {
		// Fire-and-forget: the user can still open the URL by hand.
		b.logger.WithError(err).Warn("Could not open browser automatically")
	}
	b.logger.Infof("Waiting for brokerage login (up to %s): %s", b.wait, authURL)

	code, err := b.AwaitRedirectCode(ctx)
	if err != nil {
		return "", err
	}

	token, err := b.exchanger.ExchangeCodeForToken(ctx, code)
	if err != nil {
		return "", err
	}
	return token, nil
}

// Shutdown stops the callback listener and surfaces any listener error.
func (b *Bridge) Shutdown(ctx context.Context) error {
	if b.srv == nil {
		return nil
	}
	if err := b.srv.Shutdown(ctx); err != nil {
		return err
	}
	return b.group.Wait()
}
