// Command tracker monitors a live iron condor position: it authenticates
// against the brokerage through a local redirect listener, then polls the
// four leg quotes and reprints the derived P&L metrics each cycle.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kdeshpande/condortrack/internal/auth"
	"github.com/kdeshpande/condortrack/internal/broker"
	"github.com/kdeshpande/condortrack/internal/condor"
	"github.com/kdeshpande/condortrack/internal/config"
	"github.com/kdeshpande/condortrack/internal/mock"
	"github.com/kdeshpande/condortrack/internal/monitor"
	"github.com/kdeshpande/condortrack/internal/render"
	"github.com/kdeshpande/condortrack/internal/session"
	"github.com/kdeshpande/condortrack/internal/symbols"
)

const shutdownGrace = 5 * time.Second

var (
	configPath string
	demoMode   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "tracker",
		Short:        "Iron condor position tracker",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Authenticate and track the configured position",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
	}
	runCmd.Flags().BoolVar(&demoMode, "demo", false, "track against synthetic quotes, no login required")

	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Run the login handshake and print the access token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return login(cmd.Context())
		},
	}

	rootCmd.AddCommand(runCmd, loginCmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// setup loads env + config and builds the shared pieces every command needs.
func setup() (*config.Config, *logrus.Logger, error) {
	// Credentials usually come from a local .env; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.Environment.LogLevel != "" {
		level, err := logrus.ParseLevel(cfg.Environment.LogLevel)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.Environment.LogLevel, err)
		}
		logger.SetLevel(level)
	}
	return cfg, logger, nil
}

func buildPosition(cfg *config.Config) (*condor.Position, error) {
	underlying, err := symbols.Lookup(cfg.Position.Underlying)
	if err != nil {
		return nil, err
	}
	pos := &condor.Position{
		Underlying:     underlying,
		Expiry:         cfg.Position.Expiry,
		CallSellStrike: cfg.Position.CallSellStrike,
		CallBuyStrike:  cfg.Position.CallBuyStrike,
		PutSellStrike:  cfg.Position.PutSellStrike,
		PutBuyStrike:   cfg.Position.PutBuyStrike,
		Lots:           cfg.Position.Lots,
		MinQty:         cfg.Position.MinQty,
	}
	if err := pos.Validate(); err != nil {
		return nil, err
	}
	return pos, nil
}

func newBrokerClient(cfg *config.Config) *broker.FyersAPI {
	return broker.NewFyersAPIWithBaseURL(broker.ClientConfig{
		ClientID:     cfg.Broker.ClientID,
		SecretKey:    cfg.Broker.SecretKey,
		RedirectURI:  cfg.Broker.RedirectURI,
		ResponseType: cfg.Broker.ResponseType,
		GrantType:    cfg.Broker.GrantType,
	}, cfg.Broker.APIBaseURL, cfg.Broker.DataBaseURL)
}

func run(ctx context.Context) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	pos, err := buildPosition(cfg)
	if err != nil {
		return fmt.Errorf("position: %w", err)
	}

	sess := session.NewMemoryStore()
	defer sess.Clear() // logout: the token never survives the process

	var quoter broker.Quoter
	if demoMode {
		logger.Info("Demo mode: tracking synthetic quotes")
		sess.SetToken("demo")
		quoter = mock.NewQuoter(nil)
	} else {
		api := newBrokerClient(cfg)
		token, err := authenticate(ctx, cfg, api, logger)
		if err != nil {
			return err
		}
		sess.SetToken(token)
		quoter = broker.NewCircuitBreakerQuoter(api, logger)
	}

	mon := monitor.New(quoter, sess, render.NewTableRenderer(os.Stdout), cfg.RefreshInterval(), logger)
	return mon.Track(ctx, pos)
}

// authenticate runs the redirect handshake and tears the listener down
// before tracking starts.
func authenticate(ctx context.Context, cfg *config.Config, api *broker.FyersAPI, logger *logrus.Logger) (string, error) {
	bridge := auth.NewBridge(api, cfg.Auth.CallbackPort, logger).WithWait(cfg.AuthWait())
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := bridge.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Auth callback listener did not stop cleanly")
		}
	}()

	token, err := bridge.Authenticate(ctx)
	if err != nil {
		return "", fmt.Errorf("authentication: %w", err)
	}
	logger.Info("Authentication successful")
	return token, nil
}

func login(ctx context.Context) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	token, err := authenticate(ctx, cfg, newBrokerClient(cfg), logger)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
