package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"

	"github.com/mmynk/showpayouts/internal/auth"
	"github.com/mmynk/showpayouts/internal/config"
	"github.com/mmynk/showpayouts/pkg/api"
	"github.com/mmynk/showpayouts/pkg/logging"
)

var (
	serverURL string
	token     string
	actor     string
	logLevel  string
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "payoutctl",
	Short: "Calculate, approve and pay show payouts",
	Long: `payoutctl talks to a running payout server over Connect.

Without --token, a short-lived token is signed with JWT_SECRET from the
environment or .env when it is set.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.SetupWithLevel(logging.ParseLevel(logLevel))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("PAYOUT_SERVER", "http://localhost:8080"), "payout server base URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("PAYOUT_TOKEN"), "bearer token")
	rootCmd.PersistentFlags().StringVar(&actor, "as", envOr("USER", "payoutctl"), "user recorded on signed tokens")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// bearerToken returns --token, or signs one with the configured secret.
func bearerToken() (string, error) {
	if token != "" {
		return token, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	if cfg.JWTSecret == "" {
		return "", nil
	}
	slog.Debug("Signing token with JWT_SECRET", "user", actor)
	return auth.NewJWTManager(cfg.JWTSecret, 5*time.Minute).Generate(actor, "")
}

func authInterceptor(bearer string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if bearer != "" {
				req.Header().Set("Authorization", "Bearer "+bearer)
			}
			return next(ctx, req)
		}
	}
}

// newClient builds a client and a context bounded by --timeout.
func newClient(cmd *cobra.Command) (api.PayoutServiceClient, context.Context, context.CancelFunc, error) {
	bearer, err := bearerToken()
	if err != nil {
		return nil, nil, nil, err
	}
	client := api.NewPayoutServiceClient(http.DefaultClient, serverURL,
		connect.WithInterceptors(authInterceptor(bearer)))
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	return client, ctx, cancel, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readJSONFile(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%s is not valid JSON", path)
	}
	return data, nil
}
