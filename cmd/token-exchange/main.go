// Command token-exchange trades the one-time marketplace authorization code
// in ML_TEMP_CODE for an access token and a refresh token.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"catalog_backend/internal/oauth"
	"catalog_backend/platform/config"
	"catalog_backend/platform/logger"

	"github.com/spf13/cobra"
)

const separator = "================================================"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)

	cmd := &cobra.Command{
		Use:           "token-exchange",
		Short:         "Exchange a marketplace authorization code for API tokens",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExchange(cmd, cfg, log)
		},
	}
	cmd.Flags().StringVar(&cfg.MLTempCode, "code", cfg.MLTempCode, "authorization code (defaults to ML_TEMP_CODE)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		var providerErr *oauth.ProviderError
		if errors.As(err, &providerErr) {
			printProviderError(cmd.ErrOrStderr(), providerErr)
		} else {
			log.Error("token exchange failed", "error", err)
		}
		stop()
		os.Exit(1)
	}
}

func runExchange(cmd *cobra.Command, cfg *config.Config, log *logger.Logger) error {
	if err := cfg.RequireOAuth(); err != nil {
		return err
	}

	exchanger := oauth.NewExchanger(cfg.GetMLAPIBaseURL(), oauth.Credentials{
		AppID:        cfg.GetMLAppID(),
		ClientSecret: cfg.GetMLClientSecret(),
		RedirectURI:  cfg.GetMLRedirectURI(),
	}, cfg.GetUpstreamTimeout(), nil)

	log.Info("exchanging authorization code", "code", oauth.Preview(cfg.GetMLTempCode(), 10))

	tokens, err := exchanger.Exchange(cmd.Context(), cfg.GetMLTempCode())
	if err != nil {
		return err
	}

	printTokens(cmd.OutOrStdout(), tokens)
	return nil
}

func printTokens(w io.Writer, tokens *oauth.Tokens) {
	fmt.Fprintln(w, "SUCESSO! Código trocado por tokens:")
	fmt.Fprintln(w, separator)
	fmt.Fprintln(w, "ACCESS TOKEN:")
	fmt.Fprintln(w, tokens.AccessToken)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "REFRESH TOKEN (guarde para o futuro):")
	fmt.Fprintln(w, tokens.RefreshToken)
	fmt.Fprintln(w, separator)
}

func printProviderError(w io.Writer, providerErr *oauth.ProviderError) {
	fmt.Fprintln(w, "ERRO DO MERCADO LIVRE:")

	var indented bytes.Buffer
	if err := json.Indent(&indented, providerErr.Body, "", "  "); err == nil {
		fmt.Fprintln(w, indented.String())
	} else {
		fmt.Fprintln(w, string(providerErr.Body))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Motivo provável: o código expirou ou a URL de redirect não bate.")
}
