package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fpang/genprompt/internal/api"
	"github.com/fpang/genprompt/internal/auth"
	"github.com/fpang/genprompt/internal/chat"
	"github.com/fpang/genprompt/internal/cli"
	"github.com/fpang/genprompt/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// CLI flags
var (
	portFlag      int
	modelFlag     string
	maxUploadFlag int64
)

var rootCmd = &cobra.Command{
	Use:   "genprompt-web",
	Short: "Local HTTP API for the GenPrompt co-pilot",
	Long: `GenPrompt Web serves the GenPrompt API on localhost so a browser UI can
analyze photos, write video prompts and refine either prompt.

Examples:
  genprompt-web
  genprompt-web --port 9090
  genprompt-web --model gemini-3-pro-preview`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().IntVar(&portFlag, "port", 8080, "Port to listen on")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", chat.GetModelName(), "Gemini model to use")
	rootCmd.Flags().Int64Var(&maxUploadFlag, "max-upload-bytes", api.DefaultMaxUploadBytes, "Largest accepted image upload")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	initStart := time.Now()
	logging.Init()

	apiKey, err := auth.GetAPIKey()
	if err != nil {
		cli.HandleValidationError(err)
	}

	ctx := context.Background()
	g, err := cli.NewGraph(ctx, cli.GraphOptions{
		APIKey:            apiKey,
		Model:             modelFlag,
		Validate:          true,
		RequestsPerSecond: cli.RequestsPerSecondFromEnv(),
	})
	if err != nil {
		cli.HandleValidationError(err)
	}

	handler := api.NewHandler(g,
		api.WithLocalCORS(),
		api.WithMaxUploadBytes(maxUploadFlag),
	)

	addr := fmt.Sprintf(":%d", portFlag)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("Graceful shutdown failed")
		}
	}()

	logging.NewStartupLogger("genprompt-web").
		Config("model", modelFlag).
		Config("addr", addr).
		Feature("localCORS", true).
		InitDuration(time.Since(initStart)).
		Log()
	fmt.Printf("\n  GenPrompt API: http://localhost:%d/api/health\n\n", portFlag)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
