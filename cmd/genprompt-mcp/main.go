// Command genprompt-mcp exposes the GenPrompt graph as MCP tools over stdio,
// so an assistant can analyze local images and write or refine prompts.
//
// stdout carries the MCP protocol; logs go to stderr.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/genprompt/internal/auth"
	"github.com/fpang/genprompt/internal/chat"
	"github.com/fpang/genprompt/internal/cli"
	"github.com/fpang/genprompt/internal/logging"
)

var version = "dev"

var modelFlag string

var rootCmd = &cobra.Command{
	Use:   "genprompt-mcp",
	Short: "MCP server for the GenPrompt co-pilot",
	Long: `GenPrompt MCP serves three tools over stdio:

  analyze_image   photo path -> visual analysis and Prompt A
  direct_video    generated image path + brief -> Prompt B
  refine_prompt   prompt + feedback -> revised prompt`,
	Args: cobra.NoArgs,
	RunE: runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", chat.GetModelName(), "Gemini model to use")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) error {
	initStart := time.Now()
	logging.InitWriter(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	apiKey, err := auth.GetAPIKey()
	if err != nil {
		return err
	}
	g, err := cli.NewGraph(ctx, cli.GraphOptions{
		APIKey:            apiKey,
		Model:             modelFlag,
		RequestsPerSecond: cli.RequestsPerSecondFromEnv(),
	})
	if err != nil {
		return fmt.Errorf("build graph: %w", err)
	}

	server := mcp.NewServer(&mcp.Implementation{Name: "genprompt", Version: version}, nil)
	registerTools(server, &tools{runner: g, readImage: cli.ReadImage})

	logging.NewStartupLogger("genprompt-mcp").
		Version(version).
		Config("model", modelFlag).
		Config("transport", "stdio").
		InitDuration(time.Since(initStart)).
		Log()

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("MCP server stopped")
		return err
	}
	return nil
}
