// Package main is the Lambda entry point for the GenPrompt API.
//
// It serves the same handler as genprompt-web behind API Gateway (HTTP API,
// payload v2). Images may be posted inline or uploaded to S3 first through a
// presigned URL and referenced by key.
//
// Endpoints:
//
//	GET  /api/health                 health check
//	GET  /api/upload-url             presigned S3 PUT URL (MEDIA_BUCKET_NAME set)
//	POST /api/invoke-graph           analyze a photo and write Prompt A
//	POST /api/generate-video-prompt  write Prompt B for a generated image
//	POST /api/refine-prompt          revise a prompt from feedback
package main

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/fpang/genprompt/internal/api"
	"github.com/fpang/genprompt/internal/chat"
	"github.com/fpang/genprompt/internal/cli"
	"github.com/fpang/genprompt/internal/lambdaboot"
	"github.com/fpang/genprompt/internal/logging"
)

// Build-time version identity, injected via -ldflags:
//
//	go build -ldflags="-X main.commitHash=${COMMIT_HASH}"
var commitHash = "dev"

var handler *api.Handler

func init() {
	initStart := time.Now()
	logging.Init()

	ctx := context.Background()
	clients := lambdaboot.InitAWS()

	apiKey, err := lambdaboot.LoadGeminiKey(ctx, clients.SSM)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load Gemini API key")
	}

	model := chat.GetModelName()
	g, err := cli.NewGraph(ctx, cli.GraphOptions{
		APIKey:            apiKey,
		Model:             model,
		RequestsPerSecond: cli.RequestsPerSecondFromEnv(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build graph")
	}

	originSecret := os.Getenv("ORIGIN_VERIFY_SECRET")
	if originSecret == "" {
		log.Warn().Msg("ORIGIN_VERIFY_SECRET not set, origin verification disabled")
	}

	opts := []api.Option{api.WithOriginSecret(originSecret)}
	bucket := lambdaboot.InitMediaBucket(clients.Config, "MEDIA_BUCKET_NAME", api.DefaultMaxUploadBytes)
	if bucket != nil {
		opts = append(opts, api.WithImageSource(bucket), api.WithUploader(bucket))
	}
	handler = api.NewHandler(g, opts...)

	startup := lambdaboot.StartupLog("genprompt-lambda", initStart).
		Version(commitHash).
		SSMParam("apiKey", lambdaboot.APIKeyParam()).
		Feature("originVerify", originSecret != "").
		Feature("s3Uploads", bucket != nil).
		Config("model", model)
	if bucket != nil {
		startup.S3Bucket("media", bucket.Name())
	}
	startup.Log()
}

func main() {
	adapter := httpadapter.NewV2(handler)
	lambda.Start(adapter.ProxyWithContext)
}
