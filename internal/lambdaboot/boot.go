// Package lambdaboot holds the cold-start helpers for the GenPrompt Lambda:
// AWS config, the Gemini key from SSM, and the optional media bucket.
package lambdaboot

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/fpang/genprompt/internal/logging"
	"github.com/fpang/genprompt/internal/s3util"
)

// DefaultAPIKeyParam is the SSM parameter read when SSM_API_KEY_PARAM is unset.
const DefaultAPIKeyParam = "/genprompt/prod/gemini-api-key"

// AWSClients holds the AWS config and the clients built from it.
type AWSClients struct {
	Config aws.Config
	SSM    *ssm.Client
}

// InitAWS loads the default AWS config. It exits the process on failure.
func InitAWS() AWSClients {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return AWSClients{
		Config: cfg,
		SSM:    ssm.NewFromConfig(cfg),
	}
}

// InitMediaBucket returns the media bucket named by bucketEnvVar, or nil
// when the variable is unset and S3 uploads are disabled.
func InitMediaBucket(cfg aws.Config, bucketEnvVar string, maxBytes int64) *s3util.Bucket {
	name := os.Getenv(bucketEnvVar)
	if name == "" {
		log.Warn().Str("envVar", bucketEnvVar).Msg("Media bucket not set, S3 uploads disabled")
		return nil
	}
	return s3util.NewBucket(s3.NewFromConfig(cfg), name, maxBytes)
}

// parameterGetter is the subset of *ssm.Client used by LoadGeminiKey.
type parameterGetter interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// APIKeyParam returns the SSM parameter holding the Gemini key.
func APIKeyParam() string {
	return logging.EnvOrDefault("SSM_API_KEY_PARAM", DefaultAPIKeyParam)
}

// LoadGeminiKey returns GEMINI_API_KEY, or the decrypted SSM parameter when
// the variable is unset. The key is also exported to GEMINI_API_KEY so that
// auth.GetAPIKey sees it.
func LoadGeminiKey(ctx context.Context, client parameterGetter) (string, error) {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key, nil
	}

	param := APIKeyParam()
	start := time.Now()
	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &param,
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("read API key from SSM %s: %w", param, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil || *out.Parameter.Value == "" {
		return "", fmt.Errorf("SSM parameter %s is empty", param)
	}

	key := *out.Parameter.Value
	os.Setenv("GEMINI_API_KEY", key)
	log.Debug().Str("param", param).Dur("elapsed", time.Since(start)).Msg("Gemini API key loaded from SSM")
	return key, nil
}

// StartupLog returns a startup logger with the init duration already set.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
}
