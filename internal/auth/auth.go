// Package auth resolves and validates the Gemini API key used by the
// GenPrompt commands.
package auth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	credentialDir  = ".genprompt"
	credentialFile = "credentials.gpg"

	// PassphraseFileEnv points at a GPG passphrase file for non-interactive decryption.
	PassphraseFileEnv = "GENPROMPT_GPG_PASSPHRASE_FILE"
)

// Source names where an API key came from.
type Source string

const (
	SourceEnv Source = "env"
	SourceGPG Source = "gpg"
	SourceSSM Source = "ssm"
)

// ErrNoAPIKey is returned when no key source yields a key.
var ErrNoAPIKey = errors.New("API key not found: set GEMINI_API_KEY or store it in ~/" + credentialDir + "/" + credentialFile)

// GetAPIKey returns the Gemini API key from GEMINI_API_KEY, falling back to
// the GPG-encrypted credentials file.
func GetAPIKey() (string, error) {
	key, _, err := ResolveAPIKey()
	return key, err
}

// ResolveAPIKey is GetAPIKey that also reports the source used.
func ResolveAPIKey() (string, Source, error) {
	if key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); key != "" {
		log.Debug().Str("source", string(SourceEnv)).Msg("Using API key from environment variable")
		return key, SourceEnv, nil
	}

	key, err := getFromGPG()
	if err == nil && key != "" {
		log.Debug().Str("source", string(SourceGPG)).Msg("Using API key from GPG encrypted file")
		return key, SourceGPG, nil
	}

	log.Error().Err(err).Msg("Failed to retrieve API key")
	return "", "", ErrNoAPIKey
}

func getFromGPG() (string, error) {
	credPath, err := getCredentialPath()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(credPath); errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("GPG credentials file not found at %s", credPath)
	}

	log.Debug().Str("file", credPath).Msg("Decrypting GPG credentials")

	args := []string{"--decrypt", "--quiet"}
	if p := passphraseFile(); p != "" {
		args = append(args, "--pinentry-mode", "loopback", "--passphrase-file", p)
	}
	args = append(args, credPath)

	output, err := exec.Command("gpg", args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("GPG decryption failed: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("GPG decryption failed: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

func getCredentialPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, credentialDir, credentialFile), nil
}

// passphraseFile returns the passphrase file named by PassphraseFileEnv, or
// ~/.genprompt/.gpg-passphrase. Files readable by group or others are ignored.
func passphraseFile() string {
	path := os.Getenv(PassphraseFileEnv)
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		path = filepath.Join(home, credentialDir, ".gpg-passphrase")
	}

	fi, err := os.Stat(path)
	if err != nil {
		return ""
	}
	if mode := fi.Mode().Perm(); mode&0o077 != 0 {
		log.Warn().
			Str("passphrase_file", path).
			Str("permissions", fmt.Sprintf("%04o", mode)).
			Msg("Passphrase file has insecure permissions (should be 0600); skipping")
		return ""
	}
	return path
}
