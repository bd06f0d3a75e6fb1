package auth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestResolveAPIKeyFromEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "  test-api-key-12345\n")

	key, src, err := ResolveAPIKey()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "test-api-key-12345" {
		t.Errorf("key = %q", key)
	}
	if src != SourceEnv {
		t.Errorf("source = %q, want %q", src, SourceEnv)
	}
}

func TestGetAPIKeyNoSource(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("HOME", t.TempDir())

	if _, err := GetAPIKey(); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("err = %v, want ErrNoAPIKey", err)
	}
}

func TestGetCredentialPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path, err := getCredentialPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(home, ".genprompt", "credentials.gpg"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
}

func TestPassphraseFilePermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pass")
	if err := os.WriteFile(path, []byte("secret"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(PassphraseFileEnv, path)

	if got := passphraseFile(); got != path {
		t.Errorf("passphraseFile() = %q, want %q", got, path)
	}

	if err := os.Chmod(path, 0o644); err != nil {
		t.Fatal(err)
	}
	if got := passphraseFile(); got != "" {
		t.Errorf("world-readable passphrase file should be ignored, got %q", got)
	}

	t.Setenv(PassphraseFileEnv, filepath.Join(dir, "missing"))
	if got := passphraseFile(); got != "" {
		t.Errorf("missing passphrase file should be ignored, got %q", got)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ValidationErrorType
	}{
		{"invalid key message", errors.New("API key not valid. Please pass a valid API key."), ErrTypeInvalidKey},
		{"quota message", errors.New("Resource exhausted: quota"), ErrTypeQuotaExceeded},
		{"network", errors.New("dial tcp: no such host"), ErrTypeNetworkError},
		{"other", errors.New("boom"), ErrTypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyError(tt.err)
			if got.Type != tt.want {
				t.Errorf("classifyError() type = %v, want %v", got.Type, tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Error("ValidationError should unwrap to the cause")
			}
		})
	}
}
