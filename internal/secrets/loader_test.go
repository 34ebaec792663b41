package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSecretFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "secret")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing secret file: %v", err)
	}
	return path
}

func TestLoadFileTakesPrecedenceOverValue(t *testing.T) {
	path := writeSecretFile(t, "from-file\n")

	got, err := Load(Source{Name: "api key", Value: "inline", File: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from-file" {
		t.Fatalf("expected trimmed file content, got %q", got)
	}
}

func TestLoadFileEnvFallback(t *testing.T) {
	path := writeSecretFile(t, "from-env-file")
	t.Setenv("CVMATCH_TEST_SECRET_FILE", path)

	got, err := Load(Source{Name: "api key", FileEnv: "CVMATCH_TEST_SECRET_FILE"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from-env-file" {
		t.Fatalf("expected env file content, got %q", got)
	}
}

func TestLoadFileBeatsFileEnv(t *testing.T) {
	direct := writeSecretFile(t, "direct")
	viaEnv := writeSecretFile(t, "via-env")
	t.Setenv("CVMATCH_TEST_SECRET_FILE", viaEnv)

	got, err := Load(Source{File: direct, FileEnv: "CVMATCH_TEST_SECRET_FILE"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "direct" {
		t.Fatalf("expected the explicit file to win, got %q", got)
	}
}

func TestLoadInlineValue(t *testing.T) {
	got, err := Load(Source{Value: "  inline  "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "inline" {
		t.Fatalf("expected trimmed inline value, got %q", got)
	}
}

func TestLoadEmptyFileError(t *testing.T) {
	path := writeSecretFile(t, "  \n")

	_, err := Load(Source{Name: "database dsn", File: path})
	if err == nil {
		t.Fatal("expected error for empty secret file")
	}
	if !strings.Contains(err.Error(), "database dsn") {
		t.Fatalf("expected secret name in error, got %v", err)
	}
}

func TestLoadNotConfiguredError(t *testing.T) {
	_, err := Load(Source{Name: "api key"})
	if err == nil {
		t.Fatal("expected error for unconfigured secret")
	}
	if !strings.Contains(err.Error(), "api key is not configured") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadMissingFileError(t *testing.T) {
	_, err := Load(Source{Name: "api key", File: filepath.Join(t.TempDir(), "absent")})
	if err == nil {
		t.Fatal("expected error for missing secret file")
	}
}
