package configuration

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEnv_FallsBackToGoModRoot(t *testing.T) {
	tmp := t.TempDir()

	requireWriteFile(t, filepath.Join(tmp, "go.mod"), "module example.com/test\n\ngo 1.22\n")
	requireWriteFile(t, filepath.Join(tmp, ".env.local"), "HRDESK_TEST_ENV_LOAD=ok\n")

	sub := filepath.Join(tmp, "modules", "hrm")
	requireMkdirAll(t, sub)

	origWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	if err := os.Chdir(sub); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	_ = os.Unsetenv("HRDESK_TEST_ENV_LOAD")
	t.Cleanup(func() { _ = os.Unsetenv("HRDESK_TEST_ENV_LOAD") })

	n, err := LoadEnv([]string{".env", ".env.local"})
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 env file loaded, got %d", n)
	}
	if got := os.Getenv("HRDESK_TEST_ENV_LOAD"); got != "ok" {
		t.Fatalf("expected env var loaded from repo root, got %q", got)
	}
}

func TestLoadEnv_NoFiles(t *testing.T) {
	tmp := t.TempDir()
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	if err := os.Chdir(tmp); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	n, err := LoadEnv([]string{".env.missing-one", ".env.missing-two"})
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no files, got %d", n)
	}
}

func TestImportOptions_Validate(t *testing.T) {
	ok := ImportOptions{ReferenceCache: "memory", ReferenceCacheTTL: time.Minute}
	if err := ok.Validate(""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := ImportOptions{ReferenceCache: "memcached"}
	if err := bad.Validate(""); err == nil {
		t.Fatalf("expected error for unknown cache backend")
	}

	redisNoURL := ImportOptions{ReferenceCache: "redis"}
	if err := redisNoURL.Validate(""); err == nil {
		t.Fatalf("expected error for redis without REDIS_URL")
	}
	if err := redisNoURL.Validate("localhost:6379"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestConfiguration_AllowedOrigins(t *testing.T) {
	c := &Configuration{CorsOrigins: " http://a.test, ,http://b.test "}
	got := c.AllowedOrigins()
	if len(got) != 2 || got[0] != "http://a.test" || got[1] != "http://b.test" {
		t.Fatalf("unexpected origins: %#v", got)
	}
}

func requireWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func requireMkdirAll(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
}
