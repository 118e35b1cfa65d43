package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZaguanLabs/golokal"
	"github.com/ZaguanLabs/golokal/golokaltest"
)

const testKey = "lok_cli"

// setup starts a fake API and points the CLI at it through the environment.
func setup(t *testing.T) (*golokaltest.Server, string) {
	t.Helper()
	srv := golokaltest.NewServer(testKey)
	t.Cleanup(srv.Close)
	srv.SetTranslations("en", "default", golokal.TranslationMap{"hello": "Hello", "bye": "Bye"})
	srv.SetTranslations("en", "marketing", golokal.TranslationMap{"cta": "Sign up"})
	srv.SetTranslations("fr", "default", golokal.TranslationMap{"hello": "Bonjour"})

	dir := t.TempDir()
	t.Setenv("GOLOKAL_API_KEY", testKey)
	t.Setenv("GOLOKAL_BASE_URL", srv.URL)
	t.Setenv("GOLOKAL_STORE", "file")
	t.Setenv("GOLOKAL_STORE_PATH", dir)
	t.Setenv("GOLOKAL_NAMESPACES", "default,marketing")
	t.Setenv("GOLOKAL_LOG_LEVEL", "error")
	return srv, dir
}

func TestRun_Version(t *testing.T) {
	for _, args := range [][]string{{"--version"}, {"version"}} {
		var stdout, stderr bytes.Buffer
		if err := run(args, &stdout, &stderr); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := stdout.String()
		if !strings.HasPrefix(out, "golokal "+golokal.Version) || !strings.Contains(out, "go:") {
			t.Errorf("expected version output, got: %s", out)
		}
	}
}

func TestRun_MissingCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run([]string{}, &stdout, &stderr)

	if err == nil || !strings.Contains(err.Error(), "command is required") {
		t.Fatalf("expected missing command error, got: %v", err)
	}
	if !strings.Contains(stderr.String(), "Commands:") {
		t.Errorf("expected usage on stderr, got: %s", stderr.String())
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	setup(t)
	var stdout, stderr bytes.Buffer
	err := run([]string{"frobnicate"}, &stdout, &stderr)

	if err == nil || !strings.Contains(err.Error(), `unknown command "frobnicate"`) {
		t.Fatalf("expected unknown command error, got: %v", err)
	}
}

func TestRun_SyncRequiresAPIKey(t *testing.T) {
	setup(t)
	t.Setenv("GOLOKAL_API_KEY", "")

	var stdout, stderr bytes.Buffer
	err := run([]string{"sync"}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "APIKey") {
		t.Fatalf("expected config error, got: %v", err)
	}
}

func TestRun_Sync(t *testing.T) {
	setup(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"sync"}, &stdout, &stderr); err != nil {
		t.Fatalf("sync failed: %v (stderr: %s)", err, stderr.String())
	}

	out := stdout.String()
	if !strings.Contains(out, "en/default\t2 keys") || !strings.Contains(out, "en/marketing\t1 keys") {
		t.Errorf("unexpected sync output: %s", out)
	}
}

func TestRun_SyncJSON(t *testing.T) {
	setup(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"sync", "--json"}, &stdout, &stderr); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	var result struct {
		Locale     string         `json:"locale"`
		Version    string         `json:"version"`
		Namespaces map[string]int `json:"namespaces"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, stdout.String())
	}
	if result.Locale != "en" || result.Namespaces["default"] != 2 || result.Version == "" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestRun_FlagsOverrideEnv(t *testing.T) {
	setup(t)
	t.Setenv("GOLOKAL_BASE_URL", "http://127.0.0.1:1")
	srv := golokaltest.NewServer(testKey)
	defer srv.Close()
	srv.SetTranslations("en", "default", golokal.TranslationMap{"only": "here"})

	var stdout, stderr bytes.Buffer
	args := []string{"--base-url", srv.URL, "--namespaces", "default", "sync"}
	if err := run(args, &stdout, &stderr); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "en/default\t1 keys") {
		t.Errorf("flag did not override env: %s", stdout.String())
	}
}

func TestRun_ConfigFile(t *testing.T) {
	srv, _ := setup(t)
	t.Setenv("GOLOKAL_BASE_URL", "")
	t.Setenv("GOLOKAL_NAMESPACES", "")

	configPath := filepath.Join(t.TempDir(), "golokal.yaml")
	config := "base_url: " + srv.URL + "\nnamespaces:\n  - marketing\n"
	if err := os.WriteFile(configPath, []byte(config), 0o600); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	if err := run([]string{"--config", configPath, "sync"}, &stdout, &stderr); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if strings.TrimSpace(stdout.String()) != "en/marketing\t1 keys" {
		t.Errorf("config file not applied: %q", stdout.String())
	}
}

func TestRun_GetAndOffline(t *testing.T) {
	srv, _ := setup(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"get", "--locale", "fr", "hello", "missing.key"}, &stdout, &stderr); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	out := stdout.String()
	if !strings.Contains(out, "hello\tBonjour") || !strings.Contains(out, "missing.key\tmissing.key") {
		t.Errorf("unexpected get output: %s", out)
	}

	// The API going away must not matter for --offline
	srv.Close()
	stdout.Reset()
	if err := run([]string{"get", "--locale", "fr", "--offline", "--json"}, &stdout, &stderr); err != nil {
		t.Fatalf("offline get failed: %v", err)
	}
	var m map[string]string
	if err := json.Unmarshal(stdout.Bytes(), &m); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if m["hello"] != "Bonjour" {
		t.Errorf("offline read = %v", m)
	}
}

func TestRun_GetUnknownLocale(t *testing.T) {
	setup(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{"get", "--locale", "xx"}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Fatalf("expected 404 error, got: %v", err)
	}
}

func TestRun_Check(t *testing.T) {
	setup(t)

	src := t.TempDir()
	view := "package views\n\nfunc render(tr interface{ T(string, map[string]any) string }) string {\n\treturn tr.T(\"hello\", nil) + tr.T(\"nav.home\", nil)\n}\n"
	if err := os.WriteFile(filepath.Join(src, "views.go"), []byte(view), 0o644); err != nil {
		t.Fatal(err)
	}
	page := `<h1 data-i18n="bye">Bye</h1><input data-i18n-attrs="placeholder=search.hint">`
	if err := os.WriteFile(filepath.Join(src, "index.html"), []byte(page), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	err := run([]string{"check", src}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "2 of 4 keys missing from en/default") {
		t.Fatalf("expected missing keys error, got: %v", err)
	}
	out := stdout.String()
	if !strings.Contains(out, "views.go:4: nav.home") || !strings.Contains(out, "index.html: search.hint") {
		t.Errorf("unexpected check output: %s", out)
	}

	// Every key present once the offending files are gone
	os.Remove(filepath.Join(src, "index.html"))
	os.WriteFile(filepath.Join(src, "views.go"), []byte("package views\n\nfunc f(tr interface{ T(string, map[string]any) string }) { tr.T(\"bye\", nil) }\n"), 0o644)
	stdout.Reset()
	if err := run([]string{"check", "--offline", src}, &stdout, &stderr); err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("expected no missing keys, got: %s", stdout.String())
	}
}

func TestRun_ExportImport(t *testing.T) {
	setup(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"sync"}, &stdout, &stderr); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	snapshot := filepath.Join(t.TempDir(), "snapshot.json")
	if err := run([]string{"export", "-o", snapshot}, &stdout, &stderr); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	// Import into a fresh sqlite store
	t.Setenv("GOLOKAL_STORE", "sqlite")
	t.Setenv("GOLOKAL_STORE_PATH", filepath.Join(t.TempDir(), "cache.db"))

	stdout.Reset()
	if err := run([]string{"import", snapshot}, &stdout, &stderr); err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "Imported 1 locales, 2 namespaces, 3 keys") {
		t.Errorf("unexpected import output: %s", stdout.String())
	}

	stdout.Reset()
	if err := run([]string{"get", "--offline", "--namespace", "marketing", "cta"}, &stdout, &stderr); err != nil {
		t.Fatalf("offline get failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "cta\tSign up") {
		t.Errorf("imported data not readable: %s", stdout.String())
	}
}

func TestRun_ImportArgs(t *testing.T) {
	setup(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"import"}, &stdout, &stderr); err == nil {
		t.Error("expected error without snapshot file")
	}
}

func TestRun_Watch(t *testing.T) {
	setup(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"watch", "--interval", "20ms", "--for", "150ms"}, &stdout, &stderr); err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "en/default: +2 -0 ~0") {
		t.Errorf("expected initial diff, got: %s", stdout.String())
	}
}

func TestRun_UnknownStore(t *testing.T) {
	setup(t)
	t.Setenv("GOLOKAL_STORE", "floppy")

	var stdout, stderr bytes.Buffer
	err := run([]string{"sync"}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), `unknown store "floppy"`) {
		t.Fatalf("expected unknown store error, got: %v", err)
	}
}

func TestRun_InvalidLogLevel(t *testing.T) {
	setup(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{"--log-level", "loud", "sync"}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "invalid log level") {
		t.Fatalf("expected log level error, got: %v", err)
	}
}
