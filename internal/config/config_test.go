package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"
)

func validTestConfig() Config {
	cfg := *Default()
	cfg.ReportsPath = "/tmp/reports"
	return cfg
}

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bddrun.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	return path
}

func TestDefault_MatchesDocumentedValues(t *testing.T) {
	t.Parallel()
	cfg := Default()

	if cfg.BrowserType != BrowserChromium || cfg.Headless || cfg.SlowMo != 0 {
		t.Fatalf("unexpected browser defaults: %+v", cfg)
	}
	if cfg.LoginPageURL != "https://example.com/login" {
		t.Fatalf("LoginPageURL = %q", cfg.LoginPageURL)
	}
	if cfg.SaveTracesOnPass || cfg.TracesPath != "Playwright-Traces" {
		t.Fatalf("unexpected tracing defaults: %+v", cfg)
	}
	if cfg.RecordVideo || cfg.VideoDir != "Playwright-Videos" {
		t.Fatalf("unexpected video defaults: %+v", cfg)
	}
	if cfg.ScreenshotOnSuccess || !cfg.ScreenshotOnFailure || cfg.ScreenshotsDir != "Screenshots" {
		t.Fatalf("unexpected screenshot defaults: %+v", cfg)
	}
	if cfg.DownloadsPath != "Downloads" {
		t.Fatalf("DownloadsPath = %q", cfg.DownloadsPath)
	}
	wd, _ := os.Getwd()
	if cfg.ReportsPath != wd {
		t.Fatalf("ReportsPath = %q, want cwd %q", cfg.ReportsPath, wd)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	t.Parallel()
	cfg := validTestConfig()
	cfg.SlowMo = -1
	cfg.TimeoutMS = 0
	cfg.TracesPath = " "
	cfg.RecordVideo = true
	cfg.VideoSettleInterval = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	msg := verr.Error()
	for _, expected := range []string{
		"BROWSER_SLOW_MO",
		"BROWSER_TIMEOUT_MS",
		"TRACING_TRACES_PATH",
		"VIDEO_SETTLE_INTERVAL",
	} {
		if !strings.Contains(msg, expected) {
			t.Fatalf("expected validation error to mention %q, got: %v", expected, err)
		}
	}
}

func TestValidate_SettleWindowIgnoredWithoutVideo(t *testing.T) {
	t.Parallel()
	cfg := validTestConfig()
	cfg.VideoSettleInterval = 0
	cfg.VideoSettleTimeout = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("settle settings should not matter when video is off: %v", err)
	}
}

func TestValidate_BucketNeedsRegion(t *testing.T) {
	t.Parallel()
	cfg := validTestConfig()
	cfg.ArtifactsBucket = "artifacts"
	cfg.ArtifactsRegion = ""
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "ARTIFACTS_S3_REGION") {
		t.Fatalf("expected region error, got %v", err)
	}
}

func testNormalizedBrowserType_FallsBackToChromium(t *rapid.T) {
	known := map[string]string{
		"chromium": BrowserChromium,
		"firefox":  BrowserFirefox,
		"webkit":   BrowserWebKit,
	}
	raw := rapid.OneOf(
		rapid.SampledFrom([]string{"chromium", "Firefox", " WEBKIT ", "firefox"}),
		rapid.StringMatching(`[a-z]{0,12}`),
	).Draw(t, "browser")

	cfg := Config{BrowserType: raw}
	got, fellBack := cfg.NormalizedBrowserType()

	want, ok := known[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		want = BrowserChromium
	}
	if got != want {
		t.Fatalf("NormalizedBrowserType(%q) = %q, want %q", raw, got, want)
	}
	if fellBack == ok {
		t.Fatalf("fallback flag mismatch for %q: %t", raw, fellBack)
	}
}

func TestNormalizedBrowserType_FallsBackToChromium(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testNormalizedBrowserType_FallsBackToChromium)
}

func testResolveDir(t *rapid.T) {
	base := "/" + rapid.StringMatching(`[a-z]{1,8}(/[a-z]{1,8}){0,2}`).Draw(t, "base")
	dir := rapid.StringMatching(`[A-Za-z\-]{1,16}`).Draw(t, "dir")
	cfg := Config{ReportsPath: base}

	if got, want := cfg.ResolveDir(dir), filepath.Join(base, dir); got != want {
		t.Fatalf("ResolveDir(%q) = %q, want %q", dir, got, want)
	}
	abs := "/abs/" + dir
	if got := cfg.ResolveDir(abs); got != abs {
		t.Fatalf("absolute dir should be kept: got %q", got)
	}
}

func TestResolveDir(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testResolveDir)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeYAML(t, `
browser:
  type: firefox
  headless: true
  slowMo: 50
baseUrls:
  loginPage: http://localhost:8080/login
tracing:
  saveOnPass: true
video:
  record: true
  settleTimeout: 3s
  settleInterval: 100ms
reports:
  path: /var/reports
screenshots:
  onFailure: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BrowserType != "firefox" || !cfg.Headless || cfg.SlowMo != 50 {
		t.Fatalf("browser section not applied: %+v", cfg)
	}
	if cfg.LoginPageURL != "http://localhost:8080/login" {
		t.Fatalf("LoginPageURL = %q", cfg.LoginPageURL)
	}
	if !cfg.SaveTracesOnPass || !cfg.RecordVideo {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if cfg.VideoSettleTimeout != 3*time.Second || cfg.VideoSettleInterval != 100*time.Millisecond {
		t.Fatalf("settle window not applied: %s / %s", cfg.VideoSettleTimeout, cfg.VideoSettleInterval)
	}
	if cfg.ReportsPath != "/var/reports" || cfg.ScreenshotOnFailure {
		t.Fatalf("reports/screenshots not applied: %+v", cfg)
	}
	// keys absent from the file keep their defaults
	if cfg.TracesPath != "Playwright-Traces" || cfg.ScreenshotsDir != "Screenshots" {
		t.Fatalf("unset keys should keep defaults: %+v", cfg)
	}
	if cfg.Source != path {
		t.Fatalf("Source = %q, want %q", cfg.Source, path)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeYAML(t, "browser:\n  type: firefox\n  slowMo: 50\n")
	t.Setenv("BROWSER_TYPE", "webkit")
	t.Setenv("BROWSER_SLOW_MO", "not-a-number")
	t.Setenv("SCREENSHOTS_ON_SUCCESS", "true")
	t.Setenv("VIDEO_SETTLE_TIMEOUT", "5s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BrowserType != "webkit" {
		t.Fatalf("env should win over file: %q", cfg.BrowserType)
	}
	// unparsable env values fall back to the previous layer
	if cfg.SlowMo != 50 {
		t.Fatalf("SlowMo = %v, want file value 50", cfg.SlowMo)
	}
	if !cfg.ScreenshotOnSuccess || cfg.VideoSettleTimeout != 5*time.Second {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestLoad_MissingDefaultFileIsFine(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load without a file: %v", err)
	}
	if cfg.Source != "" {
		t.Fatalf("Source should be empty, got %q", cfg.Source)
	}
}

func TestLoad_MissingExplicitFileFails(t *testing.T) {
	t.Parallel()
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for a missing explicit config file")
	}
}

func TestLoad_BadDurationInFileFails(t *testing.T) {
	t.Parallel()
	path := writeYAML(t, "video:\n  settleTimeout: soon\n")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "settleTimeout") {
		t.Fatalf("expected settleTimeout parse error, got %v", err)
	}
}

func TestLoad_InvalidValuesReturnValidationError(t *testing.T) {
	t.Setenv("BROWSER_TIMEOUT_MS", "-5")
	_, err := Load(writeYAML(t, ""))
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("expected *ValidationError, got %T (%v)", err, err)
	}
}

func testParseBoolOrDefault(t *rapid.T) {
	def := rapid.Bool().Draw(t, "default")
	v := rapid.Bool().Draw(t, "value")
	key := "BDDRUN_TEST_BOOL"

	os.Setenv(key, strconv.FormatBool(v))
	defer os.Unsetenv(key)
	if got := parseBoolOrDefault(key, def); got != v {
		t.Fatalf("parseBoolOrDefault(%t) = %t", v, got)
	}

	os.Setenv(key, "maybe")
	if got := parseBoolOrDefault(key, def); got != def {
		t.Fatalf("garbage should yield default %t, got %t", def, got)
	}
}

func TestParseBoolOrDefault(t *testing.T) {
	rapid.Check(t, testParseBoolOrDefault)
}

func TestPrintSummary(t *testing.T) {
	t.Parallel()
	cfg := validTestConfig()
	cfg.BrowserType = "opera"
	cfg.RecordVideo = true
	cfg.ArtifactsBucket = "ci-artifacts"
	cfg.ArtifactsPrefix = "/runs/"

	var buf bytes.Buffer
	cfg.PrintSummary(&buf)
	out := buf.String()

	for _, want := range []string{
		`chromium (unknown "opera"`,
		"/tmp/reports/Playwright-Traces",
		"/tmp/reports/Playwright-Videos",
		"s3://ci-artifacts/runs",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}
}
