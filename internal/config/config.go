// Package config provides configuration for a harness run.
// Values come from built-in defaults, then an optional YAML file, then
// environment variables; later sources win.
//
// Every artifact directory is relative to ReportsPath unless absolute.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Browser engines understood by the session manager.
const (
	BrowserChromium = "chromium"
	BrowserFirefox  = "firefox"
	BrowserWebKit   = "webkit"
)

const (
	DefaultConfigFile     = "bddrun.yaml"
	defaultLoginPageURL   = "https://example.com/login"
	defaultTracesPath     = "Playwright-Traces"
	defaultDownloadsPath  = "Downloads"
	defaultVideoDir       = "Playwright-Videos"
	defaultScreenshotsDir = "Screenshots"
	defaultTimeoutMS      = 30000
	defaultSettleTimeout  = 2 * time.Second
	defaultSettleInterval = 250 * time.Millisecond
	defaultS3Region       = "auto"
)

// Config holds all harness configuration.
type Config struct {
	// Browser
	BrowserType    string
	Headless       bool
	SlowMo         float64 // milliseconds between simulated actions
	TimeoutMS      float64 // default action/navigation timeout on the shared context
	InstallBrowser bool    // download engine binaries before launching

	// Navigation
	LoginPageURL string

	// Tracing
	SaveTracesOnPass bool
	TracesPath       string

	// Downloads
	DownloadsPath string

	// Video
	RecordVideo         bool
	VideoDir            string
	VideoSettleTimeout  time.Duration // total wait for the engine to finalize a video
	VideoSettleInterval time.Duration // poll interval while waiting

	// Screenshots
	ScreenshotOnSuccess bool
	ScreenshotOnFailure bool
	ScreenshotsDir      string

	// Base directory for every artifact kind
	ReportsPath string

	// Optional artifact upload (disabled when ArtifactsBucket is empty)
	ArtifactsBucket       string
	ArtifactsEndpoint     string
	ArtifactsRegion       string
	ArtifactsPrefix       string
	ArtifactsUsePathStyle bool
	AWSAccessKeyID        string
	AWSSecretAccessKey    string

	LogLevel string

	// Source is the YAML file that was merged, empty when none was found.
	Source string
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Default returns the built-in configuration. ReportsPath is the current
// working directory.
func Default() *Config {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	return &Config{
		BrowserType:         BrowserChromium,
		TimeoutMS:           defaultTimeoutMS,
		LoginPageURL:        defaultLoginPageURL,
		TracesPath:          defaultTracesPath,
		DownloadsPath:       defaultDownloadsPath,
		VideoDir:            defaultVideoDir,
		VideoSettleTimeout:  defaultSettleTimeout,
		VideoSettleInterval: defaultSettleInterval,
		ScreenshotOnFailure: true,
		ScreenshotsDir:      defaultScreenshotsDir,
		ReportsPath:         wd,
		ArtifactsRegion:     defaultS3Region,
		LogLevel:            "info",
	}
}

// Load builds the configuration from defaults, the YAML file at path and
// the environment, then validates it. A missing file is not an error when
// path is the default file name; an explicitly named file must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigFile
	}
	if err := cfg.mergeFile(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) || path != DefaultConfigFile {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	var errs []string

	if c.SlowMo < 0 {
		errs = append(errs, "BROWSER_SLOW_MO must not be negative")
	}
	if c.TimeoutMS <= 0 {
		errs = append(errs, "BROWSER_TIMEOUT_MS must be positive")
	}
	if strings.TrimSpace(c.ReportsPath) == "" {
		errs = append(errs, "REPORTS_PATH must not be empty")
	}
	for key, dir := range map[string]string{
		"TRACING_TRACES_PATH": c.TracesPath,
		"DOWNLOADS_PATH":      c.DownloadsPath,
		"VIDEO_DIR":           c.VideoDir,
		"SCREENSHOTS_DIR":     c.ScreenshotsDir,
	} {
		if strings.TrimSpace(dir) == "" {
			errs = append(errs, key+" must not be empty")
		}
	}
	if c.RecordVideo {
		if c.VideoSettleInterval <= 0 {
			errs = append(errs, "VIDEO_SETTLE_INTERVAL must be positive")
		}
		if c.VideoSettleTimeout < c.VideoSettleInterval {
			errs = append(errs, "VIDEO_SETTLE_TIMEOUT must be at least VIDEO_SETTLE_INTERVAL")
		}
	}
	if c.ArtifactsBucket != "" && c.ArtifactsRegion == "" {
		errs = append(errs, "ARTIFACTS_S3_REGION is required when ARTIFACTS_S3_BUCKET is set")
	}

	if len(errs) > 0 {
		// map iteration above is unordered
		sort.Strings(errs)
		return &ValidationError{Errors: errs}
	}
	return nil
}

// NormalizedBrowserType returns the engine to launch. Unknown values fall
// back to chromium; the second result reports whether that happened.
func (c *Config) NormalizedBrowserType() (string, bool) {
	switch strings.ToLower(strings.TrimSpace(c.BrowserType)) {
	case BrowserChromium:
		return BrowserChromium, false
	case BrowserFirefox:
		return BrowserFirefox, false
	case BrowserWebKit:
		return BrowserWebKit, false
	default:
		return BrowserChromium, true
	}
}

// ArtifactsEnabled reports whether saved artifacts are uploaded to a bucket.
func (c *Config) ArtifactsEnabled() bool {
	return c.ArtifactsBucket != ""
}

// ResolveDir joins dir onto ReportsPath unless dir is already absolute.
func (c *Config) ResolveDir(dir string) string {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(c.ReportsPath, dir)
}

// PrintSummary writes a human-readable summary of the configuration.
func (c *Config) PrintSummary(w io.Writer) {
	engine, fellBack := c.NormalizedBrowserType()
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "bddrun configuration")
	if c.Source != "" {
		fmt.Fprintf(w, "  File:        %s\n", c.Source)
	} else {
		fmt.Fprintln(w, "  File:        (none, defaults + environment)")
	}
	if fellBack {
		fmt.Fprintf(w, "  Browser:     %s (unknown %q, using default)\n", engine, c.BrowserType)
	} else {
		fmt.Fprintf(w, "  Browser:     %s headless=%t slowMo=%gms\n", engine, c.Headless, c.SlowMo)
	}
	fmt.Fprintf(w, "  Login page:  %s\n", c.LoginPageURL)
	fmt.Fprintf(w, "  Reports:     %s\n", c.ReportsPath)
	fmt.Fprintf(w, "  Traces:      %s (on pass: %t)\n", c.ResolveDir(c.TracesPath), c.SaveTracesOnPass)
	fmt.Fprintf(w, "  Screenshots: %s (on success: %t, on failure: %t)\n", c.ResolveDir(c.ScreenshotsDir), c.ScreenshotOnSuccess, c.ScreenshotOnFailure)
	if c.RecordVideo {
		fmt.Fprintf(w, "  Video:       %s (settle %s every %s)\n", c.ResolveDir(c.VideoDir), c.VideoSettleTimeout, c.VideoSettleInterval)
	} else {
		fmt.Fprintln(w, "  Video:       off")
	}
	fmt.Fprintf(w, "  Downloads:   %s\n", c.ResolveDir(c.DownloadsPath))
	if c.ArtifactsEnabled() {
		fmt.Fprintf(w, "  Upload:      s3://%s/%s\n", c.ArtifactsBucket, strings.Trim(c.ArtifactsPrefix, "/"))
	} else {
		fmt.Fprintln(w, "  Upload:      off")
	}
	fmt.Fprintln(w, "")
}

func (c *Config) applyEnv() {
	// Browser
	c.BrowserType = getEnvOrDefault("BROWSER_TYPE", c.BrowserType)
	c.Headless = parseBoolOrDefault("BROWSER_HEADLESS", c.Headless)
	c.SlowMo = parseFloat64OrDefault("BROWSER_SLOW_MO", c.SlowMo)
	c.TimeoutMS = parseFloat64OrDefault("BROWSER_TIMEOUT_MS", c.TimeoutMS)
	c.InstallBrowser = parseBoolOrDefault("BROWSER_INSTALL", c.InstallBrowser)

	c.LoginPageURL = getEnvOrDefault("LOGIN_PAGE_URL", c.LoginPageURL)

	// Tracing
	c.SaveTracesOnPass = parseBoolOrDefault("TRACING_SAVE_ON_PASS", c.SaveTracesOnPass)
	c.TracesPath = getEnvOrDefault("TRACING_TRACES_PATH", c.TracesPath)

	c.DownloadsPath = getEnvOrDefault("DOWNLOADS_PATH", c.DownloadsPath)

	// Video
	c.RecordVideo = parseBoolOrDefault("VIDEO_RECORD", c.RecordVideo)
	c.VideoDir = getEnvOrDefault("VIDEO_DIR", c.VideoDir)
	c.VideoSettleTimeout = parseDurationOrDefault("VIDEO_SETTLE_TIMEOUT", c.VideoSettleTimeout)
	c.VideoSettleInterval = parseDurationOrDefault("VIDEO_SETTLE_INTERVAL", c.VideoSettleInterval)

	// Screenshots
	c.ScreenshotOnSuccess = parseBoolOrDefault("SCREENSHOTS_ON_SUCCESS", c.ScreenshotOnSuccess)
	c.ScreenshotOnFailure = parseBoolOrDefault("SCREENSHOTS_ON_FAILURE", c.ScreenshotOnFailure)
	c.ScreenshotsDir = getEnvOrDefault("SCREENSHOTS_DIR", c.ScreenshotsDir)

	c.ReportsPath = getEnvOrDefault("REPORTS_PATH", c.ReportsPath)

	// Artifact upload (AWS_ credentials follow the SDK's own variable names)
	c.ArtifactsBucket = getEnvOrDefault("ARTIFACTS_S3_BUCKET", c.ArtifactsBucket)
	c.ArtifactsEndpoint = getEnvOrDefault("ARTIFACTS_S3_ENDPOINT", c.ArtifactsEndpoint)
	c.ArtifactsRegion = getEnvOrDefault("ARTIFACTS_S3_REGION", c.ArtifactsRegion)
	c.ArtifactsPrefix = getEnvOrDefault("ARTIFACTS_S3_PREFIX", c.ArtifactsPrefix)
	c.ArtifactsUsePathStyle = parseBoolOrDefault("ARTIFACTS_S3_PATH_STYLE", c.ArtifactsUsePathStyle)
	c.AWSAccessKeyID = getEnvOrDefault("AWS_ACCESS_KEY_ID", c.AWSAccessKeyID)
	c.AWSSecretAccessKey = getEnvOrDefault("AWS_SECRET_ACCESS_KEY", c.AWSSecretAccessKey)

	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)
}

// fileConfig mirrors the YAML layout. Pointers distinguish "absent" from
// zero values so a file only overrides what it names.
type fileConfig struct {
	Browser struct {
		Type      *string  `yaml:"type"`
		Headless  *bool    `yaml:"headless"`
		SlowMo    *float64 `yaml:"slowMo"`
		TimeoutMS *float64 `yaml:"timeoutMs"`
		Install   *bool    `yaml:"install"`
	} `yaml:"browser"`
	BaseURLs struct {
		LoginPage *string `yaml:"loginPage"`
	} `yaml:"baseUrls"`
	Tracing struct {
		SaveOnPass *bool   `yaml:"saveOnPass"`
		TracesPath *string `yaml:"tracesPath"`
	} `yaml:"tracing"`
	Downloads struct {
		Path *string `yaml:"path"`
	} `yaml:"downloads"`
	Video struct {
		Record         *bool   `yaml:"record"`
		Dir            *string `yaml:"dir"`
		SettleTimeout  *string `yaml:"settleTimeout"`
		SettleInterval *string `yaml:"settleInterval"`
	} `yaml:"video"`
	Reports struct {
		Path *string `yaml:"path"`
	} `yaml:"reports"`
	Screenshots struct {
		OnSuccess *bool   `yaml:"onSuccess"`
		OnFailure *bool   `yaml:"onFailure"`
		Dir       *string `yaml:"dir"`
	} `yaml:"screenshots"`
	Artifacts struct {
		S3 struct {
			Bucket       *string `yaml:"bucket"`
			Endpoint     *string `yaml:"endpoint"`
			Region       *string `yaml:"region"`
			Prefix       *string `yaml:"prefix"`
			UsePathStyle *bool   `yaml:"usePathStyle"`
		} `yaml:"s3"`
	} `yaml:"artifacts"`
	Log struct {
		Level *string `yaml:"level"`
	} `yaml:"log"`
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}

	setString(&c.BrowserType, fc.Browser.Type)
	setBool(&c.Headless, fc.Browser.Headless)
	setFloat(&c.SlowMo, fc.Browser.SlowMo)
	setFloat(&c.TimeoutMS, fc.Browser.TimeoutMS)
	setBool(&c.InstallBrowser, fc.Browser.Install)
	setString(&c.LoginPageURL, fc.BaseURLs.LoginPage)
	setBool(&c.SaveTracesOnPass, fc.Tracing.SaveOnPass)
	setString(&c.TracesPath, fc.Tracing.TracesPath)
	setString(&c.DownloadsPath, fc.Downloads.Path)
	setBool(&c.RecordVideo, fc.Video.Record)
	setString(&c.VideoDir, fc.Video.Dir)
	if err := setDuration(&c.VideoSettleTimeout, fc.Video.SettleTimeout); err != nil {
		return fmt.Errorf("video.settleTimeout: %w", err)
	}
	if err := setDuration(&c.VideoSettleInterval, fc.Video.SettleInterval); err != nil {
		return fmt.Errorf("video.settleInterval: %w", err)
	}
	setString(&c.ReportsPath, fc.Reports.Path)
	setBool(&c.ScreenshotOnSuccess, fc.Screenshots.OnSuccess)
	setBool(&c.ScreenshotOnFailure, fc.Screenshots.OnFailure)
	setString(&c.ScreenshotsDir, fc.Screenshots.Dir)
	setString(&c.ArtifactsBucket, fc.Artifacts.S3.Bucket)
	setString(&c.ArtifactsEndpoint, fc.Artifacts.S3.Endpoint)
	setString(&c.ArtifactsRegion, fc.Artifacts.S3.Region)
	setString(&c.ArtifactsPrefix, fc.Artifacts.S3.Prefix)
	setBool(&c.ArtifactsUsePathStyle, fc.Artifacts.S3.UsePathStyle)
	setString(&c.LogLevel, fc.Log.Level)

	c.Source = path
	return nil
}

func setString(dst *string, v *string) {
	if v != nil && strings.TrimSpace(*v) != "" {
		*dst = strings.TrimSpace(*v)
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string) error {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(*v))
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

// Helper functions for parsing environment variables

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseFloat64OrDefault(key string, defaultValue float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
