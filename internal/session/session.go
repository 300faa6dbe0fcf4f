// Package session owns the browser process and the one browsing context
// shared by every scenario of a run. A Session is acquired once with Start
// and released once with Close; it is not safe for concurrent use.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/playwright-community/playwright-go"
	"github.com/spf13/afero"

	"github.com/kuitang/playwright-bdd/internal/artifact"
	"github.com/kuitang/playwright-bdd/internal/config"
	"github.com/kuitang/playwright-bdd/internal/errs"
	"github.com/kuitang/playwright-bdd/internal/obs"
)

// Fixed viewport and recording size for the shared context.
const (
	ViewportWidth  = 1920
	ViewportHeight = 1080
)

// Driver is the part of a running playwright driver the session needs.
type Driver interface {
	BrowserType(kind string) playwright.BrowserType
	Stop() error
}

type playwrightDriver struct {
	pw *playwright.Playwright
}

func (d *playwrightDriver) BrowserType(kind string) playwright.BrowserType {
	switch kind {
	case config.BrowserFirefox:
		return d.pw.Firefox
	case config.BrowserWebKit:
		return d.pw.WebKit
	default:
		return d.pw.Chromium
	}
}

func (d *playwrightDriver) Stop() error {
	return d.pw.Stop()
}

// Option customizes Start.
type Option func(*options)

type options struct {
	driver Driver
	fs     afero.Fs
}

// WithDriver uses d instead of starting the playwright driver.
func WithDriver(d Driver) Option {
	return func(o *options) { o.driver = d }
}

// WithFs sets the filesystem used to create the downloads directory.
func WithFs(fs afero.Fs) Option {
	return func(o *options) { o.fs = fs }
}

// Session is one launched browser with its shared context.
type Session struct {
	driver  Driver
	browser playwright.Browser
	shared  playwright.BrowserContext
	engine  string
	layout  artifact.Layout

	closeOnce sync.Once
	closeErr  error
}

// Start launches the configured engine and opens the shared context. Any
// failure releases what was acquired and returns an errs.Unavailable error.
func Start(ctx context.Context, cfg *config.Config, opts ...Option) (*Session, error) {
	o := options{fs: afero.NewOsFs()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := obs.From(ctx).With("pkg", "session")

	engine, fellBack := cfg.NormalizedBrowserType()
	if fellBack {
		logger.Warn("unknown browser type, using default", "browser_type", cfg.BrowserType, "engine", engine)
	}

	driver := o.driver
	if driver == nil {
		d, err := runDriver(cfg, engine)
		if err != nil {
			return nil, errs.Wrap(errs.Unavailable, "start playwright driver", err)
		}
		driver = d
	}

	s := &Session{driver: driver, engine: engine, layout: LayoutFor(cfg)}

	bt := driver.BrowserType(engine)
	if bt == nil {
		return nil, s.abort(errs.New(errs.Unavailable, fmt.Sprintf("browser engine %q not available", engine)))
	}

	if err := s.layout.EnsureDir(o.fs, artifact.KindDownload); err != nil {
		return nil, s.abort(errs.Wrap(errs.Unavailable, "prepare downloads dir", err))
	}

	browser, err := bt.Launch(playwright.BrowserTypeLaunchOptions{
		Headless:      playwright.Bool(cfg.Headless),
		SlowMo:        playwright.Float(cfg.SlowMo),
		DownloadsPath: playwright.String(s.layout.Dir(artifact.KindDownload)),
	})
	if err != nil {
		return nil, s.abort(errs.Wrap(errs.Unavailable, fmt.Sprintf("launch %s", engine), err))
	}
	s.browser = browser

	shared, err := browser.NewContext(contextOptions(cfg, s.layout))
	if err != nil {
		return nil, s.abort(errs.Wrap(errs.Unavailable, "open shared browser context", err))
	}
	shared.SetDefaultTimeout(cfg.TimeoutMS)
	s.shared = shared

	logger.Info("browser session started",
		"engine", engine,
		"headless", cfg.Headless,
		"slow_mo_ms", cfg.SlowMo,
		"record_video", cfg.RecordVideo,
		"downloads", s.layout.Dir(artifact.KindDownload),
	)
	return s, nil
}

func runDriver(cfg *config.Config, engine string) (Driver, error) {
	runOpts := &playwright.RunOptions{Browsers: []string{engine}}
	if cfg.InstallBrowser {
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("install %s: %w", engine, err)
		}
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, err
	}
	return &playwrightDriver{pw: pw}, nil
}

func contextOptions(cfg *config.Config, layout artifact.Layout) playwright.BrowserNewContextOptions {
	opts := playwright.BrowserNewContextOptions{
		ColorScheme: playwright.ColorSchemeLight,
		Viewport: &playwright.Size{
			Width:  ViewportWidth,
			Height: ViewportHeight,
		},
	}
	if cfg.RecordVideo {
		opts.RecordVideo = &playwright.RecordVideo{
			Dir: layout.Dir(artifact.KindVideo),
			Size: &playwright.Size{
				Width:  ViewportWidth,
				Height: ViewportHeight,
			},
		}
	}
	return opts
}

// LayoutFor maps the configured artifact directories under ReportsPath.
func LayoutFor(cfg *config.Config) artifact.Layout {
	return artifact.Layout{
		Root:           cfg.ReportsPath,
		TracesDir:      cfg.TracesPath,
		ScreenshotsDir: cfg.ScreenshotsDir,
		VideosDir:      cfg.VideoDir,
		DownloadsDir:   cfg.DownloadsPath,
	}
}

// abort releases a partially started session and returns cause, joined with
// any release error.
func (s *Session) abort(cause error) error {
	if err := s.Close(); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// Context returns the shared browsing context.
func (s *Session) Context() playwright.BrowserContext {
	return s.shared
}

// Engine returns the launched engine name.
func (s *Session) Engine() string {
	return s.engine
}

// Layout returns the artifact directories for this run.
func (s *Session) Layout() artifact.Layout {
	return s.layout
}

// Close closes the browser, which closes the shared context, and stops the
// driver. Only the first call does anything; later calls return its result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		var errList []error
		if s.browser != nil {
			if err := s.browser.Close(); err != nil {
				errList = append(errList, fmt.Errorf("close browser: %w", err))
			}
		}
		if s.driver != nil {
			if err := s.driver.Stop(); err != nil {
				errList = append(errList, fmt.Errorf("stop playwright: %w", err))
			}
		}
		s.closeErr = errors.Join(errList...)
		obs.Pkg("session").Info("browser session closed", "engine", s.engine, "error", s.closeErr)
	})
	return s.closeErr
}
