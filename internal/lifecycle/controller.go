// Package lifecycle drives each scenario through NotStarted -> Active ->
// TornDown on top of the run's shared browser context.
//
// Setup starts tracing and opens the scenario page. Teardown captures what
// the outcome calls for (screenshot, trace, video), closes the page and
// stops tracing exactly once, whatever individual captures do. Scenarios
// must run one at a time; the controller holds a single current slot.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/playwright-community/playwright-go"
	"github.com/spf13/afero"

	"github.com/kuitang/playwright-bdd/internal/artifact"
	"github.com/kuitang/playwright-bdd/internal/config"
	"github.com/kuitang/playwright-bdd/internal/errs"
	"github.com/kuitang/playwright-bdd/internal/obs"
)

var errVideoNotReady = errors.New("video file not written yet")

// State of one scenario.
type State int

const (
	StateNotStarted State = iota
	StateActive
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateActive:
		return "active"
	case StateTornDown:
		return "torn_down"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Scenario is one scenario's run through the controller.
type Scenario struct {
	Title     string
	SafeTitle string
	StartedAt time.Time
	Outcome   artifact.Outcome
	Page      playwright.Page

	state State
}

// State returns where the scenario is in its lifecycle.
func (s *Scenario) State() State { return s.state }

// Report names the artifacts a teardown wrote. Empty paths were not written.
type Report struct {
	Outcome        artifact.Outcome
	Timestamp      time.Time
	TracePath      string
	ScreenshotPath string
	VideoPath      string
	Published      []string
}

// Option customizes a Controller.
type Option func(*Controller)

// WithFs sets the filesystem artifacts are checked and moved on.
func WithFs(fs afero.Fs) Option {
	return func(c *Controller) { c.fs = fs }
}

// WithPublisher uploads every saved artifact after teardown.
func WithPublisher(p artifact.Publisher) Option {
	return func(c *Controller) { c.publisher = p }
}

// WithClock overrides the time source used for artifact timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller runs scenario setup and teardown against one shared context.
type Controller struct {
	shared    playwright.BrowserContext
	cfg       *config.Config
	layout    artifact.Layout
	fs        afero.Fs
	publisher artifact.Publisher
	now       func() time.Time

	mu      sync.Mutex
	current *Scenario
	tracing bool
}

// New returns a controller for the shared context.
func New(shared playwright.BrowserContext, cfg *config.Config, layout artifact.Layout, opts ...Option) *Controller {
	c := &Controller{
		shared: shared,
		cfg:    cfg,
		layout: layout,
		fs:     afero.NewOsFs(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current returns the active scenario, or nil between scenarios.
func (c *Controller) Current() *Scenario {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Setup moves a new scenario to Active: directories, tracing, page.
func (c *Controller) Setup(ctx context.Context, title string) (*Scenario, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		return nil, errs.New(errs.FailedPrecondition,
			fmt.Sprintf("scenario %q is still active", c.current.Title))
	}
	if c.tracing {
		return nil, errs.New(errs.FailedPrecondition, "tracing already started on the shared context")
	}

	sc := &Scenario{
		Title:     title,
		SafeTitle: artifact.Sanitize(title),
		StartedAt: c.now(),
		Outcome:   artifact.OutcomePending,
		state:     StateNotStarted,
	}
	logger := obs.From(ctx).With("pkg", "lifecycle")

	if err := c.ensureDirs(); err != nil {
		return nil, errs.Wrap(errs.Internal, "prepare artifact dirs", err)
	}

	err := c.shared.Tracing().Start(playwright.TracingStartOptions{
		Screenshots: playwright.Bool(true),
		Snapshots:   playwright.Bool(true),
		Sources:     playwright.Bool(true),
		Title:       playwright.String(title),
	})
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "start tracing", err)
	}
	c.tracing = true

	page, err := c.shared.NewPage()
	if err != nil {
		// keep start/stop paired; nothing was recorded worth keeping
		if stopErr := c.stopTracing(); stopErr != nil {
			logger.Warn("discard trace after page failure", "error", stopErr)
		}
		return nil, errs.Wrap(errs.Internal, "open scenario page", err)
	}

	sc.Page = page
	sc.state = StateActive
	c.current = sc
	logger.Info("scenario started", "title", title)
	return sc, nil
}

func (c *Controller) ensureDirs() error {
	kinds := []artifact.Kind{artifact.KindTrace}
	if c.cfg.ScreenshotOnSuccess || c.cfg.ScreenshotOnFailure {
		kinds = append(kinds, artifact.KindScreenshot)
	}
	if c.cfg.RecordVideo {
		kinds = append(kinds, artifact.KindVideo)
	}
	for _, kind := range kinds {
		if err := c.layout.EnsureDir(c.fs, kind); err != nil {
			return err
		}
	}
	return nil
}

// Teardown moves sc to TornDown. scenarioErr is the scenario's terminal
// error; nil means passed. Capture failures are logged and joined into the
// returned error; none of them stops the remaining cleanup.
func (c *Controller) Teardown(ctx context.Context, sc *Scenario, scenarioErr error) (Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sc == nil || sc.state != StateActive {
		return Report{}, errs.New(errs.FailedPrecondition, "teardown of a scenario that is not active")
	}

	outcome := artifact.OutcomePassed
	if scenarioErr != nil {
		outcome = artifact.OutcomeFailed
	}
	report := Report{Outcome: outcome, Timestamp: c.now()}
	logger := obs.From(ctx).With("pkg", "lifecycle", "outcome", string(outcome))

	var errList []error
	record := func(step string, err error) {
		if err != nil {
			logger.Error("teardown step failed", "step", step, "error", err)
			errList = append(errList, fmt.Errorf("%s: %w", step, err))
		}
	}

	shoot := c.cfg.ScreenshotOnSuccess
	if outcome == artifact.OutcomeFailed {
		shoot = c.cfg.ScreenshotOnFailure
	}
	if shoot {
		path := c.layout.Path(artifact.KindScreenshot, sc.Title, outcome, report.Timestamp)
		err := isolate(func() error { return c.screenshot(sc.Page, path) })
		record("screenshot", err)
		if err == nil {
			report.ScreenshotPath = path
			logger.Info("screenshot saved", "path", path)
		}
	}

	if outcome == artifact.OutcomeFailed || c.cfg.SaveTracesOnPass {
		path := c.layout.Path(artifact.KindTrace, sc.Title, outcome, report.Timestamp)
		record("trace dir", c.layout.EnsureDir(c.fs, artifact.KindTrace))
		err := isolate(func() error { return c.stopTracing(path) })
		record("trace", err)
		if err == nil {
			report.TracePath = path
			logger.Info("trace saved", "path", path)
		}
	} else {
		record("trace", isolate(func() error { return c.stopTracing() }))
		logger.Info("no trace saved")
	}

	if c.cfg.RecordVideo {
		videoPath, err := c.videoSource(sc.Page)
		record("video path", err)
		record("close page", isolate(func() error { return sc.Page.Close() }))
		if videoPath != "" {
			dst, err := c.renameVideo(ctx, videoPath, sc.Title, outcome, report.Timestamp)
			switch {
			case errors.Is(err, errVideoNotReady):
				logger.Warn("video not found, rename skipped", "path", videoPath)
			case err != nil:
				record("video rename", err)
			default:
				report.VideoPath = dst
				logger.Info("video saved", "path", dst)
			}
		}
	} else {
		record("close page", isolate(func() error { return sc.Page.Close() }))
	}

	report.Published = c.publish(ctx, logger, report)

	sc.Outcome = outcome
	sc.state = StateTornDown
	if c.current == sc {
		c.current = nil
	}
	logger.Info("scenario finished", "title", sc.Title)
	return report, errors.Join(errList...)
}

func (c *Controller) screenshot(page playwright.Page, path string) error {
	_, err := page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	return err
}

// stopTracing stops tracing once, writing to path when one is given. The
// controller treats tracing as stopped even if the engine reports an error.
func (c *Controller) stopTracing(path ...string) error {
	if !c.tracing {
		return nil
	}
	c.tracing = false
	return c.shared.Tracing().Stop(path...)
}

// videoSource returns where the engine is writing the page's video. It must
// be read before the page closes.
func (c *Controller) videoSource(page playwright.Page) (string, error) {
	var path string
	err := isolate(func() error {
		video := page.Video()
		if video == nil {
			return nil
		}
		p, err := video.Path()
		path = p
		return err
	})
	return path, err
}

// renameVideo waits for the engine to finish writing src, then moves it to
// the scenario name in the same directory. Returns errVideoNotReady when the
// file never showed up within the settle window.
func (c *Controller) renameVideo(ctx context.Context, src, title string, outcome artifact.Outcome, ts time.Time) (string, error) {
	interval := c.cfg.VideoSettleInterval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	retries := uint64(c.cfg.VideoSettleTimeout / interval)

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), retries), ctx)
	err := backoff.Retry(func() error {
		if artifact.Exists(c.fs, src) {
			return nil
		}
		return errVideoNotReady
	}, b)
	if err != nil {
		return "", errVideoNotReady
	}

	dst := c.layout.PathIn(filepath.Dir(src), artifact.KindVideo, title, outcome, ts)
	if err := artifact.Move(c.fs, src, dst); err != nil {
		return "", err
	}
	return dst, nil
}

func (c *Controller) publish(ctx context.Context, logger *slog.Logger, report Report) []string {
	if c.publisher == nil {
		return nil
	}
	var locations []string
	for _, item := range []struct {
		kind artifact.Kind
		path string
	}{
		{artifact.KindTrace, report.TracePath},
		{artifact.KindScreenshot, report.ScreenshotPath},
		{artifact.KindVideo, report.VideoPath},
	} {
		if item.path == "" {
			continue
		}
		location, err := c.publisher.Publish(ctx, item.kind, item.path)
		if err != nil {
			logger.Warn("artifact upload failed", "kind", string(item.kind), "path", item.path, "error", err)
			continue
		}
		logger.Info("artifact uploaded", "kind", string(item.kind), "location", location)
		locations = append(locations, location)
	}
	return locations
}

// isolate runs one capture step, turning an engine panic into an error.
func isolate(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
