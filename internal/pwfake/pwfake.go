// Package pwfake provides in-memory stand-ins for the playwright-go
// interfaces the harness drives. Each fake embeds the real interface and
// overrides only what the harness calls; anything else panics on the nil
// embedded value, which flags unexpected engine use in tests.
//
// Files the engine would write (screenshots, traces, videos) land in an
// afero.Fs so tests can assert on them.
package pwfake

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/playwright-community/playwright-go"
	"github.com/spf13/afero"
)

// Recorder keeps the ordered list of engine calls made through the fakes.
type Recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *Recorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

// Events returns a copy of the recorded calls.
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// Count returns how many recorded calls equal event.
func (r *Recorder) Count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == event {
			n++
		}
	}
	return n
}

// =============================================================================
// Driver and browser
// =============================================================================

// Driver stands in for a running *playwright.Playwright.
type Driver struct {
	Rec     *Recorder
	Types   map[string]*BrowserType
	StopErr error
}

// NewDriver returns a driver with chromium, firefox and webkit engines that
// all write into fs.
func NewDriver(fs afero.Fs) *Driver {
	rec := &Recorder{}
	d := &Driver{Rec: rec, Types: map[string]*BrowserType{}}
	for _, name := range []string{"chromium", "firefox", "webkit"} {
		d.Types[name] = &BrowserType{
			NameValue: name,
			Rec:       rec,
			Browser: &Browser{
				Rec:     rec,
				Context: &Context{FS: fs, Rec: rec, Trace: &Tracing{FS: fs, Rec: rec}},
			},
		}
	}
	return d
}

// BrowserType returns the engine registered under kind, or nil.
func (d *Driver) BrowserType(kind string) playwright.BrowserType {
	bt, ok := d.Types[kind]
	if !ok {
		return nil
	}
	return bt
}

func (d *Driver) Stop() error {
	d.Rec.add("driver.stop")
	return d.StopErr
}

// BrowserType fakes one engine.
type BrowserType struct {
	playwright.BrowserType

	NameValue     string
	Rec           *Recorder
	Browser       *Browser
	LaunchErr     error
	LaunchOptions []playwright.BrowserTypeLaunchOptions
}

func (b *BrowserType) Name() string { return b.NameValue }

func (b *BrowserType) Launch(options ...playwright.BrowserTypeLaunchOptions) (playwright.Browser, error) {
	b.Rec.add("launch %s", b.NameValue)
	b.LaunchOptions = append(b.LaunchOptions, options...)
	if b.LaunchErr != nil {
		return nil, b.LaunchErr
	}
	return b.Browser, nil
}

// Browser fakes a launched browser process.
type Browser struct {
	playwright.Browser

	Rec            *Recorder
	Context        *Context
	NewContextErr  error
	CloseErr       error
	ContextOptions []playwright.BrowserNewContextOptions
}

func (b *Browser) NewContext(options ...playwright.BrowserNewContextOptions) (playwright.BrowserContext, error) {
	b.Rec.add("browser.new_context")
	b.ContextOptions = append(b.ContextOptions, options...)
	if b.NewContextErr != nil {
		return nil, b.NewContextErr
	}
	for _, opt := range options {
		if opt.RecordVideo != nil {
			b.Context.VideoDir = opt.RecordVideo.Dir
		}
	}
	return b.Context, nil
}

func (b *Browser) Close(options ...playwright.BrowserCloseOptions) error {
	b.Rec.add("browser.close")
	return b.CloseErr
}

// =============================================================================
// Context, tracing, pages
// =============================================================================

// Context fakes the shared browsing context.
type Context struct {
	playwright.BrowserContext

	FS             afero.Fs
	Rec            *Recorder
	Trace          *Tracing
	Opened         []*Page
	NewPageErr     error
	DefaultTimeout float64

	// VideoDir is set when the context was created with RecordVideo.
	VideoDir string
	// SkipVideoFile makes pages report a video path but never write it.
	SkipVideoFile bool
	// ScreenshotErr is copied onto every page this context opens.
	ScreenshotErr error
	// Jar is what Cookies returns, regardless of urls.
	Jar []playwright.Cookie
}

func (c *Context) NewPage() (playwright.Page, error) {
	c.Rec.add("context.new_page")
	if c.NewPageErr != nil {
		return nil, c.NewPageErr
	}
	p := &Page{FS: c.FS, Rec: c.Rec, Ctx: c, ScreenshotErr: c.ScreenshotErr}
	if c.VideoDir != "" {
		p.VideoHandle = &Video{
			FS:        c.FS,
			PathValue: filepath.Join(c.VideoDir, fmt.Sprintf("page-%d.webm", len(c.Opened)+1)),
			Pending:   !c.SkipVideoFile,
		}
	}
	c.Opened = append(c.Opened, p)
	return p, nil
}

func (c *Context) Tracing() playwright.Tracing { return c.Trace }

func (c *Context) Cookies(urls ...string) ([]playwright.Cookie, error) {
	return append([]playwright.Cookie(nil), c.Jar...), nil
}

func (c *Context) SetDefaultTimeout(timeout float64) { c.DefaultTimeout = timeout }

func (c *Context) Close(options ...playwright.BrowserContextCloseOptions) error {
	c.Rec.add("context.close")
	return nil
}

// LastPage returns the most recently opened page, or nil.
func (c *Context) LastPage() *Page {
	if len(c.Opened) == 0 {
		return nil
	}
	return c.Opened[len(c.Opened)-1]
}

// Tracing fakes context tracing. Stop with a path writes a placeholder zip.
type Tracing struct {
	playwright.Tracing

	FS       afero.Fs
	Rec      *Recorder
	Active   bool
	Starts   []playwright.TracingStartOptions
	StopArgs [][]string
	StartErr error
	StopErr  error
}

func (t *Tracing) Start(options ...playwright.TracingStartOptions) error {
	t.Rec.add("tracing.start")
	if t.StartErr != nil {
		return t.StartErr
	}
	if t.Active {
		return errors.New("tracing has been already started")
	}
	t.Starts = append(t.Starts, options...)
	t.Active = true
	return nil
}

func (t *Tracing) Stop(path ...string) error {
	t.StopArgs = append(t.StopArgs, append([]string(nil), path...))
	if len(path) > 0 {
		t.Rec.add("tracing.stop %s", filepath.Base(path[0]))
	} else {
		t.Rec.add("tracing.stop")
	}
	if t.StopErr != nil {
		return t.StopErr
	}
	if !t.Active {
		return errors.New("must start tracing before stopping")
	}
	t.Active = false
	if len(path) > 0 && path[0] != "" {
		return writeInExistingDir(t.FS, path[0], []byte("PK\x03\x04trace"))
	}
	return nil
}

// Page fakes a scenario page.
type Page struct {
	playwright.Page

	FS            afero.Fs
	Rec           *Recorder
	Ctx           *Context
	VideoHandle   *Video
	ScreenshotErr error
	CloseErr      error
	Closed        int
	Screenshots   []playwright.PageScreenshotOptions
}

func (p *Page) Screenshot(options ...playwright.PageScreenshotOptions) ([]byte, error) {
	p.Rec.add("page.screenshot")
	p.Screenshots = append(p.Screenshots, options...)
	if p.ScreenshotErr != nil {
		return nil, p.ScreenshotErr
	}
	data := []byte("\x89PNG\r\n")
	for _, opt := range options {
		if opt.Path != nil {
			if err := writeInExistingDir(p.FS, *opt.Path, data); err != nil {
				return nil, err
			}
		}
	}
	return data, nil
}

func (p *Page) Close(options ...playwright.PageCloseOptions) error {
	p.Rec.add("page.close")
	p.Closed++
	if p.VideoHandle != nil && p.VideoHandle.Pending {
		p.VideoHandle.Pending = false
		_ = p.FS.MkdirAll(filepath.Dir(p.VideoHandle.PathValue), 0o755)
		_ = afero.WriteFile(p.FS, p.VideoHandle.PathValue, []byte("webm"), 0o644)
	}
	return p.CloseErr
}

func (p *Page) IsClosed() bool { return p.Closed > 0 }

func (p *Page) Context() playwright.BrowserContext { return p.Ctx }

// Video returns nil when the context does not record video.
func (p *Page) Video() playwright.Video {
	if p.VideoHandle == nil {
		return nil
	}
	return p.VideoHandle
}

// Video fakes a page recording. The file is written when the page closes
// unless Pending is false from the start.
type Video struct {
	playwright.Video

	FS        afero.Fs
	PathValue string
	PathErr   error
	Pending   bool
}

func (v *Video) Path() (string, error) {
	if v.PathErr != nil {
		return "", v.PathErr
	}
	return v.PathValue, nil
}

func writeInExistingDir(fs afero.Fs, path string, data []byte) error {
	ok, err := afero.DirExists(fs, filepath.Dir(path))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("open %s: %w", path, os.ErrNotExist)
	}
	return afero.WriteFile(fs, path, data, 0o644)
}
