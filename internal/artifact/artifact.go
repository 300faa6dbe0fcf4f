// Package artifact names and places the files a scenario leaves behind:
// traces, screenshots and videos, plus the engine's download directory.
//
// Every file name has the shape {title}_{yyyyMMdd_HHmmss}_{outcome}.{ext}
// where title is the scenario title with everything outside [A-Za-z0-9_]
// deleted. Two scenarios with the same sanitized title finishing in the same
// second produce the same name; the later one overwrites the earlier.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Kind tags an artifact category.
type Kind string

const (
	KindTrace      Kind = "trace"
	KindScreenshot Kind = "screenshot"
	KindVideo      Kind = "video"
	KindDownload   Kind = "download"
)

// Ext returns the file extension for kind, without the dot. Downloads keep
// whatever name the engine gives them.
func (k Kind) Ext() string {
	switch k {
	case KindTrace:
		return "zip"
	case KindScreenshot:
		return "png"
	case KindVideo:
		return "webm"
	default:
		return ""
	}
}

// ContentType returns the MIME type used when uploading kind.
func (k Kind) ContentType() string {
	switch k {
	case KindTrace:
		return "application/zip"
	case KindScreenshot:
		return "image/png"
	case KindVideo:
		return "video/webm"
	default:
		return "application/octet-stream"
	}
}

// Outcome is a scenario's terminal result.
type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
)

// TimestampLayout renders the yyyyMMdd_HHmmss shape; lexical order equals
// chronological order.
const TimestampLayout = "20060102_150405"

// Sanitize deletes every rune outside [A-Za-z0-9_].
func Sanitize(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FileName builds {sanitized}_{timestamp}_{outcome}.{ext}.
func FileName(title string, ts time.Time, outcome Outcome, kind Kind) string {
	return fmt.Sprintf("%s_%s_%s.%s", Sanitize(title), ts.Format(TimestampLayout), outcome, kind.Ext())
}

// Layout maps artifact kinds to directories under Root. Category dirs that
// are absolute are used as-is.
type Layout struct {
	Root           string
	TracesDir      string
	ScreenshotsDir string
	VideosDir      string
	DownloadsDir   string
}

// Dir returns the directory for kind.
func (l Layout) Dir(kind Kind) string {
	var sub string
	switch kind {
	case KindTrace:
		sub = l.TracesDir
	case KindScreenshot:
		sub = l.ScreenshotsDir
	case KindVideo:
		sub = l.VideosDir
	case KindDownload:
		sub = l.DownloadsDir
	}
	if filepath.IsAbs(sub) {
		return filepath.Clean(sub)
	}
	return filepath.Join(l.Root, sub)
}

// Path returns the full path of the artifact for one scenario.
func (l Layout) Path(kind Kind, title string, outcome Outcome, ts time.Time) string {
	return l.PathIn(l.Dir(kind), kind, title, outcome, ts)
}

// PathIn is Path with an explicit directory. Videos are renamed next to
// wherever the engine wrote them.
func (l Layout) PathIn(dir string, kind Kind, title string, outcome Outcome, ts time.Time) string {
	return filepath.Join(dir, FileName(title, ts, outcome, kind))
}

// EnsureDir creates the directory for kind if it does not exist yet.
func (l Layout) EnsureDir(fs afero.Fs, kind Kind) error {
	dir := l.Dir(kind)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s dir %s: %w", kind, dir, err)
	}
	return nil
}

// Exists reports whether a regular file is present at path.
func Exists(fs afero.Fs, path string) bool {
	info, err := fs.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// Move renames src to dst on fs. A missing src is reported as os.ErrNotExist.
func Move(fs afero.Fs, src, dst string) error {
	if !Exists(fs, src) {
		return fmt.Errorf("move %s: %w", src, os.ErrNotExist)
	}
	if err := fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(dst), err)
	}
	if err := fs.Rename(src, dst); err != nil {
		return fmt.Errorf("move %s -> %s: %w", src, dst, err)
	}
	return nil
}
