package scriptfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sumobridge/cli/internal/projectname"
)

const (
	DefaultPrefix = "sumo"
	scriptMode    = 0o755
	maxAttempts   = 1000
)

// Writer persists received scripts as executable files. Files are never
// removed by the bridge; the OS temp cleaner owns them.
type Writer struct {
	Dir    string
	Prefix string
	Now    func() time.Time
}

func NewWriter(dir, prefix string) *Writer {
	return &Writer{Dir: dir, Prefix: prefix}
}

// Write stores content under a fresh <prefix>-<project>-<millis>.sh path.
func (w *Writer) Write(project, content string) (string, error) {
	dir := w.dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	stem := projectname.Sanitize(project)
	ts := w.now().UnixMilli()
	for i := 0; i < maxAttempts; i++ {
		path := filepath.Join(dir, fmt.Sprintf("%s-%s-%d.sh", w.prefix(), stem, ts+int64(i)))
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, scriptMode)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.WriteString(content); err != nil {
			_ = f.Close()
			return path, err
		}
		if err := f.Close(); err != nil {
			return path, err
		}
		// umask may strip the execute bit at create time.
		if err := os.Chmod(path, scriptMode); err != nil {
			return path, err
		}
		return path, nil
	}
	return "", fmt.Errorf("no free script name for %q after %d attempts", stem, maxAttempts)
}

func (w *Writer) dir() string {
	if w == nil || strings.TrimSpace(w.Dir) == "" {
		return os.TempDir()
	}
	return strings.TrimSpace(w.Dir)
}

func (w *Writer) prefix() string {
	if w == nil || strings.TrimSpace(w.Prefix) == "" {
		return DefaultPrefix
	}
	return projectname.Sanitize(strings.TrimSpace(w.Prefix))
}

func (w *Writer) now() time.Time {
	if w == nil || w.Now == nil {
		return time.Now()
	}
	return w.Now()
}
