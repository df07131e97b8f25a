package bridgeclient

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileDownloader saves scripts the way a browser download would: into a
// downloads directory, never overwriting an existing file. When Dir is
// unusable the Fallbacks are tried in order; nil Fallbacks means the user's
// Downloads folder and then the OS temp dir.
type FileDownloader struct {
	Dir       string
	Fallbacks []string
}

func DefaultDownloadDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return os.TempDir()
	}
	return filepath.Join(home, "Downloads")
}

func (d *FileDownloader) Save(fileName, content string) (string, error) {
	fileName = filepath.Base(strings.TrimSpace(fileName))
	if fileName == "" || fileName == "." || fileName == string(filepath.Separator) {
		fileName = "script.sh"
	}
	fallbacks := d.Fallbacks
	if fallbacks == nil {
		fallbacks = []string{DefaultDownloadDir(), os.TempDir()}
	}
	dirs := append([]string{d.Dir}, fallbacks...)
	var errs error
	tried := map[string]bool{}
	for _, dir := range dirs {
		dir = strings.TrimSpace(dir)
		if dir == "" || tried[dir] {
			continue
		}
		tried[dir] = true
		path, err := saveUnique(dir, fileName, content)
		if err == nil {
			return path, nil
		}
		errs = errors.Join(errs, err)
	}
	if errs == nil {
		errs = errors.New("no download directory configured")
	}
	return "", errs
}

func saveUnique(dir, fileName, content string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	ext := filepath.Ext(fileName)
	stem := strings.TrimSuffix(fileName, ext)
	for i := 0; i < 1000; i++ {
		name := fileName
		if i > 0 {
			name = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.WriteString(content); err != nil {
			_ = f.Close()
			return "", err
		}
		return path, f.Close()
	}
	return "", fmt.Errorf("no free file name for %s in %s", fileName, dir)
}
