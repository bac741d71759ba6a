package intake

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// guard confines file reads to one directory. An empty directory disables
// the check, as does a directory that does not exist yet.
type guard struct {
	dir string
}

func newGuard(dir string) *guard {
	return &guard{dir: dir}
}

// resolve returns the absolute path for p. Relative paths are taken from the
// guarded directory; symlinks must land inside it too.
func (g *guard) resolve(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if g.dir != "" && !filepath.IsAbs(p) {
		p = filepath.Join(g.dir, p)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", p, err)
	}
	if g.dir == "" {
		return abs, nil
	}
	if _, err := os.Stat(g.dir); os.IsNotExist(err) {
		return abs, nil
	}

	dir, err := filepath.Abs(g.dir)
	if err != nil {
		return "", fmt.Errorf("resolve input directory: %w", err)
	}
	dir = filepath.Clean(dir)
	realDir := dir
	if r, err := filepath.EvalSymlinks(dir); err == nil {
		realDir = r
	}

	target := abs
	if r, err := filepath.EvalSymlinks(abs); err == nil {
		target = r
	}

	if !(within(abs, dir) || within(abs, realDir)) || !(within(target, dir) || within(target, realDir)) {
		return "", fmt.Errorf("%s: %w", p, ErrOutsideDirectory)
	}
	return abs, nil
}

func within(p, dir string) bool {
	if p == dir {
		return true
	}
	prefix := dir
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(p, prefix)
}
