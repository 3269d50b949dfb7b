package plot

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Cache keeps rendered run plots on disk under Dir. A completed run never
// changes, so a stored file stays valid until the run is removed.
type Cache struct {
	Dir string
}

func NewCache(dir string) *Cache {
	return &Cache{Dir: dir}
}

func (c *Cache) path(runID string, x, y int) string {
	return filepath.Join(c.Dir, fmt.Sprintf("%s-%d-%d.png", runID, x, y))
}

// Load returns the stored plot of runID over features x and y, if any.
func (c *Cache) Load(runID string, x, y int) ([]byte, bool) {
	if c == nil || c.Dir == "" {
		return nil, false
	}
	b, err := os.ReadFile(c.path(runID, x, y))
	if err != nil {
		return nil, false
	}
	return b, true
}

// Store writes b through a temporary file so readers never see a partial
// image.
func (c *Cache) Store(runID string, x, y int, b []byte) error {
	if c == nil || c.Dir == "" {
		return nil
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return fmt.Errorf("create plots dir: %w", err)
	}
	dst := c.path(runID, x, y)
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write plot: %w", err)
	}
	return os.Rename(tmp, dst)
}

// Remove deletes every stored plot of runID.
func (c *Cache) Remove(runID string) error {
	if c == nil || c.Dir == "" {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(c.Dir, runID+"-*.png"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}
