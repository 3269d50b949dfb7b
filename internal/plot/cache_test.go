package plot

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestCacheStoreLoadRemove(t *testing.T) {
	c := NewCache(filepath.Join(t.TempDir(), "plots"))
	if _, ok := c.Load("run1", 0, 1); ok {
		t.Fatal("empty cache should miss")
	}
	if err := c.Store("run1", 0, 1, pngMagic); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := c.Store("run1", 2, 3, pngMagic); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := c.Store("run2", 0, 1, pngMagic); err != nil {
		t.Fatalf("Store: %v", err)
	}
	b, ok := c.Load("run1", 0, 1)
	if !ok || !bytes.Equal(b, pngMagic) {
		t.Fatalf("expected stored bytes, got %v %v", b, ok)
	}

	if err := c.Remove("run1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := c.Load("run1", 2, 3); ok {
		t.Error("run1 plots should be gone")
	}
	if _, ok := c.Load("run2", 0, 1); !ok {
		t.Error("other runs must keep their plots")
	}
}

func TestNilCacheIsNoop(t *testing.T) {
	var c *Cache
	if err := c.Store("r", 0, 1, pngMagic); err != nil {
		t.Errorf("nil Store: %v", err)
	}
	if _, ok := c.Load("r", 0, 1); ok {
		t.Error("nil cache should miss")
	}
	if err := c.Remove("r"); err != nil {
		t.Errorf("nil Remove: %v", err)
	}
}
