package text

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// CorpusExtensions lists the file types LoadCorpus reads.
var CorpusExtensions = map[string]bool{
	".txt": true, ".md": true, ".markdown": true, ".text": true,
}

// CorpusStats summarizes a corpus walk.
type CorpusStats struct {
	Documents int `json:"documents"`
	Tokens    int `json:"tokens"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

// LoadCorpus walks root and reads every text file up to maxSize bytes into a
// Document named by its path relative to root. Unreadable files are counted
// and skipped.
func LoadCorpus(root string, maxSize int64) ([]Document, CorpusStats, error) {
	var stats CorpusStats
	info, err := os.Stat(root)
	if err != nil {
		return nil, stats, fmt.Errorf("stat corpus: %w", err)
	}
	if !info.IsDir() {
		return nil, stats, fmt.Errorf("corpus %s is not a directory", root)
	}

	var docs []Document
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("Corpus walk error", "path", path, "error", err)
			stats.Errors++
			return nil
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || !CorpusExtensions[strings.ToLower(filepath.Ext(path))] {
			stats.Skipped++
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			stats.Errors++
			return nil
		}
		if maxSize > 0 && fi.Size() > maxSize {
			slog.Info("Skipping large file", "path", path, "size", fi.Size())
			stats.Skipped++
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("Failed to read document", "path", path, "error", err)
			stats.Errors++
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		doc := NewDocument(rel, string(b))
		stats.Documents++
		stats.Tokens += CountTokens(doc.Text)
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, stats, err
	}
	return docs, stats, nil
}
