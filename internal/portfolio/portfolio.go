// Package portfolio loads the candidate documents scored against postings.
package portfolio

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/spigell/joe-enricher/internal/utils"
)

// Document names looked up in the portfolio directory, in combination order.
var Documents = []string{"cv", "research_statement", "teaching_statement"}

var extensions = []string{".md", ".txt"}

// Portfolio is the cleaned candidate text and its content hash.
type Portfolio struct {
	CombinedText string
	Hash         string
	// Sources maps each document name to the file it was read from.
	Sources map[string]string
}

// Empty reports whether there is nothing to score against.
func (p *Portfolio) Empty() bool {
	return p == nil || strings.TrimSpace(p.CombinedText) == ""
}

// Load reads the portfolio documents from dir. Missing documents are skipped;
// an empty result is not an error.
func Load(dir string, logger *zap.Logger) (*Portfolio, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "portfolio directory %s", dir)
	}
	if !info.IsDir() {
		return nil, errors.Newf("portfolio path %s is not a directory", dir)
	}

	p := &Portfolio{Sources: make(map[string]string)}
	var parts []string
	for _, name := range Documents {
		path, text, err := readDocument(dir, name)
		if err != nil {
			return nil, err
		}
		if path == "" {
			logger.Warn("portfolio document not found", zap.String("document", name), zap.String("dir", dir))
			continue
		}
		if strings.TrimSpace(text) == "" {
			logger.Warn("portfolio document is empty", zap.String("path", path))
			continue
		}
		p.Sources[name] = path
		parts = append(parts, text)
	}

	p.CombinedText = utils.CleanText(strings.Join(parts, "\n\n"))
	p.Hash = Hash(p.CombinedText)

	logger.Info("portfolio loaded",
		zap.Int("documents", len(p.Sources)),
		zap.Int("chars", len(p.CombinedText)),
		zap.String("hash", shortHash(p.Hash)),
	)
	return p, nil
}

// Hash is the SHA-256 hex digest of the combined text.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func readDocument(dir, name string) (string, string, error) {
	for _, ext := range extensions {
		path := filepath.Join(dir, name+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", "", errors.Wrapf(err, "read %s", path)
		}
		return path, string(data), nil
	}
	return "", "", nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
