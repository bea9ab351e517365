// Package faq loads the ordered question/answer corpus the chatbot answers from.
package faq

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMalformedCorpus is returned when the corpus file exists but cannot be parsed.
var ErrMalformedCorpus = errors.New("malformed faq corpus")

// Entry is a single FAQ question and its answer.
type Entry struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// Corpus is the ordered FAQ list. Lookups are first-match-wins.
type Corpus []Entry

type document struct {
	FAQs []Entry `json:"faqs" yaml:"faqs"`
}

// Load reads a corpus from a JSON or YAML file with a top-level "faqs" key.
// A missing file yields an empty corpus.
func Load(path string) (Corpus, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("FAQ file not found, starting with empty corpus", "path", path)
		return Corpus{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read faq file: %w", err)
	}

	corpus, err := Parse(data, formatFor(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	slog.Info("FAQ corpus loaded", "path", path, "entries", len(corpus))
	return corpus, nil
}

// Parse decodes a corpus document. format is "json" or "yaml".
func Parse(data []byte, format string) (Corpus, error) {
	var doc document
	var err error
	switch format {
	case "yaml":
		err = yaml.Unmarshal(data, &doc)
	default:
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCorpus, err)
	}

	corpus := make(Corpus, 0, len(doc.FAQs))
	for i, e := range doc.FAQs {
		if strings.TrimSpace(e.Question) == "" {
			slog.Warn("Skipping FAQ entry without a question", "index", i)
			continue
		}
		corpus = append(corpus, e)
	}
	return corpus, nil
}

func formatFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}
