// Package texts loads the fallback typing texts used when generation fails.
package texts

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Bank holds fallback texts keyed by time limit in minutes. It is safe for
// concurrent use; Replace swaps the whole set at once.
type Bank struct {
	mu    sync.RWMutex
	texts map[string][]string
	intn  func(n int) int
}

// NewBank builds a bank from in-memory texts. Blank entries are dropped.
func NewBank(texts map[string][]string) *Bank {
	b := &Bank{intn: rand.IntN}
	b.Replace(texts)
	return b
}

// Load reads a bank from a .json, .yaml or .yml file. A missing file yields
// an empty bank.
func Load(path string) (*Bank, error) {
	texts, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return NewBank(texts), nil
}

func readFile(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string][]string{}, nil
		}
		return nil, fmt.Errorf("failed to read texts: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes and validates bank data. ext selects the format.
func Parse(data []byte, ext string) (map[string][]string, error) {
	var texts map[string][]string
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &texts); err != nil {
			return nil, fmt.Errorf("failed to decode YAML texts: %w", err)
		}
		if err := validate(toGeneric(texts)); err != nil {
			return nil, err
		}
	default:
		var raw any
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to decode JSON texts: %w", err)
		}
		if err := validate(raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &texts); err != nil {
			return nil, fmt.Errorf("failed to decode JSON texts: %w", err)
		}
	}
	if texts == nil {
		texts = map[string][]string{}
	}
	return texts, nil
}

func toGeneric(texts map[string][]string) any {
	out := make(map[string]any, len(texts))
	for k, v := range texts {
		out[k] = lo.Map(v, func(s string, _ int) any { return s })
	}
	return out
}

// Replace swaps the bank contents.
func (b *Bank) Replace(texts map[string][]string) {
	clean := make(map[string][]string, len(texts))
	for k, v := range texts {
		kept := lo.Filter(v, func(s string, _ int) bool { return strings.TrimSpace(s) != "" })
		if len(kept) > 0 {
			clean[k] = kept
		}
	}
	b.mu.Lock()
	b.texts = clean
	b.mu.Unlock()
}

// Random returns a random text for the given minutes.
func (b *Bank) Random(minutes int) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	options := b.texts[strconv.Itoa(minutes)]
	if len(options) == 0 {
		return "", false
	}
	return options[b.intn(len(options))], true
}

// Len returns the total number of texts.
func (b *Bank) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return lo.SumBy(lo.Values(b.texts), func(v []string) int { return len(v) })
}
