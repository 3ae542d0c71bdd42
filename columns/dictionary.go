// Package columns finds logical columns in spreadsheet header rows, using a
// dictionary of canonical column names and their synonyms.
package columns

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Dictionary maps canonical column names to their synonyms. It is stored as
// a JSON object {"canonical": ["synonym", ...]}. Safe for concurrent use.
type Dictionary struct {
	path string
	log  *zap.Logger

	mu      sync.RWMutex
	entries map[string][]string
	reverse map[string]string // normalized variant -> canonical name
}

// NewDictionary creates an empty dictionary backed by path.
func NewDictionary(path string, log *zap.Logger) *Dictionary {
	if log == nil {
		log = zap.NewNop()
	}
	d := &Dictionary{path: path, log: log}
	d.set(map[string][]string{})
	return d
}

// LoadDictionary reads the dictionary file. A missing or corrupt file yields
// an empty dictionary; the problem is logged.
func LoadDictionary(path string, log *zap.Logger) *Dictionary {
	d := NewDictionary(path, log)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return d
	}
	if err != nil {
		d.log.Warn("column dictionary not read", zap.String("path", path), zap.Error(err))
		return d
	}
	entries := map[string][]string{}
	if err := json.Unmarshal(data, &entries); err != nil {
		d.log.Warn("column dictionary is corrupt", zap.String("path", path), zap.Error(err))
		return d
	}
	d.set(entries)
	return d
}

// FromEntries creates an in-memory dictionary.
func FromEntries(entries map[string][]string) *Dictionary {
	d := NewDictionary("", nil)
	d.set(entries)
	return d
}

func (d *Dictionary) set(entries map[string][]string) {
	reverse := make(map[string]string)
	for canonical, synonyms := range entries {
		for _, v := range append(append([]string{}, synonyms...), canonical) {
			reverse[normalize(v)] = canonical
		}
	}
	d.mu.Lock()
	d.entries = entries
	d.reverse = reverse
	d.mu.Unlock()
}

// Canonical returns the canonical name for a label, or "" when the label is
// not in the dictionary.
func (d *Dictionary) Canonical(label string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.reverse[normalize(label)]
}

// Names returns the canonical names in sorted order.
func (d *Dictionary) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.entries))
	for name := range d.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Synonyms returns the synonyms of a canonical name.
func (d *Dictionary) Synonyms(canonical string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.entries[canonical]...)
}

// Add adds or replaces an entry and saves the dictionary.
func (d *Dictionary) Add(canonical string, synonyms []string) error {
	canonical = strings.TrimSpace(canonical)
	if canonical == "" {
		return errors.New("empty canonical name")
	}
	var clean []string
	for _, s := range synonyms {
		if s = strings.TrimSpace(s); s != "" {
			clean = append(clean, s)
		}
	}
	entries := d.copyEntries()
	entries[canonical] = clean
	d.set(entries)
	return d.Save()
}

// Delete removes an entry and saves the dictionary.
func (d *Dictionary) Delete(canonical string) error {
	entries := d.copyEntries()
	if _, ok := entries[canonical]; !ok {
		return nil
	}
	delete(entries, canonical)
	d.set(entries)
	return d.Save()
}

// Save writes the dictionary file. An in-memory dictionary is not saved.
func (d *Dictionary) Save() error {
	if d.path == "" {
		return nil
	}
	d.mu.RLock()
	data, err := json.MarshalIndent(d.entries, "", "    ")
	d.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode column dictionary: %w", err)
	}
	if err := os.WriteFile(d.path, data, 0o644); err != nil {
		return fmt.Errorf("write column dictionary: %w", err)
	}
	return nil
}

func (d *Dictionary) copyEntries() map[string][]string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string][]string, len(d.entries)+1)
	for k, v := range d.entries {
		out[k] = v
	}
	return out
}

// normalize lowercases a label and drops everything but letters and digits.
func normalize(s string) string {
	lower := cases.Lower(language.Und).String(s)
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, lower)
}
