// Package dict provides the word lookup the validator and the bot play
// against. A compact English list ships embedded; DICT_PATH swaps in a
// different newline-separated list at startup.
package dict

import (
	"bufio"
	"embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

//go:embed words.txt
var defaultFiles embed.FS

// Dict answers membership and prefix queries over a fixed word set.
// Immutable after construction, safe for concurrent use.
type Dict struct {
	words    map[string]bool
	prefixes map[string]bool
	letters  []rune
}

// Load reads the list at path, or the embedded default when path is
// empty.
func Load(path string) (*Dict, error) {
	if strings.TrimSpace(path) == "" {
		f, err := defaultFiles.Open("words.txt")
		if err != nil {
			return nil, fmt.Errorf("open embedded words: %w", err)
		}
		defer f.Close()
		return read(f)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open word list: %w", err)
	}
	defer f.Close()
	return read(f)
}

// FromWords builds a dictionary from an explicit word set.
func FromWords(words []string) *Dict {
	d := &Dict{words: make(map[string]bool), prefixes: make(map[string]bool)}
	seen := make(map[rune]bool)
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		d.words[w] = true
		runes := []rune(w)
		for i := 1; i <= len(runes); i++ {
			d.prefixes[string(runes[:i])] = true
		}
		for _, r := range runes {
			seen[r] = true
		}
	}
	for r := range seen {
		d.letters = append(d.letters, r)
	}
	sort.Slice(d.letters, func(i, j int) bool { return d.letters[i] < d.letters[j] })
	return d
}

func read(r io.Reader) (*Dict, error) {
	var words []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		words = append(words, s)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read word list: %w", err)
	}
	return FromWords(words), nil
}

func (d *Dict) Len() int { return len(d.words) }

// IsValidWord reports whether word (case-insensitive) is in the list.
func (d *Dict) IsValidWord(word string) bool {
	return d.words[strings.ToLower(word)]
}

// IsPrefix reports whether some word in the list starts with prefix.
func (d *Dict) IsPrefix(prefix string) bool {
	return d.prefixes[strings.ToLower(prefix)]
}

// Letters returns the alphabet observed in the word list, sorted.
func (d *Dict) Letters() []rune {
	return append([]rune(nil), d.letters...)
}
