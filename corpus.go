package main

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Word list derived from the BNC/COCA general service list.
//
//go:embed words.txt
var embeddedWordList string

var wordPattern = regexp.MustCompile(`[A-Za-z]+`)

// wordCorpus is an immutable set of uppercase words, sorted by length then
// alphabetically. Built once per process.
type wordCorpus struct {
	words []string
	set   map[string]struct{}
}

var (
	corpusOnce sync.Once
	corpus     *wordCorpus
	corpusErr  error
)

// loadCorpus builds the corpus from the file at path, or from the embedded
// word list if path is empty. The first call decides the result for the
// process lifetime; an error here means the server cannot deal words at all.
func loadCorpus(path string) (*wordCorpus, error) {
	corpusOnce.Do(func() {
		source := embeddedWordList
		if path != "" {
			data, err := os.ReadFile(path)
			if err != nil {
				corpusErr = fmt.Errorf("word list: %w", err)
				return
			}
			source = string(data)
		}

		c := newWordCorpus(strings.Fields(source))
		if len(c.words) == 0 {
			corpusErr = fmt.Errorf("word list: no usable words")
			return
		}
		corpus = c
	})

	return corpus, corpusErr
}

// newWordCorpus normalizes raw entries into uppercase alphabetic words.
// Hyphenated or otherwise punctuated entries contribute each letter run
// separately; single letters are dropped.
func newWordCorpus(entries []string) *wordCorpus {
	set := make(map[string]struct{})
	for _, entry := range entries {
		for _, form := range wordPattern.FindAllString(entry, -1) {
			if len(form) < 2 {
				continue
			}
			set[strings.ToUpper(form)] = struct{}{}
		}
	}

	words := make([]string, 0, len(set))
	for word := range set {
		words = append(words, word)
	}
	sort.Slice(words, func(i, j int) bool {
		if len(words[i]) != len(words[j]) {
			return len(words[i]) < len(words[j])
		}
		return words[i] < words[j]
	})

	return &wordCorpus{words: words, set: set}
}

func (c *wordCorpus) contains(word string) bool {
	_, ok := c.set[strings.ToUpper(word)]
	return ok
}

// wordsOfLength returns a fresh slice of every word of exactly length n, in
// corpus order. Callers may reorder it freely.
func (c *wordCorpus) wordsOfLength(n int) []string {
	var words []string
	for _, word := range c.words {
		if len(word) > n {
			break
		}
		if len(word) == n {
			words = append(words, word)
		}
	}
	return words
}

// search returns up to limit words containing the query substring, optionally
// restricted to an exact length. An empty query matches everything.
func (c *wordCorpus) search(query string, length int, limit int) []string {
	query = strings.ToUpper(query)
	matches := make([]string, 0, limit)
	for _, word := range c.words {
		if length > 0 && len(word) != length {
			continue
		}
		if query != "" && !strings.Contains(word, query) {
			continue
		}
		matches = append(matches, word)
		if len(matches) == limit {
			break
		}
	}
	return matches
}
