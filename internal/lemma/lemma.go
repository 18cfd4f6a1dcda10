// Package lemma maps words to their base forms. The analyzer is a black box
// behind Lemmatizer; Cache memoizes it for the lifetime of the process and is
// shared by the index builder and the resolver.
package lemma

import (
	"strings"
	"sync/atomic"

	"github.com/kljensen/snowball/russian"
	"github.com/puzpuzpuz/xsync/v3"

	"wikisearch/internal/textnorm"
)

// Lemmatizer returns the dictionary base form of a normalized word. It must be
// deterministic.
type Lemmatizer interface {
	Lemma(word string) string
}

// Func adapts a plain function to Lemmatizer.
type Func func(word string) string

func (f Func) Lemma(word string) string { return f(word) }

// Snowball reduces Russian words with the Snowball stemmer. Stop words are
// returned unchanged.
type Snowball struct{}

func (Snowball) Lemma(word string) string {
	if word == "" {
		return word
	}
	return russian.Stem(word, false)
}

// Cache is an append-only word → lemma table. Entries are never overwritten;
// two goroutines racing on the same miss compute the same value.
type Cache struct {
	lem    Lemmatizer
	m      *xsync.MapOf[string, string]
	hits   atomic.Int64
	misses atomic.Int64
}

func NewCache(l Lemmatizer) *Cache {
	if l == nil {
		l = Snowball{}
	}
	return &Cache{lem: l, m: xsync.NewMapOf[string, string]()}
}

// Lemma normalizes word and returns its cached base form with ё folded.
func (c *Cache) Lemma(word string) string {
	w := textnorm.Normalize(word)
	v, loaded := c.m.LoadOrCompute(w, func() string {
		return textnorm.FoldYo(c.lem.Lemma(w))
	})
	if loaded {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v
}

// Text lemmatizes every word of s and joins the results with single spaces.
func (c *Cache) Text(s string) string {
	words := textnorm.Words(textnorm.Normalize(s))
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = c.Lemma(w)
	}
	return strings.Join(out, " ")
}

func (c *Cache) Len() int { return c.m.Size() }

func (c *Cache) Hits() int64 { return c.hits.Load() }

func (c *Cache) Misses() int64 { return c.misses.Load() }
