package lemma

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

type countingLemmatizer struct {
	calls atomic.Int64
	table map[string]string
}

func (c *countingLemmatizer) Lemma(w string) string {
	c.calls.Add(1)
	if l, ok := c.table[w]; ok {
		return l
	}
	return w
}

func TestCacheNormalizesAndMemoizes(t *testing.T) {
	fake := &countingLemmatizer{table: map[string]string{"улицы": "улица", "елки": "ёлка"}}
	c := NewCache(fake)

	assert.Equal(t, "улица", c.Lemma("Улицы"))
	assert.Equal(t, "улица", c.Lemma("улицы"))
	assert.EqualValues(t, 1, fake.calls.Load())
	assert.EqualValues(t, 1, c.Hits())
	assert.EqualValues(t, 1, c.Misses())

	// ё is folded both in the key and in the analyzer output
	assert.Equal(t, "елка", c.Lemma("Ёлки"))
	assert.Equal(t, 2, c.Len())
}

func TestCacheText(t *testing.T) {
	c := NewCache(Func(func(w string) string {
		if w == "улицы" {
			return "улица"
		}
		return w
	}))
	assert.Equal(t, "улица ленина", c.Text("Улицы Ленина"))
	assert.Equal(t, "санкт петербург", c.Text("Санкт-Петербург"))
	assert.Equal(t, "", c.Text("—"))
}

func TestCacheConcurrentUse(t *testing.T) {
	fake := &countingLemmatizer{table: map[string]string{}}
	c := NewCache(fake)
	words := []string{"альфа", "бета", "гамма", "дельта"}
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				w := words[j%len(words)]
				assert.Equal(t, w, c.Lemma(w))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, len(words), c.Len())
	assert.EqualValues(t, 16*100, c.Hits()+c.Misses())
}

func TestSnowballReducesInflections(t *testing.T) {
	s := Snowball{}
	assert.Equal(t, s.Lemma("улица"), s.Lemma("улицы"))
	assert.Equal(t, s.Lemma("ленинград"), s.Lemma("ленинграда"))
	assert.Equal(t, "", s.Lemma(""))
}

func TestNewCacheDefaultsToSnowball(t *testing.T) {
	c := NewCache(nil)
	assert.Equal(t, Snowball{}.Lemma("улицы"), c.Lemma("улицы"))
}
