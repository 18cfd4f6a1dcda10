package eval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tableFinder map[string][]string

func (f tableFinder) Find(_ context.Context, q string, topN int) ([]string, error) {
	if q == "boom" {
		return nil, errors.New("boom")
	}
	r := f[q]
	if len(r) > topN {
		r = r[:topN]
	}
	return r, nil
}

func TestEvaluate(t *testing.T) {
	f := tableFinder{
		"ленинград": {"Ленинград", "Ленинградская область"},
		"питер":     {"Питерс", "Санкт-Петербург"},
		"ничего":    nil,
	}
	rep, err := Evaluate(context.Background(), f, []Case{
		{Query: "ленинград", Truth: []string{"Ленинград"}},
		{Query: "питер", Truth: []string{"Санкт-Петербург"}},
		{Query: "ничего", Truth: []string{"Что-то"}},
		{Query: "ленинград", Truth: []string{"Ленинградская область"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, rep.Cases)
	assert.InDelta(t, 0.25, rep.HitAt1, 1e-9)
	assert.InDelta(t, 0.75, rep.HitAt5, 1e-9)
	assert.InDelta(t, (1+0.5+0+0.5)/4, rep.MRR, 1e-9)
	assert.Equal(t, []string{"ничего"}, rep.Misses)
}

func TestEvaluateEmptyAndError(t *testing.T) {
	rep, err := Evaluate(context.Background(), tableFinder{}, nil)
	require.NoError(t, err)
	assert.Zero(t, rep.MRR)

	_, err = Evaluate(context.Background(), tableFinder{}, []Case{{Query: "boom"}})
	require.Error(t, err)
}

func TestReadCases(t *testing.T) {
	cases, err := ReadCases(strings.NewReader(`
- query: ленинград
  truth: [Ленинград]
- query: санкт петербург
  truth:
    - Санкт-Петербург
`))
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, "санкт петербург", cases[1].Query)
	assert.Equal(t, []string{"Санкт-Петербург"}, cases[1].Truth)

	cases, err = ReadCases(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, cases)
}
