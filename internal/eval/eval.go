// Package eval measures ranking quality of a title finder over labelled
// queries.
package eval

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Depth is how many titles are requested per case.
const Depth = 10

// Case bundles a query with the titles that count as a correct answer.
type Case struct {
	Query string   `yaml:"query"`
	Truth []string `yaml:"truth"`
}

type Finder interface {
	Find(ctx context.Context, q string, topN int) ([]string, error)
}

// Report aggregates hit rates and MRR. Misses lists queries with no correct
// title in the first Depth results.
type Report struct {
	Cases  int
	HitAt1 float64
	HitAt5 float64
	MRR    float64
	Misses []string
}

// Evaluate runs f across cases and computes hit@1, hit@5 and MRR.
func Evaluate(ctx context.Context, f Finder, cases []Case) (Report, error) {
	var hits1, hits5, sumRR float64
	rep := Report{Cases: len(cases)}
	for _, c := range cases {
		res, err := f.Find(ctx, c.Query, Depth)
		if err != nil {
			return Report{}, fmt.Errorf("query %q: %w", c.Query, err)
		}
		truth := toSet(c.Truth)
		if hitAtK(res, truth, 1) {
			hits1++
		}
		if hitAtK(res, truth, 5) {
			hits5++
		}
		r := rr(res, truth)
		if r == 0 {
			rep.Misses = append(rep.Misses, c.Query)
		}
		sumRR += r
	}
	if len(cases) == 0 {
		return rep, nil
	}
	n := float64(len(cases))
	rep.HitAt1, rep.HitAt5, rep.MRR = hits1/n, hits5/n, sumRR/n
	return rep, nil
}

// ReadCases decodes a YAML list of cases.
func ReadCases(r io.Reader) ([]Case, error) {
	var cases []Case
	if err := yaml.NewDecoder(r).Decode(&cases); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}
	return cases, nil
}

func toSet(xs []string) map[string]struct{} {
	m := make(map[string]struct{}, len(xs))
	for _, x := range xs {
		m[x] = struct{}{}
	}
	return m
}

func hitAtK(res []string, truth map[string]struct{}, k int) bool {
	if k > len(res) {
		k = len(res)
	}
	for i := 0; i < k; i++ {
		if _, ok := truth[res[i]]; ok {
			return true
		}
	}
	return false
}

func rr(res []string, truth map[string]struct{}) float64 {
	for i := range res {
		if _, ok := truth[res[i]]; ok {
			return 1.0 / float64(i+1)
		}
	}
	return 0
}
