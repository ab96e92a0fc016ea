// Package discovery narrows a listing set down to what a searcher asked for.
package discovery

import (
	"iter"
	"slices"
	"strings"

	"dogfordate/pkg/model"
)

// Filter holds optional predicates. A zero value matches everything. All set
// predicates must hold for a listing to be yielded.
type Filter struct {
	TextQuery      string
	Sizes          []string
	Personalities  []string
	ActivityLevels []string
	MinRate        *float64
	MaxRate        *float64
}

// IsEmpty reports whether no predicate is set.
func (f Filter) IsEmpty() bool {
	return strings.TrimSpace(f.TextQuery) == "" &&
		len(f.Sizes) == 0 &&
		len(f.Personalities) == 0 &&
		len(f.ActivityLevels) == 0 &&
		f.MinRate == nil &&
		f.MaxRate == nil
}

// Apply lazily yields matching listings in input order. The sequence can be
// ranged over more than once.
func Apply(listings []*model.Listing, f Filter) iter.Seq[*model.Listing] {
	match := f.matcher()
	return func(yield func(*model.Listing) bool) {
		for _, l := range listings {
			if l == nil || !match(l) {
				continue
			}
			if !yield(l) {
				return
			}
		}
	}
}

// Collect drains Apply into a slice, stopping after limit results when
// limit is positive.
func Collect(listings []*model.Listing, f Filter, limit int) []*model.Listing {
	out := make([]*model.Listing, 0)
	for l := range Apply(listings, f) {
		out = append(out, l)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (f Filter) matcher() func(*model.Listing) bool {
	query := strings.ToLower(strings.TrimSpace(f.TextQuery))
	sizes := slices.Clone(f.Sizes)
	personalities := slices.Clone(f.Personalities)
	activity := slices.Clone(f.ActivityLevels)
	minRate, maxRate := f.MinRate, f.MaxRate

	return func(l *model.Listing) bool {
		if query != "" && !matchesText(l, query) {
			return false
		}
		if len(sizes) > 0 && !slices.Contains(sizes, l.Size) {
			return false
		}
		if len(personalities) > 0 && !intersects(personalities, l.Personalities) {
			return false
		}
		if len(activity) > 0 && !slices.Contains(activity, l.ActivityLevel) {
			return false
		}
		if minRate != nil && l.HourlyRate < *minRate {
			return false
		}
		if maxRate != nil && l.HourlyRate > *maxRate {
			return false
		}
		return true
	}
}

func matchesText(l *model.Listing, query string) bool {
	return strings.Contains(strings.ToLower(l.Name), query) ||
		strings.Contains(strings.ToLower(l.Breed), query) ||
		strings.Contains(strings.ToLower(l.City), query)
}

func intersects(wanted, have []string) bool {
	for _, p := range have {
		if slices.Contains(wanted, p) {
			return true
		}
	}
	return false
}
