package discovery

import (
	"slices"
	"testing"

	"dogfordate/pkg/model"
)

func ptr(f float64) *float64 { return &f }

func fixtures() []*model.Listing {
	return []*model.Listing{
		{ID: "1", Name: "Biscuit", Breed: "Golden Retriever", City: "Austin", Size: model.SizeLarge,
			ActivityLevel: model.ActivityHigh, Personalities: []string{"Playful", "Friendly"}, HourlyRate: 25},
		{ID: "2", Name: "Mochi", Breed: "Shiba Inu", City: "Portland", Size: model.SizeSmall,
			ActivityLevel: model.ActivityMedium, Personalities: []string{"Independent"}, HourlyRate: 18},
		{ID: "3", Name: "Pepper", Breed: "Border Collie", City: "Austin", Size: model.SizeMedium,
			ActivityLevel: model.ActivityHigh, Personalities: []string{"Energetic", "Social"}, HourlyRate: 30},
		{ID: "4", Name: "Duke", Breed: "Bulldog", City: "Goldendale", Size: model.SizeMedium,
			ActivityLevel: model.ActivityLow, Personalities: nil, HourlyRate: 12},
	}
}

func ids(seq []*model.Listing) []string {
	out := make([]string, 0, len(seq))
	for _, l := range seq {
		out = append(out, l.ID)
	}
	return out
}

func TestApply(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"empty filter keeps everything in order", Filter{}, []string{"1", "2", "3", "4"}},
		{"blank text is absent", Filter{TextQuery: "   "}, []string{"1", "2", "3", "4"}},
		{"text matches breed case-insensitively", Filter{TextQuery: "GOLDEN"}, []string{"1", "4"}},
		{"text matches name", Filter{TextQuery: "mochi"}, []string{"2"}},
		{"text matches city", Filter{TextQuery: "austin"}, []string{"1", "3"}},
		{"sizes are a membership test", Filter{Sizes: []string{model.SizeMedium, model.SizeSmall}}, []string{"2", "3", "4"}},
		{"personalities intersect", Filter{Personalities: []string{"Social", "Friendly"}}, []string{"1", "3"}},
		{"listing without personalities never matches a personality filter", Filter{Personalities: []string{"Calm"}}, []string{}},
		{"activity levels", Filter{ActivityLevels: []string{model.ActivityHigh}}, []string{"1", "3"}},
		{"min rate is inclusive", Filter{MinRate: ptr(25)}, []string{"1", "3"}},
		{"max rate is inclusive", Filter{MaxRate: ptr(18)}, []string{"2", "4"}},
		{"predicates combine with AND", Filter{TextQuery: "austin", ActivityLevels: []string{model.ActivityHigh}, MaxRate: ptr(26)}, []string{"1"}},
		{"inverted rate bounds match nothing", Filter{MinRate: ptr(30), MaxRate: ptr(10)}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(slices.Collect(Apply(fixtures(), tt.filter)))
			if !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApply_Restartable(t *testing.T) {
	seq := Apply(fixtures(), Filter{TextQuery: "austin"})

	first := ids(slices.Collect(seq))
	second := ids(slices.Collect(seq))
	if !slices.Equal(first, second) {
		t.Errorf("second pass %v differs from first %v", second, first)
	}
}

func TestApply_Lazy(t *testing.T) {
	listings := fixtures()
	seq := Apply(listings, Filter{})

	visited := 0
	for range seq {
		visited++
		break
	}
	if visited != 1 {
		t.Errorf("expected early stop after one element, visited %d", visited)
	}
}

func TestApply_FilterIsSnapshotted(t *testing.T) {
	f := Filter{Sizes: []string{model.SizeLarge}}
	seq := Apply(fixtures(), f)
	f.Sizes[0] = model.SizeSmall

	got := ids(slices.Collect(seq))
	if !slices.Equal(got, []string{"1"}) {
		t.Errorf("mutating the filter after Apply changed results: %v", got)
	}
}

func TestCollect_Limit(t *testing.T) {
	got := Collect(fixtures(), Filter{}, 2)
	if !slices.Equal(ids(got), []string{"1", "2"}) {
		t.Errorf("got %v", ids(got))
	}
	if got := Collect(nil, Filter{}, 0); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
}

func TestFilter_IsEmpty(t *testing.T) {
	if !(Filter{TextQuery: " "}).IsEmpty() {
		t.Error("blank text should count as empty")
	}
	if (Filter{MinRate: ptr(0)}).IsEmpty() {
		t.Error("min rate set should not be empty")
	}
}
