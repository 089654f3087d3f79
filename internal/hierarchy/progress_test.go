package hierarchy

import (
	"testing"

	"github.com/ClaytonHunt/cascade/internal/record"
)

// progressForest builds P1 -> E10 -> F20 -> {4 completed stories, 1 in-progress}.
func progressForest(t *testing.T) []*Node {
	t.Helper()
	records := []*record.Record{
		rec(t, "P1", "/plans/P1.md", record.StatusInProgress),
		rec(t, "E10", "/plans/P1/E10.md", record.StatusInProgress),
		rec(t, "F20", "/plans/P1/E10/F20.md", record.StatusInProgress),
		rec(t, "S1", "/plans/P1/E10/F20/S1.md", record.StatusCompleted),
		rec(t, "S2", "/plans/P1/E10/F20/S2.md", record.StatusCompleted),
		rec(t, "S3", "/plans/P1/E10/F20/S3.md", record.StatusCompleted),
		rec(t, "S4", "/plans/P1/E10/F20/S4.md", record.StatusCompleted),
		rec(t, "S5", "/plans/P1/E10/F20/S5.md", record.StatusInProgress),
	}
	return Build(records)
}

func TestProgressCounts(t *testing.T) {
	roots := progressForest(t)
	calc := NewCalculator()

	feature := find(t, roots, "F20")
	p := calc.Of(feature)
	if p == nil || p.Completed != 4 || p.Total != 5 {
		t.Errorf("F20 progress = %+v, want {4 5}", p)
	}

	// Ancestors aggregate the same leaves.
	for _, id := range []string{"E10", "P1"} {
		p := calc.Of(find(t, roots, id))
		if p == nil || p.Completed != 4 || p.Total != 5 {
			t.Errorf("%s progress = %+v, want {4 5}", id, p)
		}
	}
}

func TestProgressNilForLeaves(t *testing.T) {
	roots := progressForest(t)
	calc := NewCalculator()

	if p := calc.Of(find(t, roots, "S1")); p != nil {
		t.Errorf("leaf progress = %+v, want nil", p)
	}
	if p := calc.Of(nil); p != nil {
		t.Errorf("nil node progress = %+v, want nil", p)
	}
}

func TestProgressNilForChildlessParent(t *testing.T) {
	roots := Build([]*record.Record{
		rec(t, "F20", "/plans/F20.md", record.StatusReady),
	})
	calc := NewCalculator()

	if p := calc.Of(roots[0]); p != nil {
		t.Errorf("childless feature progress = %+v, want nil", p)
	}
}

func TestProgressIgnoresNonLeafCounts(t *testing.T) {
	// An epic with two features, only one holding stories: the empty
	// feature contributes nothing to total.
	records := []*record.Record{
		rec(t, "E10", "/plans/E10.md", record.StatusInProgress),
		rec(t, "F20", "/plans/E10/F20.md", record.StatusInProgress),
		rec(t, "F21", "/plans/E10/F21.md", record.StatusNotStarted),
		rec(t, "S1", "/plans/E10/F20/S1.md", record.StatusCompleted),
		rec(t, "B2", "/plans/E10/F20/B2.md", record.StatusInProgress),
	}
	roots := Build(records)
	calc := NewCalculator()

	p := calc.Of(find(t, roots, "E10"))
	if p == nil || p.Completed != 1 || p.Total != 2 {
		t.Errorf("E10 progress = %+v, want {1 2}", p)
	}
}

func TestWarmForestMatchesPullBased(t *testing.T) {
	roots := progressForest(t)

	eager := NewCalculator()
	eager.WarmForest(roots)

	lazy := NewCalculator()

	for _, id := range []string{"P1", "E10", "F20"} {
		n := find(t, roots, id)
		a, b := eager.Of(n), lazy.Of(n)
		if *a != *b {
			t.Errorf("%s: eager %+v != lazy %+v", id, a, b)
		}
	}
}
