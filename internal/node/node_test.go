package node

import (
	"testing"

	"github.com/awslabs/placement-core/internal/score"
)

func view(id ID, weight int32) *View {
	return &View{Node: &Global{ID: id, Online: true}, Weight: score.Finite(weight)}
}

func TestSortedWeightDescThenIDAsc(t *testing.T) {
	tbl := Table{
		"c": view("c", 5),
		"a": view("a", 5),
		"b": view("b", 10),
	}
	got := tbl.Sorted()
	want := []ID{"b", "a", "c"}
	for i, w := range want {
		if got[i].ID() != w {
			t.Fatalf("position %d: got %s, want %s", i, got[i].ID(), w)
		}
	}
}

func TestResetClearsCounts(t *testing.T) {
	tbl := Table{"a": view("a", 0)}
	tbl["a"].Count = 7
	tbl.Reset()
	if tbl["a"].Count != 0 {
		t.Fatalf("expected count reset to 0, got %d", tbl["a"].Count)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	tbl := Table{"a": view("a", 0)}
	cp := tbl.Clone()
	cp["a"].Weight = score.MinusInfinity
	if tbl["a"].Weight.IsMinusInfinity() {
		t.Fatal("mutating clone leaked into original")
	}
}

func TestAvailable(t *testing.T) {
	g := Global{ID: "n1", Online: true, Standby: true}
	if g.Available(true, false) {
		t.Error("standby node should not be strictly available without allowStandby")
	}
	if !g.Available(true, true) {
		t.Error("standby node should be available with allowStandby")
	}
	if !g.Available(false, false) {
		t.Error("non-strict availability should ignore standby")
	}
	g2 := Global{ID: "n2", Online: false}
	if g2.Available(false, false) {
		t.Error("offline node should never be available")
	}
}

func TestCountAvailable(t *testing.T) {
	tbl := Table{
		"a": view("a", 0),
		"b": {Node: &Global{ID: "b", Online: false}, Weight: score.Finite(0)},
	}
	if got := tbl.CountAvailable(); got != 1 {
		t.Fatalf("expected 1 available node, got %d", got)
	}
}
