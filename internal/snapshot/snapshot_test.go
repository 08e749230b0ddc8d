package snapshot

import (
	"path/filepath"
	"testing"
)

func sampleWorkingSet() *WorkingSet {
	return &WorkingSet{
		Nodes: []NodeDoc{
			{ID: "a", Online: true},
			{ID: "b", Online: true},
		},
		Root: ResourceDoc{
			ID:      "web-clone",
			Variant: "clone",
			Flags:   []string{"managed"},
			Meta:    map[string]string{"interleave": "true"},
			AllowedNodes: map[string]WeightDoc{
				"a": {Weight: "0"},
				"b": {Weight: "-inf"},
			},
			MaxTotal:   2,
			MaxPerNode: 1,
			Children: []ResourceDoc{
				{ID: "web-clone-0", Variant: "primitive", Flags: []string{"managed", "provisional"},
					Actions: []ActionDoc{{Task: "start", Runnable: true}}},
			},
		},
	}
}

func TestBuildMaterializesTreeAndNodeTable(t *testing.T) {
	ws := sampleWorkingSet()
	root, globalNodes, err := Build(ws)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(globalNodes) != 2 {
		t.Fatalf("expected 2 global nodes, got %d", len(globalNodes))
	}
	if !root.AllowedNodes["b"].Weight.IsMinusInfinity() {
		t.Fatalf("expected node b to be -INFINITY")
	}
	if len(root.Children) != 1 || root.Children[0].Parent != root {
		t.Fatalf("expected one child wired back to its parent")
	}
	if len(root.Children[0].Actions) != 1 || root.Children[0].Actions[0].Task.String() != "start" {
		t.Fatalf("expected the child's start action to survive materialization")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ws := sampleWorkingSet()
	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	if err := Save(path, ws); err != nil {
		t.Fatalf("unexpected error saving: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error loading: %v", err)
	}
	if loaded.Root.ID != ws.Root.ID || len(loaded.Nodes) != len(ws.Nodes) {
		t.Fatalf("round trip mismatch: %+v vs %+v", loaded, ws)
	}
}

func TestBuildRejectsUnknownVariant(t *testing.T) {
	ws := sampleWorkingSet()
	ws.Root.Variant = "singleton"
	if _, _, err := Build(ws); err == nil {
		t.Fatal("expected an error for an unknown variant")
	}
}
