package recruiting

import "testing"

func TestNewStagesMintsStableUniqueIDs(t *testing.T) {
	stages := NewStages(DefaultStageNames)
	if len(stages) != 5 {
		t.Fatalf("default workflow has 5 stages, got %d", len(stages))
	}
	seen := map[string]bool{}
	for _, s := range stages {
		if s.ID == "" {
			t.Fatalf("stage %q has no id", s.Name)
		}
		if seen[s.ID] {
			t.Fatalf("duplicate stage id %s", s.ID)
		}
		seen[s.ID] = true
	}
	if stages[0].Name != "Applied" || stages[4].Name != "Finalized" {
		t.Fatalf("unexpected default order: %v", stages)
	}
}

func TestReorderPreservesStageIdentity(t *testing.T) {
	stages := NewStages([]string{"A", "B", "C"})
	feedbackStage := stages[1].ID

	reordered, err := ReorderStages(stages, []string{stages[2].ID, stages[0].ID, stages[1].ID})
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if reordered[0].Name != "C" || reordered[1].Name != "A" || reordered[2].Name != "B" {
		t.Fatalf("unexpected order: %v", reordered)
	}
	// Feedback keyed on the old id still resolves after the reorder.
	if !stageInPipeline(reordered, feedbackStage) {
		t.Fatal("reorder orphaned a stage id")
	}
	if reordered[2].ID != feedbackStage {
		t.Fatal("stage B must keep its id")
	}
}

func TestReorderRejectsForeignOrMissingStages(t *testing.T) {
	stages := NewStages([]string{"A", "B", "C"})

	if _, err := ReorderStages(stages, []string{stages[0].ID, stages[1].ID}); err != ErrStageSetMismatch {
		t.Fatalf("short list: expected ErrStageSetMismatch, got %v", err)
	}
	foreign := NewStages([]string{"X"})
	if _, err := ReorderStages(stages, []string{stages[0].ID, stages[1].ID, foreign[0].ID}); err != ErrStageSetMismatch {
		t.Fatalf("foreign id: expected ErrStageSetMismatch, got %v", err)
	}
	if _, err := ReorderStages(stages, []string{stages[0].ID, stages[0].ID, stages[1].ID}); err != ErrStageSetMismatch {
		t.Fatalf("duplicate id: expected ErrStageSetMismatch, got %v", err)
	}
}

func TestCloneStagesMintsNewIDs(t *testing.T) {
	template := NewStages([]string{"A", "B"})
	cloned := CloneStages(template)
	if len(cloned) != 2 {
		t.Fatalf("expected 2 stages, got %d", len(cloned))
	}
	for i := range cloned {
		if cloned[i].ID == template[i].ID {
			t.Fatal("pipeline stages must not share ids with the template")
		}
		if cloned[i].Name != template[i].Name {
			t.Fatalf("name drift: %q vs %q", cloned[i].Name, template[i].Name)
		}
	}
}

func TestSplitName(t *testing.T) {
	cases := []struct{ full, first, last string }{
		{"Dana Perera", "Dana", "Perera"},
		{"Ana Maria Silva", "Ana Maria", "Silva"},
		{"Cher", "Cher", ""},
	}
	for _, tc := range cases {
		first, last := splitName(tc.full)
		if first != tc.first || last != tc.last {
			t.Fatalf("splitName(%q) = %q/%q, want %q/%q", tc.full, first, last, tc.first, tc.last)
		}
	}
}
