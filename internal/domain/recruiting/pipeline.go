package recruiting

import "github.com/google/uuid"

// DefaultStageNames is the workflow a pipeline gets when no template is
// chosen.
var DefaultStageNames = []string{"Applied", "Shortlisted", "Interview", "HR Round", "Finalized"}

// NewStages mints stages with fresh stable ids.
func NewStages(names []string) []Stage {
	stages := make([]Stage, 0, len(names))
	for _, name := range names {
		stages = append(stages, Stage{ID: uuid.NewString(), Name: name})
	}
	return stages
}

// CloneStages copies a template's stages into a new pipeline with fresh
// ids. Template and pipeline stages never share identity; feedback belongs
// to the pipeline's stages.
func CloneStages(stages []Stage) []Stage {
	out := make([]Stage, 0, len(stages))
	for _, s := range stages {
		out = append(out, Stage{ID: uuid.NewString(), Name: s.Name})
	}
	return out
}

// ReorderStages returns the pipeline's stages in the requested id order.
// The request must be a permutation of the existing set; ids are never
// regenerated, so feedback keyed on them stays attached.
func ReorderStages(current []Stage, orderedIDs []string) ([]Stage, error) {
	if len(orderedIDs) != len(current) {
		return nil, ErrStageSetMismatch
	}
	byID := make(map[string]Stage, len(current))
	for _, s := range current {
		byID[s.ID] = s
	}
	out := make([]Stage, 0, len(current))
	for _, id := range orderedIDs {
		s, ok := byID[id]
		if !ok {
			return nil, ErrStageSetMismatch
		}
		delete(byID, id)
		out = append(out, s)
	}
	return out, nil
}

func stageInPipeline(stages []Stage, stageID string) bool {
	for _, s := range stages {
		if s.ID == stageID {
			return true
		}
	}
	return false
}

func firstStage(stages []Stage) (Stage, bool) {
	if len(stages) == 0 {
		return Stage{}, false
	}
	return stages[0], true
}
