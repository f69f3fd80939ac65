package mastery

import "testing"

func TestDecodePredictions_UsesLastTimeStep(t *testing.T) {
	output := [][][]float64{
		{
			{0.1, 0.2},
			{0.3, 0.4},
			{0.7, 0.9},
		},
	}
	idToName := map[int]string{1: "algebra", 2: "geometry"}

	got := DecodePredictions(output, idToName)
	if got["algebra"] != 0.7 {
		t.Errorf("algebra = %v, want 0.7 (last time step)", got["algebra"])
	}
	if got["geometry"] != 0.9 {
		t.Errorf("geometry = %v, want 0.9 (last time step)", got["geometry"])
	}
}

func TestDecodePredictions_LastSequenceWins(t *testing.T) {
	// Two chunks predict the same skill slot; the later one must
	// overwrite, never average.
	output := [][][]float64{
		{{0.2}},
		{{0.8}},
	}
	idToName := map[int]string{1: "algebra"}

	got := DecodePredictions(output, idToName)
	if got["algebra"] != 0.8 {
		t.Errorf("algebra = %v, want 0.8 (last sequence wins)", got["algebra"])
	}
}

func TestDecodePredictions_ClipsProbabilities(t *testing.T) {
	output := [][][]float64{
		{{-0.25, 1.3, 0.5}},
	}
	idToName := map[int]string{1: "a", 2: "b", 3: "c"}

	got := DecodePredictions(output, idToName)
	if got["a"] != 0 {
		t.Errorf("a = %v, want 0 (clipped)", got["a"])
	}
	if got["b"] != 1 {
		t.Errorf("b = %v, want 1 (clipped)", got["b"])
	}
	if got["c"] != 0.5 {
		t.Errorf("c = %v, want 0.5", got["c"])
	}
}

func TestDecodePredictions_UnknownVocabularySlot(t *testing.T) {
	output := [][][]float64{
		{{0.4, 0.6}},
	}
	idToName := map[int]string{1: "algebra"}

	got := DecodePredictions(output, idToName)
	if got["algebra"] != 0.4 {
		t.Errorf("algebra = %v, want 0.4", got["algebra"])
	}
	if got["Skill_2"] != 0.6 {
		t.Errorf("Skill_2 = %v, want 0.6 (synthesized label)", got["Skill_2"])
	}
}

func TestDecodePredictions_EmptySequencesSkipped(t *testing.T) {
	output := [][][]float64{
		{},
		{{0.3}},
	}
	idToName := map[int]string{1: "algebra"}

	got := DecodePredictions(output, idToName)
	if len(got) != 1 || got["algebra"] != 0.3 {
		t.Errorf("DecodePredictions() = %v, want map[algebra:0.3]", got)
	}
}
