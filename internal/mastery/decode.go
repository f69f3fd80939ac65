package mastery

import "fmt"

// DecodePredictions turns raw model output of shape
// (numSequences, seqLen, numSkills) into a mastery map keyed by skill
// name from the trained vocabulary (model output index j carries
// vocabulary id j+1).
//
// Every sequence contributes its last time step, and later sequences
// overwrite earlier ones, so with multiple chunks only the final
// chunk's prediction survives per skill slot. Averaging across chunks
// would be the more defensible aggregation, but last-write-wins is the
// behavior callers have calibrated against; see
// TestDecodePredictions_LastSequenceWins before changing it.
//
// Probabilities are clipped to [0, 1]. Model slots with no vocabulary
// entry get a synthesized Skill_<id> label.
func DecodePredictions(output [][][]float64, idToName map[int]string) map[string]float64 {
	scores := make(map[string]float64)
	for _, seq := range output {
		if len(seq) == 0 {
			continue
		}
		last := seq[len(seq)-1]
		for j, p := range last {
			name, ok := idToName[j+1]
			if !ok {
				name = fmt.Sprintf("Skill_%d", j+1)
			}
			scores[name] = clip(p, 0, 1)
		}
	}
	return scores
}
