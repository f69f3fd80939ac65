package mastery

// DefaultMaxSeqLen is the scoring model's fixed input window. Packed
// sequences hold one step fewer because the target is shifted one
// position later.
const DefaultMaxSeqLen = 100

// targetPad marks positions with no supervision in the target tensor.
const targetPad = -1

// continuousWidth is the number of continuous features per step.
const continuousWidth = 5

// PackedSequence is one fixed-shape chunk ready for batch scoring. All
// three tensors are exactly maxSeqLen-1 steps long; categorical and
// continuous are zero-padded on the right, target is padded with -1.
type PackedSequence struct {
	// Categorical holds interaction_feature ids.
	Categorical []int
	// Continuous holds, per step: time_taken_scaled,
	// time_since_last_scaled, skill_difficulty, attempt_count_scaled,
	// student_avg_correctness.
	Continuous [][]float64
	// Target holds [skill_id-1, correct] for the following row,
	// the next-step prediction framing.
	Target [][]int
}

// PackSequences slices the feature table into contiguous chunks of up
// to maxSeqLen-1 input rows, each with a one-row lookahead for the
// shifted target. A chunk is produced only when more than one row is
// available, so a single-row leftover tail yields nothing. The
// transform is allocation-only: fixed-capacity buffers are filled then
// left padded at their zero values.
func PackSequences(table *FeatureTable, maxSeqLen int) []PackedSequence {
	if maxSeqLen < 2 {
		maxSeqLen = DefaultMaxSeqLen
	}
	seqLen := maxSeqLen - 1
	rows := table.Rows

	var seqs []PackedSequence
	for i := 0; i < len(rows); i += seqLen {
		end := i + maxSeqLen
		if end > len(rows) {
			end = len(rows)
		}
		if end-i <= 1 {
			continue
		}
		seqs = append(seqs, packChunk(rows[i:end], seqLen))
	}
	return seqs
}

// packChunk packs one chunk of 2..maxSeqLen rows. The last row of the
// chunk only contributes to the target.
func packChunk(chunk []FeatureRow, seqLen int) PackedSequence {
	seq := PackedSequence{
		Categorical: make([]int, seqLen),
		Continuous:  make([][]float64, seqLen),
		Target:      make([][]int, seqLen),
	}
	for p := 0; p < seqLen; p++ {
		seq.Continuous[p] = make([]float64, continuousWidth)
		seq.Target[p] = []int{targetPad, targetPad}
	}

	for p := 0; p < len(chunk)-1; p++ {
		row := chunk[p]
		seq.Categorical[p] = row.InteractionFeature
		seq.Continuous[p][0] = row.TimeTakenScaled
		seq.Continuous[p][1] = row.TimeSinceLastScaled
		seq.Continuous[p][2] = row.SkillDifficulty
		seq.Continuous[p][3] = row.AttemptCountScaled
		seq.Continuous[p][4] = row.StudentAvgCorrectness

		next := chunk[p+1]
		seq.Target[p][0] = next.SkillID - 1
		seq.Target[p][1] = next.Correct
	}
	return seq
}

// BatchInputs stacks packed sequences into the two input tensors the
// scoring model accepts: (numSequences, seqLen) categorical ids and
// (numSequences, seqLen, 5) continuous features.
func BatchInputs(seqs []PackedSequence) (categorical [][]int, continuous [][][]float64) {
	categorical = make([][]int, len(seqs))
	continuous = make([][][]float64, len(seqs))
	for i, s := range seqs {
		categorical[i] = s.Categorical
		continuous[i] = s.Continuous
	}
	return categorical, continuous
}
