package mastery

import (
	"context"
	"fmt"
)

// Scorer is the external trained-model boundary. Given the batched
// categorical ids (numSequences, seqLen) and continuous features
// (numSequences, seqLen, 5) it returns per-step probability
// distributions over the trained skill vocabulary,
// (numSequences, seqLen, numSkills). Implementations must be safe for
// concurrent use; the pipeline never retries a failed call.
type Scorer interface {
	Score(ctx context.Context, categorical [][]int, continuous [][][]float64) ([][][]float64, error)
}

// PipelineConfig holds the pipeline's dependencies.
type PipelineConfig struct {
	Scorer Scorer
	// SkillIDToName is the trained output vocabulary (id -> name),
	// distinct from the per-request skill numbering built during
	// feature engineering. Reconciliation happens by name at decode.
	SkillIDToName map[int]string
	// MaxSeqLen is the model's fixed input window (default 100).
	MaxSeqLen int
}

// Pipeline runs the full mastery inference pass. It holds no mutable
// state; concurrent Score calls share nothing.
type Pipeline struct {
	scorer    Scorer
	idToName  map[int]string
	maxSeqLen int
}

// NewPipeline creates a pipeline. The scorer is required.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	maxSeqLen := cfg.MaxSeqLen
	if maxSeqLen < 2 {
		maxSeqLen = DefaultMaxSeqLen
	}
	return &Pipeline{
		scorer:    cfg.Scorer,
		idToName:  cfg.SkillIDToName,
		maxSeqLen: maxSeqLen,
	}
}

// Score runs validate -> features -> pack -> model -> decode and
// returns the mastery map. It is all-or-nothing: any failure surfaces
// unchanged and no partial map is ever returned.
func (p *Pipeline) Score(ctx context.Context, interactions []Interaction) (map[string]float64, error) {
	if err := ValidateInteractions(interactions); err != nil {
		return nil, err
	}

	table, err := BuildFeatures(interactions)
	if err != nil {
		return nil, err
	}

	seqs := PackSequences(table, p.maxSeqLen)
	if len(seqs) == 0 {
		return nil, ErrInsufficientData
	}

	// All chunks go out in a single batched call.
	categorical, continuous := BatchInputs(seqs)
	output, err := p.scorer.Score(ctx, categorical, continuous)
	if err != nil {
		return nil, &InferenceError{Err: err}
	}
	if err := checkOutputShape(output, len(seqs)); err != nil {
		return nil, &InferenceError{Err: err}
	}

	return DecodePredictions(output, p.idToName), nil
}

// checkOutputShape rejects malformed scorer output before decode.
func checkOutputShape(output [][][]float64, numSeqs int) error {
	if len(output) != numSeqs {
		return fmt.Errorf("expected %d sequences, got %d", numSeqs, len(output))
	}
	for i, seq := range output {
		if len(seq) == 0 {
			return fmt.Errorf("sequence %d is empty", i)
		}
		width := len(seq[0])
		if width == 0 {
			return fmt.Errorf("sequence %d has no skill probabilities", i)
		}
		for s, step := range seq {
			if len(step) != width {
				return fmt.Errorf("sequence %d step %d has %d probabilities, want %d", i, s, len(step), width)
			}
		}
	}
	return nil
}
