// Package mastery scores student skill mastery from interaction logs.
//
// The pipeline is a pure, single-pass transform: a chronologically
// ordered interaction log becomes a per-row feature table, the table is
// packed into fixed-length sequence chunks, the chunks are scored by an
// injected model, and the raw output is decoded back into a mapping of
// skill name to mastery probability. Each invocation is stateless and
// allocates its own table and skill-id mapping, so concurrent requests
// need no coordination.
package mastery

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Interaction is one timestamped student attempt at a skill.
type Interaction struct {
	Skill     string  `json:"skill"`
	Correct   bool    `json:"correct"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
}

// UnmarshalJSON accepts correctness as a JSON boolean or as the 0/1
// integer encoding some event producers still emit.
func (i *Interaction) UnmarshalJSON(data []byte) error {
	type plain Interaction
	aux := struct {
		Correct json.RawMessage `json:"correct"`
		*plain
	}{plain: (*plain)(i)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	correct, err := parseCorrect(aux.Correct)
	if err != nil {
		return err
	}
	i.Correct = correct
	return nil
}

func parseCorrect(raw json.RawMessage) (bool, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return false, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		switch n {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
		return false, fmt.Errorf("correct must be 0 or 1, got %v", n)
	}
	return false, fmt.Errorf("correct must be a boolean or 0/1, got %s", raw)
}

// ValidateInteractions checks a request payload before any feature work
// begins. It rejects fewer than two records, empty skill names,
// non-finite timestamps and end times before start times. Feature
// engineering re-validates defensively but callers get the precise
// error from here.
func ValidateInteractions(interactions []Interaction) error {
	if len(interactions) < 2 {
		return ErrInsufficientData
	}
	for i, in := range interactions {
		if in.Skill == "" {
			return &ValidationError{Index: i, Field: "skill", Reason: "must be a non-empty string"}
		}
		if !isFinite(in.StartTime) {
			return &ValidationError{Index: i, Field: "startTime", Reason: "must be a finite number"}
		}
		if !isFinite(in.EndTime) {
			return &ValidationError{Index: i, Field: "endTime", Reason: "must be a finite number"}
		}
		if in.EndTime < in.StartTime {
			return &ValidationError{Index: i, Field: "endTime", Reason: "must be >= startTime"}
		}
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// SampleInteractions returns a small interaction log spanning four
// arithmetic skills, useful for smoke-testing the predict endpoint.
func SampleInteractions() []Interaction {
	now := float64(time.Now().Unix())
	return []Interaction{
		{Skill: "addition", Correct: true, StartTime: now - 1000, EndTime: now - 940},
		{Skill: "subtraction", Correct: false, StartTime: now - 900, EndTime: now - 830},
		{Skill: "addition", Correct: true, StartTime: now - 800, EndTime: now - 750},
		{Skill: "multiplication", Correct: true, StartTime: now - 700, EndTime: now - 620},
		{Skill: "division", Correct: false, StartTime: now - 600, EndTime: now - 540},
		{Skill: "multiplication", Correct: true, StartTime: now - 500, EndTime: now - 430},
		{Skill: "addition", Correct: true, StartTime: now - 400, EndTime: now - 350},
		{Skill: "subtraction", Correct: true, StartTime: now - 300, EndTime: now - 240},
	}
}
