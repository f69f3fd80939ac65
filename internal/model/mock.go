package model

import "context"

// MockScorer is a test double that returns a uniform probability over a
// fixed number of skills. It is also used as the local-development
// scorer when no model endpoint is configured.
type MockScorer struct {
	NumSkills   int
	Probability float64
	Err         error

	Calls int
}

// NewMockScorer creates a MockScorer with a uniform distribution.
func NewMockScorer(numSkills int) *MockScorer {
	prob := 0.0
	if numSkills > 0 {
		prob = 1.0 / float64(numSkills)
	}
	return &MockScorer{NumSkills: numSkills, Probability: prob}
}

func (m *MockScorer) Score(_ context.Context, categorical [][]int, _ [][][]float64) ([][][]float64, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([][][]float64, len(categorical))
	for i := range out {
		steps := make([][]float64, len(categorical[i]))
		for p := range steps {
			probs := make([]float64, m.NumSkills)
			for j := range probs {
				probs[j] = m.Probability
			}
			steps[p] = probs
		}
		out[i] = steps
	}
	return out, nil
}

func (m *MockScorer) HealthCheck(_ context.Context) error {
	return m.Err
}
