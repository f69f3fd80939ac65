package mastery

import (
	"math"
	"sort"
)

const (
	// maxTimeTaken caps a single attempt's duration in seconds.
	maxTimeTaken = 300
	// maxTimeSinceLast caps the gap between attempts at 24 hours.
	maxTimeSinceLast = 86400

	// difficultyPrior and difficultyPriorWeight shrink the per-skill
	// empirical difficulty toward a neutral prior, stabilizing skills
	// with few observations.
	difficultyPrior       = 0.5
	difficultyPriorWeight = 10

	// epsilon guards every scaling denominator so a degenerate input
	// (all durations zero, single attempt per skill) scales to zero
	// instead of dividing by zero.
	epsilon = 1e-9
)

// FeatureRow holds the derived features for one interaction, in
// traversal order.
type FeatureRow struct {
	Skill     string
	Correct   int
	StartTime float64
	EndTime   float64

	TimeTaken             float64
	TimeTakenScaled       float64
	TimeSinceLast         float64
	TimeSinceLastScaled   float64
	SkillID               int
	SkillDifficulty       float64
	AttemptCount          int
	AttemptCountScaled    float64
	StudentAvgCorrectness float64
	InteractionFeature    int
}

// FeatureTable is the per-request feature matrix plus the request-scoped
// skill numbering that produced it. SkillIDs is built fresh from the
// observed skill set on every call; it drives input encoding only, never
// the trained model's output vocabulary.
type FeatureTable struct {
	Rows      []FeatureRow
	SkillIDs  map[string]int
	NumSkills int
}

// BuildFeatures turns a raw interaction log into a dense feature table.
//
// Rows with a missing skill or non-finite timestamps are dropped, the
// remainder is stably sorted by start time (ties keep input order), and
// every running feature is computed over that sorted order. Negative
// durations are clamped rather than rejected; the API boundary has
// already refused them, and clamping keeps the stage total.
func BuildFeatures(interactions []Interaction) (*FeatureTable, error) {
	rows := make([]FeatureRow, 0, len(interactions))
	for _, in := range interactions {
		if in.Skill == "" || !isFinite(in.StartTime) || !isFinite(in.EndTime) {
			continue
		}
		correct := 0
		if in.Correct {
			correct = 1
		}
		rows = append(rows, FeatureRow{
			Skill:     in.Skill,
			Correct:   correct,
			StartTime: in.StartTime,
			EndTime:   in.EndTime,
		})
	}
	if len(rows) < 2 {
		return nil, ErrInsufficientData
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].StartTime < rows[j].StartTime
	})

	// Time taken per attempt, log-scaled against the request maximum.
	maxLogTime := 0.0
	for i := range rows {
		taken := clip(rows[i].EndTime-rows[i].StartTime, 0, maxTimeTaken)
		rows[i].TimeTaken = taken
		if lg := math.Log1p(taken); lg > maxLogTime {
			maxLogTime = lg
		}
	}
	for i := range rows {
		rows[i].TimeTakenScaled = math.Log1p(rows[i].TimeTaken) / (maxLogTime + epsilon)
	}

	// Gap since the previous attempt in sorted order.
	gapDenom := math.Log1p(maxTimeSinceLast) + epsilon
	for i := range rows {
		gap := 0.0
		if i > 0 {
			gap = clip(rows[i].StartTime-rows[i-1].StartTime, 0, maxTimeSinceLast)
		}
		rows[i].TimeSinceLast = gap
		rows[i].TimeSinceLastScaled = math.Log1p(gap) / gapDenom
	}

	// Dense skill ids by first appearance, starting at 1.
	skillIDs := make(map[string]int)
	for i := range rows {
		id, ok := skillIDs[rows[i].Skill]
		if !ok {
			id = len(skillIDs) + 1
			skillIDs[rows[i].Skill] = id
		}
		rows[i].SkillID = id
	}
	numSkills := len(skillIDs)

	// Smoothed empirical difficulty per skill, broadcast to every row.
	correctSum := make([]int, numSkills+1)
	attempts := make([]int, numSkills+1)
	for i := range rows {
		correctSum[rows[i].SkillID] += rows[i].Correct
		attempts[rows[i].SkillID]++
	}
	difficulty := make([]float64, numSkills+1)
	for id := 1; id <= numSkills; id++ {
		n := float64(attempts[id])
		raw := 1 - float64(correctSum[id])/n
		difficulty[id] = (raw*n + difficultyPrior*difficultyPriorWeight) / (n + difficultyPriorWeight)
	}
	for i := range rows {
		rows[i].SkillDifficulty = difficulty[rows[i].SkillID]
	}

	// Running per-skill attempt count, 1-based and inclusive.
	seen := make([]int, numSkills+1)
	maxAttempt := 0
	for i := range rows {
		seen[rows[i].SkillID]++
		rows[i].AttemptCount = seen[rows[i].SkillID]
		if rows[i].AttemptCount > maxAttempt {
			maxAttempt = rows[i].AttemptCount
		}
	}
	attemptDenom := math.Log1p(float64(maxAttempt)) + epsilon
	for i := range rows {
		rows[i].AttemptCountScaled = math.Log1p(float64(rows[i].AttemptCount)) / attemptDenom
	}

	// Running mean correctness over the whole sequence, plus the
	// combined skill/correctness categorical id.
	cumCorrect := 0
	for i := range rows {
		cumCorrect += rows[i].Correct
		rows[i].StudentAvgCorrectness = float64(cumCorrect) / float64(i+1)
		rows[i].InteractionFeature = rows[i].SkillID + (1-rows[i].Correct)*numSkills
	}

	table := &FeatureTable{Rows: rows, SkillIDs: skillIDs, NumSkills: numSkills}
	if err := table.checkFinite(); err != nil {
		return nil, err
	}
	return table, nil
}

func (t *FeatureTable) checkFinite() error {
	for i, r := range t.Rows {
		for _, f := range [...]struct {
			name  string
			value float64
		}{
			{"time_taken_scaled", r.TimeTakenScaled},
			{"time_since_last_scaled", r.TimeSinceLastScaled},
			{"skill_difficulty", r.SkillDifficulty},
			{"attempt_count_scaled", r.AttemptCountScaled},
			{"student_avg_correctness", r.StudentAvgCorrectness},
		} {
			if !isFinite(f.value) {
				return &FeatureComputationError{Feature: f.name, Row: i}
			}
		}
	}
	return nil
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
