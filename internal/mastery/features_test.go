package mastery

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

// arithmeticLog is a deterministic 8-interaction log across four skills,
// already in chronological order.
func arithmeticLog() []Interaction {
	base := 1700000000.0
	return []Interaction{
		{Skill: "addition", Correct: true, StartTime: base - 1000, EndTime: base - 940},
		{Skill: "subtraction", Correct: false, StartTime: base - 900, EndTime: base - 830},
		{Skill: "addition", Correct: true, StartTime: base - 800, EndTime: base - 750},
		{Skill: "multiplication", Correct: true, StartTime: base - 700, EndTime: base - 620},
		{Skill: "division", Correct: false, StartTime: base - 600, EndTime: base - 540},
		{Skill: "multiplication", Correct: true, StartTime: base - 500, EndTime: base - 430},
		{Skill: "addition", Correct: true, StartTime: base - 400, EndTime: base - 350},
		{Skill: "subtraction", Correct: true, StartTime: base - 300, EndTime: base - 240},
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestBuildFeatures_SkillIDsByFirstAppearance(t *testing.T) {
	table, err := BuildFeatures(arithmeticLog())
	if err != nil {
		t.Fatalf("BuildFeatures() error = %v", err)
	}

	want := map[string]int{
		"addition":       1,
		"subtraction":    2,
		"multiplication": 3,
		"division":       4,
	}
	if !reflect.DeepEqual(table.SkillIDs, want) {
		t.Errorf("SkillIDs = %v, want %v", table.SkillIDs, want)
	}
	if table.NumSkills != 4 {
		t.Errorf("NumSkills = %d, want 4", table.NumSkills)
	}
}

func TestBuildFeatures_PermutationInvariant(t *testing.T) {
	ordered := arithmeticLog()
	shuffled := []Interaction{
		ordered[5], ordered[0], ordered[7], ordered[2],
		ordered[4], ordered[1], ordered[6], ordered[3],
	}

	want, err := BuildFeatures(ordered)
	if err != nil {
		t.Fatalf("BuildFeatures(ordered) error = %v", err)
	}
	got, err := BuildFeatures(shuffled)
	if err != nil {
		t.Fatalf("BuildFeatures(shuffled) error = %v", err)
	}

	if !reflect.DeepEqual(got, want) {
		t.Error("BuildFeatures() should produce identical tables for permuted input")
	}
}

func TestBuildFeatures_TiedStartTimesKeepInputOrder(t *testing.T) {
	// No secondary sort key exists, so ties resolve by input order.
	interactions := []Interaction{
		{Skill: "geometry", Correct: true, StartTime: 500, EndTime: 530},
		{Skill: "algebra", Correct: false, StartTime: 500, EndTime: 560},
		{Skill: "fractions", Correct: true, StartTime: 400, EndTime: 450},
	}

	table, err := BuildFeatures(interactions)
	if err != nil {
		t.Fatalf("BuildFeatures() error = %v", err)
	}

	gotSkills := []string{table.Rows[0].Skill, table.Rows[1].Skill, table.Rows[2].Skill}
	wantSkills := []string{"fractions", "geometry", "algebra"}
	if !reflect.DeepEqual(gotSkills, wantSkills) {
		t.Errorf("sorted skills = %v, want %v", gotSkills, wantSkills)
	}
	if got := table.SkillIDs["fractions"]; got != 1 {
		t.Errorf("SkillIDs[fractions] = %d, want 1", got)
	}
	if got := table.SkillIDs["geometry"]; got != 2 {
		t.Errorf("SkillIDs[geometry] = %d, want 2", got)
	}
}

func TestBuildFeatures_MinimumRows(t *testing.T) {
	_, err := BuildFeatures(arithmeticLog()[:1])
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("BuildFeatures(1 row) error = %v, want ErrInsufficientData", err)
	}

	table, err := BuildFeatures(arithmeticLog()[:2])
	if err != nil {
		t.Fatalf("BuildFeatures(2 rows) error = %v", err)
	}
	if len(table.Rows) != 2 {
		t.Errorf("len(Rows) = %d, want 2", len(table.Rows))
	}
}

func TestBuildFeatures_DropsIncompleteRows(t *testing.T) {
	interactions := append(arithmeticLog()[:2],
		Interaction{Skill: "", Correct: true, StartTime: 100, EndTime: 110},
		Interaction{Skill: "geometry", Correct: true, StartTime: math.NaN(), EndTime: 110},
	)

	table, err := BuildFeatures(interactions)
	if err != nil {
		t.Fatalf("BuildFeatures() error = %v", err)
	}
	if len(table.Rows) != 2 {
		t.Errorf("len(Rows) = %d, want 2 (incomplete rows dropped)", len(table.Rows))
	}

	// Dropping incomplete rows can leave too few usable ones.
	_, err = BuildFeatures([]Interaction{
		{Skill: "algebra", Correct: true, StartTime: 100, EndTime: 160},
		{Skill: "", Correct: true, StartTime: 200, EndTime: 210},
	})
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("BuildFeatures() error = %v, want ErrInsufficientData", err)
	}
}

func TestBuildFeatures_ClipsTimeTaken(t *testing.T) {
	interactions := []Interaction{
		// 400s attempt, above the 300s cap.
		{Skill: "algebra", Correct: true, StartTime: 1000, EndTime: 1400},
		// Malformed negative duration clamps to zero.
		{Skill: "algebra", Correct: false, StartTime: 2000, EndTime: 1900},
	}

	table, err := BuildFeatures(interactions)
	if err != nil {
		t.Fatalf("BuildFeatures() error = %v", err)
	}
	if got := table.Rows[0].TimeTaken; got != 300 {
		t.Errorf("TimeTaken = %v, want 300", got)
	}
	if got := table.Rows[1].TimeTaken; got != 0 {
		t.Errorf("TimeTaken = %v, want 0", got)
	}
}

func TestBuildFeatures_ClipsTimeSinceLast(t *testing.T) {
	// Second attempt more than 24h after the first.
	interactions := []Interaction{
		{Skill: "algebra", Correct: true, StartTime: 0, EndTime: 60},
		{Skill: "algebra", Correct: true, StartTime: 200000, EndTime: 200060},
	}

	table, err := BuildFeatures(interactions)
	if err != nil {
		t.Fatalf("BuildFeatures() error = %v", err)
	}
	if got := table.Rows[0].TimeSinceLast; got != 0 {
		t.Errorf("first row TimeSinceLast = %v, want 0", got)
	}
	if got := table.Rows[1].TimeSinceLast; got != 86400 {
		t.Errorf("TimeSinceLast = %v, want 86400 (24h cap)", got)
	}
	if got := table.Rows[1].TimeSinceLastScaled; !almostEqual(got, 1.0) {
		t.Errorf("TimeSinceLastScaled = %v, want ~1.0", got)
	}
}

func TestBuildFeatures_DifficultySmoothing(t *testing.T) {
	// One incorrect observation: raw difficulty 1.0 shrinks toward the
	// 0.5 prior: (1*1 + 0.5*10) / (1+10) = 6/11.
	interactions := []Interaction{
		{Skill: "calculus", Correct: false, StartTime: 100, EndTime: 160},
		{Skill: "algebra", Correct: true, StartTime: 200, EndTime: 260},
	}
	table, err := BuildFeatures(interactions)
	if err != nil {
		t.Fatalf("BuildFeatures() error = %v", err)
	}
	if got, want := table.Rows[0].SkillDifficulty, 6.0/11.0; !almostEqual(got, want) {
		t.Errorf("SkillDifficulty = %v, want %v", got, want)
	}
	// One correct observation: (0*1 + 0.5*10) / 11 = 5/11.
	if got, want := table.Rows[1].SkillDifficulty, 5.0/11.0; !almostEqual(got, want) {
		t.Errorf("SkillDifficulty = %v, want %v", got, want)
	}
}

func TestBuildFeatures_DifficultySmoothing_HighN(t *testing.T) {
	// 1000 incorrect observations: smoothing is negligible,
	// (1*1000 + 5) / 1010 stays close to 1.
	interactions := make([]Interaction, 1000)
	for i := range interactions {
		start := float64(i * 100)
		interactions[i] = Interaction{Skill: "topology", Correct: false, StartTime: start, EndTime: start + 30}
	}

	table, err := BuildFeatures(interactions)
	if err != nil {
		t.Fatalf("BuildFeatures() error = %v", err)
	}
	want := 1005.0 / 1010.0
	if got := table.Rows[0].SkillDifficulty; !almostEqual(got, want) {
		t.Errorf("SkillDifficulty = %v, want %v", got, want)
	}
	if got := table.Rows[0].SkillDifficulty; got >= 1.0 || got < 0.99 {
		t.Errorf("SkillDifficulty = %v, want close to but below 1.0", got)
	}
}

func TestBuildFeatures_RunningAggregates(t *testing.T) {
	table, err := BuildFeatures(arithmeticLog())
	if err != nil {
		t.Fatalf("BuildFeatures() error = %v", err)
	}

	wantAttempts := []int{1, 1, 2, 1, 1, 2, 3, 2}
	for i, want := range wantAttempts {
		if got := table.Rows[i].AttemptCount; got != want {
			t.Errorf("Rows[%d].AttemptCount = %d, want %d", i, got, want)
		}
	}

	wantAvg := []float64{1, 0.5, 2.0 / 3, 0.75, 0.6, 4.0 / 6, 5.0 / 7, 0.75}
	for i, want := range wantAvg {
		if got := table.Rows[i].StudentAvgCorrectness; !almostEqual(got, want) {
			t.Errorf("Rows[%d].StudentAvgCorrectness = %v, want %v", i, got, want)
		}
	}
}

func TestBuildFeatures_InteractionFeature(t *testing.T) {
	table, err := BuildFeatures(arithmeticLog())
	if err != nil {
		t.Fatalf("BuildFeatures() error = %v", err)
	}

	// skill_id + (1-correct)*num_skills with num_skills = 4, so
	// incorrect attempts land in the 5..8 range.
	want := []int{1, 6, 1, 3, 8, 3, 1, 2}
	for i, w := range want {
		if got := table.Rows[i].InteractionFeature; got != w {
			t.Errorf("Rows[%d].InteractionFeature = %d, want %d", i, got, w)
		}
	}
}

func TestBuildFeatures_IdenticalTimestampsStayFinite(t *testing.T) {
	// All durations and gaps zero: every scaled feature must degrade
	// to zero, not NaN.
	interactions := []Interaction{
		{Skill: "algebra", Correct: true, StartTime: 100, EndTime: 100},
		{Skill: "algebra", Correct: false, StartTime: 100, EndTime: 100},
	}

	table, err := BuildFeatures(interactions)
	if err != nil {
		t.Fatalf("BuildFeatures() error = %v", err)
	}
	for i, row := range table.Rows {
		if row.TimeTakenScaled != 0 {
			t.Errorf("Rows[%d].TimeTakenScaled = %v, want 0", i, row.TimeTakenScaled)
		}
		if row.TimeSinceLastScaled != 0 {
			t.Errorf("Rows[%d].TimeSinceLastScaled = %v, want 0", i, row.TimeSinceLastScaled)
		}
	}
}
