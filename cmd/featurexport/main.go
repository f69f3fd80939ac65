// Command featurexport runs the feature-engineering stage over an
// interaction log and writes the resulting feature table to an .xlsx
// workbook for offline inspection.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/edulytic/mastery-service/internal/mastery"
)

var header = []any{
	"skill", "correct", "start_time", "end_time",
	"time_taken", "time_taken_scaled",
	"time_since_last", "time_since_last_scaled",
	"skill_id", "skill_difficulty",
	"attempt_count", "attempt_count_scaled",
	"student_avg_correctness", "interaction_feature",
}

func main() {
	in := flag.String("in", "", "interaction log JSON file (array of interactions)")
	out := flag.String("out", "features.xlsx", "output workbook path")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if *in == "" {
		slog.Error("missing required -in flag")
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*in, *out); err != nil {
		slog.Error("export failed", "error", err)
		os.Exit(1)
	}
}

func run(inPath, outPath string) error {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("reading interaction log: %w", err)
	}

	var interactions []mastery.Interaction
	if err := json.Unmarshal(data, &interactions); err != nil {
		return fmt.Errorf("parsing interaction log: %w", err)
	}

	table, err := mastery.BuildFeatures(interactions)
	if err != nil {
		return fmt.Errorf("building features: %w", err)
	}

	if err := writeWorkbook(table, outPath); err != nil {
		return err
	}

	slog.Info("feature table written",
		"path", outPath,
		"rows", len(table.Rows),
		"skills", table.NumSkills,
	)
	return nil
}

func writeWorkbook(table *mastery.FeatureTable, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Features"
	f.SetSheetName("Sheet1", sheet)

	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, row := range table.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		values := []any{
			row.Skill, row.Correct, row.StartTime, row.EndTime,
			row.TimeTaken, row.TimeTakenScaled,
			row.TimeSinceLast, row.TimeSinceLastScaled,
			row.SkillID, row.SkillDifficulty,
			row.AttemptCount, row.AttemptCountScaled,
			row.StudentAvgCorrectness, row.InteractionFeature,
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}
