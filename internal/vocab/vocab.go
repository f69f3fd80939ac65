// Package vocab loads the training-time skill vocabulary artifacts the
// scoring model was exported with. The vocabulary maps skill names to
// the model's output-layer ids; it is distinct from the request-scoped
// skill numbering built during feature engineering and the two are
// reconciled by name at decode time.
package vocab

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	mappingFile    = "skill_mapping.json"
	difficultyFile = "skill_difficulty.json"
	metaFile       = "config.yaml"
)

// Meta holds training metadata exported alongside the model.
type Meta struct {
	MaxSeqLen    int    `yaml:"max_seq_len"`
	NumSkills    int    `yaml:"num_skills"`
	ModelVersion string `yaml:"model_version"`
}

// Vocabulary is the fixed skill vocabulary. Immutable after Load, so it
// is safe for concurrent reads without locking.
type Vocabulary struct {
	nameToID   map[string]int
	idToName   map[int]string
	difficulty map[string]float64
	meta       Meta
}

// Load reads the vocabulary artifacts from dir. skill_mapping.json is
// required; skill_difficulty.json and config.yaml are optional.
func Load(dir string) (*Vocabulary, error) {
	data, err := os.ReadFile(filepath.Join(dir, mappingFile))
	if err != nil {
		return nil, fmt.Errorf("reading skill mapping: %w", err)
	}

	var nameToID map[string]int
	if err := json.Unmarshal(data, &nameToID); err != nil {
		return nil, fmt.Errorf("parsing skill mapping: %w", err)
	}
	if len(nameToID) == 0 {
		return nil, fmt.Errorf("skill mapping is empty")
	}

	idToName := make(map[int]string, len(nameToID))
	for name, id := range nameToID {
		if id < 1 {
			return nil, fmt.Errorf("skill %q has invalid id %d (ids start at 1)", name, id)
		}
		if other, dup := idToName[id]; dup {
			return nil, fmt.Errorf("skills %q and %q share id %d", other, name, id)
		}
		idToName[id] = name
	}

	v := &Vocabulary{
		nameToID:   nameToID,
		idToName:   idToName,
		difficulty: map[string]float64{},
	}

	if data, err := os.ReadFile(filepath.Join(dir, difficultyFile)); err == nil {
		if err := json.Unmarshal(data, &v.difficulty); err != nil {
			return nil, fmt.Errorf("parsing skill difficulty: %w", err)
		}
	}

	if data, err := os.ReadFile(filepath.Join(dir, metaFile)); err == nil {
		if err := yaml.Unmarshal(data, &v.meta); err != nil {
			return nil, fmt.Errorf("parsing model metadata: %w", err)
		}
	}

	slog.Info("skill vocabulary loaded",
		"dir", dir,
		"skills", len(v.nameToID),
		"model_version", v.meta.ModelVersion,
	)
	return v, nil
}

// SkillID returns the output-layer id for a skill name.
func (v *Vocabulary) SkillID(name string) (int, bool) {
	id, ok := v.nameToID[name]
	return id, ok
}

// SkillName returns the skill name for an output-layer id.
func (v *Vocabulary) SkillName(id int) (string, bool) {
	name, ok := v.idToName[id]
	return name, ok
}

// IDToName returns the id -> name mapping used by the decode stage.
func (v *Vocabulary) IDToName() map[int]string {
	return v.idToName
}

// Difficulty returns the pre-computed training difficulty for a skill.
func (v *Vocabulary) Difficulty(name string) (float64, bool) {
	d, ok := v.difficulty[name]
	return d, ok
}

// NumSkills returns the vocabulary size.
func (v *Vocabulary) NumSkills() int {
	return len(v.nameToID)
}

// Meta returns the training metadata, zero-valued when config.yaml was
// absent.
func (v *Vocabulary) Meta() Meta {
	return v.meta
}

// MaxSeqLen returns the trained input window, falling back to the given
// default when metadata did not record one.
func (v *Vocabulary) MaxSeqLen(fallback int) int {
	if v.meta.MaxSeqLen > 1 {
		return v.meta.MaxSeqLen
	}
	return fallback
}
