package event

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// scoreRequestedSchema rejects malformed payloads before any
// unmarshalling happens, so the consumer can drop garbage messages
// with a precise reason instead of a decode panic.
const scoreRequestedSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["eventId", "eventType", "userId", "interactions"],
	"properties": {
		"eventId": {"type": "string", "minLength": 1},
		"eventType": {"type": "string", "minLength": 1},
		"userId": {"type": "string", "minLength": 1},
		"interactions": {
			"type": "array",
			"minItems": 2,
			"items": {
				"type": "object",
				"required": ["skill", "correct", "startTime", "endTime"],
				"properties": {
					"skill": {"type": "string", "minLength": 1},
					"correct": {"type": ["boolean", "integer"]},
					"startTime": {"type": "number"},
					"endTime": {"type": "number"}
				}
			}
		},
		"metadata": {"type": "object"}
	}
}`

var compiledScoreRequested = mustCompile(scoreRequestedSchema)

func mustCompile(schema string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		panic(fmt.Sprintf("invalid event schema: %v", err))
	}
	return s
}

// ValidateScoreRequested checks a raw message body against the
// score-request schema.
func ValidateScoreRequested(payload []byte) error {
	result, err := compiledScoreRequested.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if !result.Valid() {
		reasons := make([]string, 0, len(result.Errors()))
		for _, resErr := range result.Errors() {
			reasons = append(reasons, resErr.String())
		}
		return fmt.Errorf("invalid score request: %s", strings.Join(reasons, "; "))
	}
	return nil
}
