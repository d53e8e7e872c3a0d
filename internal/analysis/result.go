package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for response validation.
var (
	// ErrEmptyResponse indicates the service returned no content.
	ErrEmptyResponse = errors.New("analysis service returned no content")
	// ErrMalformedResponse indicates the response did not parse against the
	// expected shape.
	ErrMalformedResponse = errors.New("malformed analysis response")
)

// ThreatLevel is one of four ordered severity categories.
type ThreatLevel string

const (
	ThreatLow      ThreatLevel = "Low"
	ThreatMedium   ThreatLevel = "Medium"
	ThreatHigh     ThreatLevel = "High"
	ThreatCritical ThreatLevel = "Critical"
)

// ThreatLevels returns the four valid levels in ascending severity.
func ThreatLevels() []ThreatLevel {
	return []ThreatLevel{ThreatLow, ThreatMedium, ThreatHigh, ThreatCritical}
}

// Valid reports whether t is one of the four known levels.
func (t ThreatLevel) Valid() bool {
	switch t {
	case ThreatLow, ThreatMedium, ThreatHigh, ThreatCritical:
		return true
	default:
		return false
	}
}

// Result is the structured report produced by the analysis service.
// All seven fields are required; a missing field is a parse error, never a
// silently-defaulted value.
type Result struct {
	Summary            string      `json:"summary"`
	Sentiment          string      `json:"sentiment"`
	ThreatLevel        ThreatLevel `json:"threatLevel"`
	KeyEvents          []string    `json:"keyEvents"`
	Recommendations    []string    `json:"recommendations"`
	CurrentSituation   string      `json:"currentSituation"`
	PredictedNextMoves []string    `json:"predictedNextMoves"`
}

// requiredFields are the seven keys every response must carry.
var requiredFields = []string{
	"summary",
	"sentiment",
	"threatLevel",
	"keyEvents",
	"recommendations",
	"currentSituation",
	"predictedNextMoves",
}

// Decode parses the textual service response as a Result, validating that
// every required field is present and the threat level is a known value.
func Decode(text string) (*Result, error) {
	text = stripCodeFence(text)
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyResponse
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	for _, field := range requiredFields {
		if _, ok := raw[field]; !ok {
			return nil, fmt.Errorf("%w: missing required field %q", ErrMalformedResponse, field)
		}
	}

	var result Result
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	if !result.ThreatLevel.Valid() {
		return nil, fmt.Errorf("%w: unknown threat level %q", ErrMalformedResponse, result.ThreatLevel)
	}

	return &result, nil
}

// stripCodeFence removes a surrounding markdown code fence, which some
// models wrap around JSON output despite the response MIME type.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)

	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")

	return strings.TrimSpace(text)
}
