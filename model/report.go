package model

import (
	"time"

	"github.com/google/uuid"
)

// Report is the complete result of enriching one report text
type Report struct {
	RID          uuid.UUID        `json:"rid"`
	CreatedAt    time.Time        `json:"created_at"`
	Matches      *MatchResult     `json:"matches"`
	Annotation   AnnotationResult `json:"annotation"`
	Explanations []Explanation    `json:"explanations"`
}

// NewReport creates an empty report with a fresh request id
func NewReport() *Report {
	return &Report{
		RID:          uuid.New(),
		CreatedAt:    time.Now().UTC(),
		Explanations: []Explanation{},
	}
}
