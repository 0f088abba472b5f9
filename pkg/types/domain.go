package types

import (
	"strings"
	"time"
)

// Kind identifies which remote service an instance lives in.
type Kind string

const (
	KindClassifier Kind = "classifier"
	KindRanker     Kind = "ranker"
)

// Status is the lifecycle status of a remote instance in the domain vocabulary,
// independent of how the remote service spells it.
type Status string

const (
	StatusTraining    Status = "Training"
	StatusAvailable   Status = "Available"
	StatusFailed      Status = "Failed"
	StatusUnavailable Status = "Unavailable"
)

// ParseStatus maps a remote status string onto the domain vocabulary.
// Classifier services report "Training"/"Available"; ranker and cluster
// services report "NOT_AVAILABLE"/"READY". Unknown values map to Unavailable.
func ParseStatus(s string) Status {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AVAILABLE", "READY":
		return StatusAvailable
	case "TRAINING", "NOT_AVAILABLE":
		return StatusTraining
	case "FAILED":
		return StatusFailed
	default:
		return StatusUnavailable
	}
}

// Terminal reports whether polling should stop at this status.
func (s Status) Terminal() bool { return s != StatusTraining }

// Instance is one trained model (classifier or ranker) hosted remotely.
type Instance struct {
	// Opaque identifier issued by the remote service.
	// example: 3a84cfx63-nlc-1234
	ID string `json:"id" example:"3a84cfx63-nlc-1234"`
	// Logical name; successive training generations share it.
	// example: default-classifier
	Name string `json:"name" example:"default-classifier"`
	// Service kind the instance belongs to.
	// example: classifier
	Kind Kind `json:"kind" example:"classifier"`
	// Lifecycle status in the domain vocabulary.
	// example: Available
	Status Status `json:"status" example:"Available"`
	// Creation time reported by the remote service.
	CreatedAt time.Time `json:"created"`
	// Whole minutes spent training so far; only set while Training.
	// example: 12
	TrainingDurationMinutes int `json:"training_duration_minutes,omitempty" example:"12"`
}

// TrainingMinutes returns the whole minutes elapsed since createdAt at now,
// clamped at zero.
func TrainingMinutes(createdAt, now time.Time) int {
	if createdAt.IsZero() {
		return 0
	}
	d := int(now.Sub(createdAt) / time.Minute)
	if d < 0 {
		return 0
	}
	return d
}
