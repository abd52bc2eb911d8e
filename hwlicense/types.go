package hwlicense

import (
	"fmt"
	"time"
)

// KeyType distinguishes keys that never expire from time-limited ones.
type KeyType string

const (
	KeyTypePermanent KeyType = "permanent"
	KeyTypeTrial     KeyType = "trial"
)

const (
	// DefaultDurationDays applies when a record has no duration_days.
	DefaultDurationDays = 9999
	// PermanentThresholdDays is the sentinel: durations at or above it are
	// permanent rather than a literal number of days.
	PermanentThresholdDays = 9000
)

// Outcome is the result of a successful validation.
type Outcome struct {
	KeyType KeyType
	// DaysRemaining is nil for permanent keys.
	DaysRemaining *int
	// ActivationDate and ExpirationDate are set for trial keys only.
	ActivationDate *time.Time
	ExpirationDate *time.Time
}

// Message is the human-readable description of the outcome.
func (o *Outcome) Message() string {
	if o.KeyType == KeyTypePermanent {
		return "Permanent license activated."
	}
	if o.DaysRemaining == nil {
		return "License valid."
	}
	return fmt.Sprintf("License valid. Days remaining: %d", *o.DaysRemaining)
}

// ValidateRequest is the request body for the /validate endpoint.
type ValidateRequest struct {
	Key  string `json:"key"`
	HWID string `json:"hwid"`
}

// ValidateResponse is the body the /validate endpoint returns on success.
type ValidateResponse struct {
	Status        string  `json:"status"`
	Message       string  `json:"message"`
	KeyType       KeyType `json:"key_type,omitempty"`
	DaysRemaining *int    `json:"days_remaining,omitempty"`
}

// NewValidateResponse renders an outcome in its wire form.
func NewValidateResponse(o *Outcome) ValidateResponse {
	return ValidateResponse{
		Status:        "valid",
		Message:       o.Message(),
		KeyType:       o.KeyType,
		DaysRemaining: o.DaysRemaining,
	}
}
