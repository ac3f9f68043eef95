package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle state of a notification job.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSent    Status = "SENT"
	StatusFailed  Status = "FAILED"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSent, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the status can no longer change.
func (s Status) IsTerminal() bool {
	return s == StatusSent || s == StatusFailed
}

func ParseStatusFromString(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid status %q", ErrValidation, s)
	}
	return st, nil
}

// Content limits (in characters).
const (
	MaxTitleLength = 255
	MaxBodyLength  = 2000
)

// MaxAttempts caps how many delivery cycles may touch a job. Once reached
// the job is no longer selectable, regardless of status.
const MaxAttempts = 10

// NotificationJob is the core domain entity: one notification owed to one user.
type NotificationJob struct {
	ID           string  `gorm:"type:uuid;primaryKey"`
	UserID       string  `gorm:"type:varchar(64);not null"`
	Title        string  `gorm:"type:varchar(255);not null"`
	Body         string  `gorm:"type:text;not null"`
	URL          *string `gorm:"type:text"`
	AttemptCount int     `gorm:"not null;default:0"`
	Status       Status  `gorm:"type:varchar(10);not null"`
	LastError    *string `gorm:"type:text"`
	CreatedAt    time.Time
	ProcessedAt  *time.Time
}

func (j *NotificationJob) Validate() error {
	if strings.TrimSpace(j.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if j.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if j.Body == "" {
		return fmt.Errorf("%w: body is required", ErrValidation)
	}
	if !j.Status.IsValid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, j.Status)
	}
	if j.AttemptCount < 0 {
		return fmt.Errorf("%w: attempt count must not be negative", ErrValidation)
	}

	if titleLen := len([]rune(j.Title)); titleLen > MaxTitleLength {
		return fmt.Errorf("%w: title exceeds %d characters (got %d)", ErrValidation, MaxTitleLength, titleLen)
	}
	if bodyLen := len([]rune(j.Body)); bodyLen > MaxBodyLength {
		return fmt.Errorf("%w: body exceeds %d characters (got %d)", ErrValidation, MaxBodyLength, bodyLen)
	}

	return nil
}
