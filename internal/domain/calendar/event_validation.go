package calendar

import (
	"fmt"
	"time"
)

// EventValidatorConfig holds limits applied to incoming events.
type EventValidatorConfig struct {
	MaxTitleLength       int
	MaxDescriptionLength int
	MaxQueryWindowDays   int
}

// DefaultEventValidatorConfig returns the standard limits.
func DefaultEventValidatorConfig() *EventValidatorConfig {
	return &EventValidatorConfig{
		MaxTitleLength:       255,
		MaxDescriptionLength: 2000,
		MaxQueryWindowDays:   366,
	}
}

// EventValidator validates event payloads and query windows.
type EventValidator struct {
	config *EventValidatorConfig
}

// NewEventValidator creates a validator, using defaults when config is nil.
func NewEventValidator(config *EventValidatorConfig) *EventValidator {
	if config == nil {
		config = DefaultEventValidatorConfig()
	}
	return &EventValidator{config: config}
}

// ValidateEvent checks the structural rules common to create and update.
func (v *EventValidator) ValidateEvent(ev *Event) error {
	if ev.Title == "" {
		return fmt.Errorf("title is required")
	}
	if len(ev.Title) > v.config.MaxTitleLength {
		return fmt.Errorf("title exceeds %d characters", v.config.MaxTitleLength)
	}
	if ev.Description != nil && len(*ev.Description) > v.config.MaxDescriptionLength {
		return fmt.Errorf("description exceeds %d characters", v.config.MaxDescriptionLength)
	}
	if ev.EndDate.Before(ev.StartDate) {
		return fmt.Errorf("endDate must not be before startDate")
	}
	if ev.IsRecurring {
		if _, err := ParseRule(ev.RecurringRule); err != nil {
			return fmt.Errorf("invalid recurring rule: %w", err)
		}
	}
	return nil
}

// ValidateRange checks an occurrence query window.
func (v *EventValidator) ValidateRange(from, to time.Time) error {
	if to.Before(from) {
		return fmt.Errorf("range end before range start")
	}
	maxWindow := time.Duration(v.config.MaxQueryWindowDays) * 24 * time.Hour
	if to.Sub(from) > maxWindow {
		return fmt.Errorf("range exceeds %d days", v.config.MaxQueryWindowDays)
	}
	return nil
}
