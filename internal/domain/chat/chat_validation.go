package chat

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ChatValidatorConfig holds the policy limits for conversations and messages.
type ChatValidatorConfig struct {
	MaxGroupParticipants int
	MaxNameLength        int
	MaxContentLength     int
}

// DefaultChatValidatorConfig returns the standard limits.
func DefaultChatValidatorConfig() *ChatValidatorConfig {
	return &ChatValidatorConfig{
		MaxGroupParticipants: 50,
		MaxNameLength:        100,
		MaxContentLength:     5000,
	}
}

// ChatValidator validates conversation and message inputs.
type ChatValidator struct {
	config *ChatValidatorConfig
}

// NewChatValidator creates a validator, using defaults when config is nil.
func NewChatValidator(config *ChatValidatorConfig) *ChatValidator {
	if config == nil {
		config = DefaultChatValidatorConfig()
	}
	return &ChatValidator{config: config}
}

// MaxGroupParticipants exposes the group cap for service level checks.
func (v *ChatValidator) MaxGroupParticipants() int {
	return v.config.MaxGroupParticipants
}

// ValidateGroupName checks the name required for group conversations.
func (v *ChatValidator) ValidateGroupName(name *string) error {
	if name == nil || strings.TrimSpace(*name) == "" {
		return fmt.Errorf("group conversations require a name")
	}
	if utf8.RuneCountInString(*name) > v.config.MaxNameLength {
		return fmt.Errorf("name exceeds %d characters", v.config.MaxNameLength)
	}
	return nil
}

// ValidateContent bounds message content length, counted in runes so
// multibyte text is not over-restricted. Empty content is allowed here; the
// send path separately requires content or an attachment.
func (v *ChatValidator) ValidateContent(content string) error {
	if utf8.RuneCountInString(content) > v.config.MaxContentLength {
		return fmt.Errorf("content exceeds %d characters", v.config.MaxContentLength)
	}
	return nil
}
