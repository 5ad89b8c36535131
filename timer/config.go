package timer

import (
	"fmt"
	"strings"
)

// MaxDescriptionWords bounds descriptions entered through the UI.
const MaxDescriptionWords = 50

// MaxTotalSeconds is the longest accepted duration, 99:59:59.
const MaxTotalSeconds = 99*3600 + 59*60 + 59

var errTooLong = &ValidationError{Field: "duration", Reason: "duration must be at most 99:59:59"}

// ValidationError reports user input that cannot become a timer.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TimerConfig holds what the user supplies when creating a timer.
type TimerConfig struct {
	Name         string
	TotalSeconds int
	Description  string
	SoundPath    string
}

// Normalize trims surrounding whitespace from the text fields.
func (c TimerConfig) Normalize() TimerConfig {
	c.Name = strings.TrimSpace(c.Name)
	c.Description = strings.TrimSpace(c.Description)
	c.SoundPath = strings.TrimSpace(c.SoundPath)
	return c
}

// Validate checks the fields the engine depends on.
func (c TimerConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return &ValidationError{Field: "name", Reason: "timer name is required"}
	}
	if c.TotalSeconds < 1 {
		return &ValidationError{Field: "duration", Reason: "duration must be greater than 0"}
	}
	if c.TotalSeconds > MaxTotalSeconds {
		return errTooLong
	}
	return nil
}

// WordCount counts whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// ValidateDescription enforces MaxDescriptionWords. The engine itself accepts
// any description; this check belongs to the input layer.
func ValidateDescription(s string) error {
	if n := WordCount(s); n > MaxDescriptionWords {
		return &ValidationError{
			Field:  "description",
			Reason: fmt.Sprintf("%d words exceeds the limit of %d", n, MaxDescriptionWords),
		}
	}
	return nil
}
