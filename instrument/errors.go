package instrument

import (
	"errors"
	"fmt"
)

// ErrNoVoices is returned when an Instrument is asked to run without voices.
var ErrNoVoices = errors.New("instrument must have at least one voice")

// ConfigError reports an invalid Instrument configuration value.
type ConfigError struct {
	Field string
	Value any
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %v: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var errNilGenerator = errors.New("note frequency generator is nil")
