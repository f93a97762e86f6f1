// Package validation checks settings before the engine or scheduler sees them.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/arthur-debert/rollover/types"
	"github.com/go-playground/validator/v10"
)

// timeOfDayPattern accepts H:MM, HH:MM and HH:MM:SS in 24h form
var timeOfDayPattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9](:[0-5][0-9])?$`)

// Limits for numeric settings, mirrored in the validate tags on types.Settings
const (
	maxDateLimit = 366
	minInterval  = time.Second
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("timeofday", func(fl validator.FieldLevel) bool {
		return timeOfDayPattern.MatchString(fl.Field().String())
	})
	return v
}

// Validate checks settings for consistency. Only the first problem is reported.
func Validate(s types.Settings) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("failed to validate settings: %w", err)
	}

	fe := fieldErrs[0]
	switch fe.StructField() {
	case "AutoRolloverTime":
		return timeOfDayError(s.AutoRolloverTime)
	case "DateLimit":
		if fe.Tag() == "gte" {
			return fmt.Errorf("date-limit cannot be negative: %d", s.DateLimit)
		}
		return fmt.Errorf("date-limit too large: %d (maximum %d)", s.DateLimit, maxDateLimit)
	case "MoveOrder":
		return fmt.Errorf("invalid move-order %q: must be %q or %q", s.MoveOrder, types.MoveOrderAppend, types.MoveOrderPrepend)
	case "Interval":
		return fmt.Errorf("interval too short: %s (minimum %s)", s.Interval, minInterval)
	}
	return fmt.Errorf("invalid %s: %v (%s)", fe.Field(), fe.Value(), fe.Tag())
}

// ValidateTimeOfDay checks an auto-rollover time string
func ValidateTimeOfDay(s string) error {
	if err := validate.Var(s, "timeofday"); err != nil {
		return timeOfDayError(s)
	}
	return nil
}

func timeOfDayError(s string) error {
	return fmt.Errorf("invalid auto-rollover time %q: expected HH:MM in 24 hour format", s)
}
