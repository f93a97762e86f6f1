package types

import "time"

// MoveOrder selects where relocated todos land under a consolidated copy
type MoveOrder string

const (
	// MoveOrderAppend appends each todo, preserving original bucket order
	MoveOrderAppend MoveOrder = "append"
	// MoveOrderPrepend inserts each todo at index 0, reversing bucket order
	MoveOrderPrepend MoveOrder = "prepend"
)

// Settings holds every option the rollover engine and scheduler recognise
type Settings struct {
	// AutoRolloverTime is the local time of day ("HH:MM", 24h) after which
	// the automatic run becomes due
	AutoRolloverTime string `mapstructure:"auto-rollover" yaml:"auto-rollover" json:"auto_rollover" validate:"timeofday"`

	// PortalMode mirrors todos into today's document instead of moving them
	PortalMode bool `mapstructure:"portal-mode" yaml:"portal-mode" json:"portal_mode"`

	// DateLimit is how many days back daily documents are scanned
	DateLimit int `mapstructure:"date-limit" yaml:"date-limit" json:"date_limit" validate:"gte=0,lte=366"`

	// RetainCompleted records finished todos so they stay anchored in
	// their original daily document
	RetainCompleted bool `mapstructure:"retain-completed" yaml:"retain-completed" json:"retain_completed"`

	// Debug enables the verbose decision trace
	Debug bool `mapstructure:"debug" yaml:"debug" json:"debug"`

	// MoveOrder controls insertion under consolidated copies in move mode
	MoveOrder MoveOrder `mapstructure:"move-order" yaml:"move-order" json:"move_order" validate:"oneof=append prepend"`

	// Interval is the period of the background scheduler
	Interval time.Duration `mapstructure:"interval" yaml:"interval" json:"interval" validate:"gte=1s"`
}

// Default values for Settings
const (
	DefaultAutoRolloverTime = "23:00"
	DefaultDateLimit        = 7
	DefaultInterval         = 5 * time.Second
)

// DefaultSettings returns the settings used when nothing is configured
func DefaultSettings() Settings {
	return Settings{
		AutoRolloverTime: DefaultAutoRolloverTime,
		DateLimit:        DefaultDateLimit,
		MoveOrder:        MoveOrderAppend,
		Interval:         DefaultInterval,
	}
}
