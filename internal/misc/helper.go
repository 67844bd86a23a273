package misc

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Location returns the configured business time zone.
// Names unknown to the tz database fall back to UTC+5.
func Location() *time.Location {
	name := viper.GetString("timezone")
	if loc, err := time.LoadLocation(name); err == nil {
		return loc
	}
	return time.FixedZone(name, 5*60*60)
}

// ComponentLogger returns a child of log tagged with the component name
func ComponentLogger(log zerolog.Logger, component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}
