package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// EnvLogLevel is the name of the environment variable to change the logging
// level.
const EnvLogLevel = "GLOG"

// ComponentField is the field carrying the name of the logging component.
const ComponentField = "component"

const defaultLevel = zerolog.Disabled

var (
	logout = zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
		// Format the component
		FormatPrepare: func(e map[string]interface{}) error {
			e[ComponentField] = fmt.Sprintf("[%s]", e[ComponentField])
			return nil
		},
		// Change the order in which things appear
		PartsOrder: []string{
			zerolog.TimestampFieldName,
			zerolog.LevelFieldName,
			ComponentField,
			zerolog.MessageFieldName,
		},
		// Prevent the component from being printed again
		FieldsExclude: []string{ComponentField},
	}
)

// ParseLevel translates the value of GLOG into a zerolog level. Unknown values
// fall back to the default, which disables logging.
func ParseLevel(lvl string) zerolog.Level {
	switch lvl {
	case "error":
		return zerolog.ErrorLevel
	case "warn":
		return zerolog.WarnLevel
	case "info":
		return zerolog.InfoLevel
	case "debug":
		return zerolog.DebugLevel
	case "trace":
		return zerolog.TraceLevel
	case "no":
		return zerolog.Disabled
	default:
		return defaultLevel
	}
}

// GetLogger returns a formatted logger for the given component. The level is
// read from the GLOG environment variable.
func GetLogger(component string) zerolog.Logger {
	return NewLogger(logout, component, ParseLevel(os.Getenv(EnvLogLevel)))
}

// NewLogger returns a logger for the component writing to out.
func NewLogger(out io.Writer, component string, level zerolog.Level) zerolog.Logger {
	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str(ComponentField, component).
		Logger()
}
