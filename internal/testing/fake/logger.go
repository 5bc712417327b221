package fake

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// LogEntry is a decoded line written by a logger returned by CheckLog.
type LogEntry map[string]interface{}

// CheckLog returns a logger and a check function. The check fails the test
// unless the logger wrote an entry with the level and the message, and
// returns the fields of the first such entry.
func CheckLog(level zerolog.Level, msg string) (zerolog.Logger, func(t *testing.T) LogEntry) {
	buffer := new(bytes.Buffer)

	check := func(t *testing.T) LogEntry {
		dec := json.NewDecoder(bytes.NewReader(buffer.Bytes()))

		for dec.More() {
			var entry LogEntry

			require.NoError(t, dec.Decode(&entry))

			if entry[zerolog.LevelFieldName] == level.String() &&
				entry[zerolog.MessageFieldName] == msg {
				return entry
			}
		}

		require.Failf(t, "log entry not found", "%s '%s' in:\n%s", level, msg, buffer)

		return nil
	}

	return zerolog.New(buffer), check
}
