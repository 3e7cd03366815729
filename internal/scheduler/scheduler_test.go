package scheduler

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateScheduleInterval(t *testing.T) {
	tests := []struct {
		name      string
		interval  string
		wantError bool
	}{
		// Empty interval
		{"empty interval", "", false},

		// Valid minute durations
		{"valid 1m", "1m", false},
		{"valid 5m", "5m", false},
		{"valid 10m", "10m", false},
		{"valid 15m", "15m", false},
		{"valid 30m", "30m", false},

		// Valid hour durations
		{"valid 1h", "1h", false},
		{"valid 2h", "2h", false},
		{"valid 6h", "6h", false},
		{"valid 12h", "12h", false},
		{"valid 24h", "24h", false},

		// Valid second durations
		{"valid 1s", "1s", false},
		{"valid 5s", "5s", false},
		{"valid 30s", "30s", false},

		// Invalid minute durations
		{"invalid 7m", "7m", true},
		{"invalid 13m", "13m", true},
		{"invalid 45m", "45m", true},

		// Invalid hour durations
		{"invalid 5h", "5h", true},
		{"invalid 7h", "7h", true},
		{"invalid 11h", "11h", true},

		// Invalid second durations
		{"invalid 7s", "7s", true},
		{"invalid 13s", "13s", true},

		// Valid cron expressions (5 fields)
		{"cron every 5 min", "*/5 * * * *", false},
		{"cron every 2 hours", "0 */2 * * *", false},
		{"cron complex", "0 9,17 * * 1-5", false},
		{"cron at midnight", "0 0 * * *", false},

		// Valid cron expressions (6 fields with seconds)
		{"cron 6 fields", "*/30 * * * * *", false},
		{"cron with seconds at hour start", "0 0 * * * *", false},

		// Invalid cron expressions
		{"cron too few fields", "*/5 * * *", true},
		{"cron 1 field", "*/5", true},
		{"cron 2 fields", "*/5 *", true},
		{"cron 3 fields", "*/5 * *", true},

		// Invalid format
		{"non-duration non-cron", "invalid", true},
		{"mixed units", "1h30m", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateScheduleInterval(tt.interval)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDurationToCron(t *testing.T) {
	tests := []struct {
		name     string
		duration string
		want     string
		wantErr  bool
	}{
		// Minutes
		{"1 minute", "1m", "*/1 * * * *", false},
		{"5 minutes", "5m", "*/5 * * * *", false},
		{"10 minutes", "10m", "*/10 * * * *", false},
		{"15 minutes", "15m", "*/15 * * * *", false},
		{"30 minutes", "30m", "*/30 * * * *", false},

		// Hours
		{"1 hour", "1h", "0 */1 * * *", false},
		{"2 hours", "2h", "0 */2 * * *", false},
		{"6 hours", "6h", "0 */6 * * *", false},
		{"12 hours", "12h", "0 */12 * * *", false},
		{"24 hours", "24h", "0 */24 * * *", false},

		// Seconds
		{"1 second", "1s", "*/1 * * * * *", false},
		{"5 seconds", "5s", "*/5 * * * * *", false},
		{"30 seconds", "30s", "*/30 * * * * *", false},

		// Invalid minutes
		{"7 minutes", "7m", "", true},
		{"13 minutes", "13m", "", true},

		// Invalid hours
		{"5 hours", "5h", "", true},
		{"11 hours", "11h", "", true},

		// Invalid seconds
		{"7 seconds", "7s", "", true},
		{"13 seconds", "13s", "", true},

		// Invalid format
		{"non-duration", "invalid", "", true},
		{"mixed units", "1h30m", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := durationToCron(tt.duration)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsCronExpression(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"5-field cron", "*/5 * * * *", true},
		{"6-field cron", "*/30 * * * * *", true},
		{"duration 5m", "5m", false},
		{"duration 1h", "1h", false},
		{"invalid", "not a cron", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isCronExpression(tt.input))
		})
	}
}

func TestGocronLoggerAdapter(t *testing.T) {
	adapter := newGocronLoggerAdapter(slog.Default())
	require.NotNil(t, adapter)

	// None of the levels should panic
	adapter.Debug("debug message", "key", "value")
	adapter.Info("info message", "key", "value")
	adapter.Warn("warn message", "key", "value")
	adapter.Error("error message", "key", "value")
}
