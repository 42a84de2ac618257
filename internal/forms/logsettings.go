package forms

import (
	"strings"

	"github.com/dukerupert/certadmin/internal/admin"
)

// LogSettings edits one log instance (transactions, system or error log).
type LogSettings struct {
	*scopeForm
}

func NewLogSettings(client *admin.Client, scope admin.Scope) *LogSettings {
	return &LogSettings{&scopeForm{
		name:   "log/" + string(scope),
		client: client,
		dest:   admin.DestLog,
		scope:  scope,
		rid:    admin.RequestConfig,
		fields: newFields(
			admin.ParamLogEnabled,
			admin.ParamLogLevel,
			admin.ParamLogBufferSize,
			admin.ParamLogMaxFileSize,
			admin.ParamLogRolloverInterval,
		),
		checks: []check{
			func(f *fields) error {
				if !f.active(admin.ParamLogEnabled) {
					return nil
				}
				_, err := ParseBool(admin.ParamLogEnabled, f.get(admin.ParamLogEnabled))
				return err
			},
			minInt(admin.ParamLogLevel, 0),
			minInt(admin.ParamLogBufferSize, 1),
			minInt(admin.ParamLogMaxFileSize, 1),
			minInt(admin.ParamLogRolloverInterval, 1),
		},
	}}
}

// Enabled compares the stored token case-insensitively. The token itself is
// kept verbatim so a save sends back exactly what was read.
func (l *LogSettings) Enabled() bool {
	return strings.EqualFold(l.Get(admin.ParamLogEnabled), "true")
}

// SetEnabled changes the flag only when it actually differs, so an unchanged
// "True" is not rewritten as "true".
func (l *LogSettings) SetEnabled(on bool) {
	if l.Enabled() == on && l.Get(admin.ParamLogEnabled) != "" {
		return
	}
	l.fields.set(admin.ParamLogEnabled, FormatBool(on))
}

func (l *LogSettings) Level() string { return l.Get(admin.ParamLogLevel) }

func (l *LogSettings) BufferSize() string { return l.Get(admin.ParamLogBufferSize) }

func (l *LogSettings) MaxFileSize() string { return l.Get(admin.ParamLogMaxFileSize) }

func (l *LogSettings) RolloverInterval() string { return l.Get(admin.ParamLogRolloverInterval) }

// rolloverIntervals maps the named choices of the console to seconds.
var rolloverIntervals = map[string]string{
	"hourly":  "3600",
	"daily":   "86400",
	"weekly":  "604800",
	"monthly": "2592000",
	"yearly":  "31536000",
}

// SetRolloverInterval accepts seconds or one of hourly, daily, weekly,
// monthly, yearly.
func (l *LogSettings) SetRolloverInterval(v string) {
	if secs, ok := rolloverIntervals[strings.ToLower(strings.TrimSpace(v))]; ok {
		v = secs
	}
	l.fields.set(admin.ParamLogRolloverInterval, v)
}

func minInt(name string, min int) check {
	return func(f *fields) error {
		if !f.active(name) {
			return nil
		}
		_, err := ParseMinInt(name, f.get(name), min)
		return err
	}
}

// required checks name whether or not the server has provided it.
func required(name string) check {
	return func(f *fields) error {
		return RequireNonBlank(name, f.get(name))
	}
}
