package model

import "time"

// Setting keys stored in app_settings.
const (
	SettingEnabled          = "enabled"
	SettingBatchSize        = "batch_size"
	SettingRetentionHours   = "posts_retention_hours"
	SettingLastCounterReset = "last_counter_reset"
)

const (
	// DefaultBatchSize is the quick-stage candidate limit when none is configured.
	DefaultBatchSize = 20
	// DefaultRetentionHours is the retention window when none is configured.
	DefaultRetentionHours = 24
	// StageCap is the fixed candidate limit of the deep and deepest stages.
	StageCap = 20
	// ResetDateLayout is the layout of the last_counter_reset marker.
	ResetDateLayout = "2006-01-02"
)

// RunSettings is loaded once per invocation and passed explicitly to every component.
type RunSettings struct {
	Enabled          bool
	BatchSize        int
	RetentionHours   int
	LastCounterReset string
}

// DefaultRunSettings returns the settings used when app_settings has no rows.
func DefaultRunSettings() RunSettings {
	return RunSettings{
		Enabled:        true,
		BatchSize:      DefaultBatchSize,
		RetentionHours: DefaultRetentionHours,
	}
}

// Normalize replaces out-of-range values with defaults.
func (s *RunSettings) Normalize() {
	if s.BatchSize <= 0 {
		s.BatchSize = DefaultBatchSize
	}
	if s.RetentionHours <= 0 {
		s.RetentionHours = DefaultRetentionHours
	}
}

// Cutoff returns now minus the retention window.
func (s RunSettings) Cutoff(now time.Time) time.Time {
	return now.Add(-time.Duration(s.RetentionHours) * time.Hour)
}

// CountersDue reports whether the daily counter reset has not yet run for now's UTC date.
func (s RunSettings) CountersDue(now time.Time) bool {
	return s.LastCounterReset != now.UTC().Format(ResetDateLayout)
}
