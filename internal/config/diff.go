package config

import "reflect"

// ConfigDiff describes what changed between two configs.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// ScoringChanged is set when the match threshold or a weight changed.
	ScoringChanged bool

	// FeedbackChanged is set when any feedback setting changed, including
	// providers and breaker tuning.
	FeedbackChanged bool

	ExercisesChanged bool
	UserChanged      bool

	// RestartRequired lists changed keys that only take effect on restart.
	RestartRequired []string
}

// Changed reports whether d contains any change.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.ScoringChanged || d.FeedbackChanged ||
		d.ExercisesChanged || d.UserChanged || len(d.RestartRequired) > 0
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.LogLevel != new.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.LogLevel
	}
	d.ScoringChanged = old.Scoring != new.Scoring
	d.FeedbackChanged = !reflect.DeepEqual(old.Feedback, new.Feedback)
	d.ExercisesChanged = old.Exercises != new.Exercises
	d.UserChanged = old.User != new.User

	if old.History.Path != new.History.Path {
		d.RestartRequired = append(d.RestartRequired, "history.path")
	}
	if old.Telemetry.ServiceName != new.Telemetry.ServiceName {
		d.RestartRequired = append(d.RestartRequired, "telemetry.service_name")
	}
	if old.Telemetry.MetricsTextfile != new.Telemetry.MetricsTextfile {
		d.RestartRequired = append(d.RestartRequired, "telemetry.metrics_textfile")
	}
	return d
}
