// Package logging assembles the structured slog loggers used across
// commentator.
//
// New builds a console or JSON handler for the terminal and, when a log file
// is configured, fans every record out to a JSON-lines file as well. Helpers
// tag records with the component, the session id, and context fields such as
// the clip offset, so one generation flow can be followed from event to
// rendered clip. ProgressSampler thins ffmpeg progress output during export.
package logging
