// Package commentary produces commentary lines from race events.
//
// A Generator owns the session's conversation window. Each call builds a
// prompt from the event, the configured league facts, and the remembered
// exchanges, asks the language model for a single line, and records the
// exchange only when a line came back. Calls are serialized: a second caller
// waits until the first line is finished.
package commentary
