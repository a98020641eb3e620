// Package services defines shared utilities consumed by the commentary pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs, stage names, event offsets, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that sort failures into the
//     configuration / backend / artifact taxonomy. Configuration errors are fatal
//     to the session, backend errors drop the current line, artifact errors fail
//     the assembly only.
//
// Use these helpers when wiring new pipeline code so error handling and
// observability stay uniform.
package services
