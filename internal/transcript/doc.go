// Package transcript journals commentary sessions in SQLite.
//
// The journal is operator-facing history: which sessions ran against which
// working directory, how they ended, and every line that was spoken with its
// timing. Assembly never reads it; the working directory alone decides what
// goes into an export.
//
// Schema changes bump schemaVersion; an older database must be removed before
// the new schema is adopted.
package transcript
