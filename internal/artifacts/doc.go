// Package artifacts owns the files a session leaves in the working directory:
// timestamp-named commentary clips, the recorded video, and the captured
// frame.
//
// Clip names are the only channel that carries timing from generation to
// assembly, so naming is strict: commentary_<offsetMs>.<ext> with a canonical
// non-negative decimal offset. Anything else that claims the prefix is an
// artifact error rather than a silently skipped file.
//
// The package also selects the newest recording, deletes consumed files after
// export or cancellation, and guards a working directory with an advisory
// lock so generation and assembly never overlap.
package artifacts
