// Package session runs one recording session end to end.
//
// A Session owns the recording start reference, the working-directory lock,
// and the per-event flow: stamp the offset, generate a line, render it, then
// hold the flow for the pacing slack so the next line cannot talk over this
// one. Finish exports the timeline and Cancel sweeps the working directory.
// Both end the session and release its lock.
//
// Every spoken line is published to subscribers and journaled when a
// transcript store is attached.
package session
