// Package api exposes the commentary session over HTTP.
//
// The event source posts detected events to /v1/events and receives the
// spoken line once pacing has released the flow. /v1/finish exports the
// session (an empty output cancels it), /v1/cancel sweeps the working
// directory, /v1/status reports progress, and /v1/stream is a websocket that
// pushes every line as it is rendered.
//
// A session is created on the first event and retired after finish or
// cancel; the next event starts a fresh one.
package api
