// Package pacing keeps spoken commentary from overlapping.
//
// After a clip is rendered the generation flow blocks for the clip's duration
// minus the time already spent producing it, so the next event cannot start
// a line while the previous one is still being heard.
package pacing
