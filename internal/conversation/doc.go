// Package conversation holds the bounded short-term memory of a commentary
// session.
//
// A Window stores at most 2 × memoryLimit turns. Turns only enter as a user
// and assistant pair, and eviction removes the two oldest turns at a time, so
// the window always starts on a user turn and never splits an exchange.
package conversation
