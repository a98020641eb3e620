// Package prompt assembles the ordered message list for one commentary
// generation call.
//
// Build emits, in order: the persona instructions for the role, the league
// context, the race facts, the remembered conversation turns, the new event,
// an optional lap-position hint, and an optional frame image. It also returns
// the user turn that the generator records in the conversation window once the
// call succeeds.
package prompt
