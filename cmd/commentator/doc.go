// Command commentator generates live race commentary and mixes it onto the
// session recording.
//
// `commentator serve` runs the HTTP control surface an event source talks
// to. `replay` feeds a JSON-lines event file through the same flow without a
// server, `assemble` and `cancel` operate on a working directory directly,
// and `artifacts`, `history`, `doctor`, and `config` are operator utilities.
package main
