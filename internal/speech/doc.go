// Package speech turns a generated line into a timestamp-named audio clip.
//
// Render prepares the text for synthesis (shouted lines are uppercased and
// end in "!!!", and a P directly before a digit becomes "P-" so positions
// like P2 are read as "P two"), streams the synthesized audio into the working
// directory atomically, and reads the real duration back from the file.
package speech
