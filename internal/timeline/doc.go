// Package timeline merges a session's commentary clips onto its recording.
//
// Assemble picks the newest recording in the working directory, places every
// clip at the offset encoded in its name, and renders one ffmpeg pass: the
// recording's own audio is loudness-normalized and ducked to the base volume,
// each clip is trimmed at the tail and normalized on its own, overlapping
// clips are summed, and the mix is resampled to 44.1 kHz before a final
// loudness pass. The video stream is re-encoded at the requested framerate.
//
// Output is written beside the destination and renamed into place. Consumed
// files are deleted only after a successful export; a failed export leaves the
// working directory untouched.
package timeline
