// Package vision prepares frames for vision-capable language-model calls.
//
// A Capturer supplies the latest image of the race; FileCapturer reads one
// dropped on disk by an external capture tool. The Processor keeps the middle
// half of the frame, scales it to 512x512, writes screenshot.png into the
// working directory, and returns the frame as a base64 JPEG data URL.
// Frames that are perceptually identical to the previous one are skipped.
package vision
