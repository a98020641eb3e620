// Package tts provides a speech-synthesis HTTP client compatible with the
// ElevenLabs text-to-speech API.
//
// Synthesize posts the text, voice identifier, and synthesis model and streams
// the binary audio response into the supplied writer. Failures are tagged
// services.ErrBackend (or services.ErrTimeout); retries follow httpx.Retrier.
package tts
