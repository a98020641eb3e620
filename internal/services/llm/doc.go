// Package llm provides an OpenAI-compatible chat completion client used to
// generate commentary lines.
//
// # Requests
//
// A request is the ordered list of role-tagged messages produced by the prompt
// assembler. Messages carry either plain text or multi-part content (text plus
// an image data URL for vision tiers). Every request is capped at MaxTokens
// (300 by default).
//
// # Model tiers
//
// Configuration selects a named tier rather than a raw model identifier;
// ResolveTier maps the tier onto the backend model and reports whether the tier
// accepts images. An unknown tier is a configuration error.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, empty completions and network
// timeouts with exponential backoff through httpx.Retrier. Any other failure,
// including refusals, fails the call; callers never receive partial text.
package llm
