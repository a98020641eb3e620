// Package config loads, normalizes, and validates commentator configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads a .env file when present, and honours
// environment fallbacks such as OPENAI_API_KEY and ELEVENLABS_API_KEY. The
// Config type centralizes every knob the server and CLI need so the working
// directory, backend credentials, voices, and mix settings are discovered in
// one pass.
//
// Unknown model tiers and roles without a voice are rejected at load time as
// configuration errors; nothing falls back silently.
package config
