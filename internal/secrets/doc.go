// Package secrets removes credentials from transcripts before they leave
// the process.
//
// Detection uses the Gitleaks default rule set. A TOML allowlist in the
// Gitleaks format can exempt known-safe values. Redacted spans become
// [REDACTED:rule-id] markers so the surrounding sentence still reads
// naturally for intent tagging and generative prompts.
package secrets
