// Package generative extracts decisions, action items and risks by
// prompting a language model.
//
// Each extractor has its own prompt template. The transcript is rendered as
// "Speaker: text" lines and capped at an estimated token budget before it is
// inserted. Responses must follow a small JSON contract; anything else is
// reported as an error so the caller can fall back to the heuristic
// pipeline.
package generative
