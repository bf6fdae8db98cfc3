// Package embeddings maps transcript sentences to vectors.
//
// Three providers are supported: FastEmbed (local ONNX models, cgo builds
// only), TEI (a text-embeddings-inference HTTP service) and any
// OpenAI-compatible embeddings endpoint through langchaingo. NewProvider
// selects one from configuration; Instrument wraps any provider with
// duration, batch size and error metrics.
package embeddings
