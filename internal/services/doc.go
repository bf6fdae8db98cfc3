// Package services wires the extraction components together.
//
// A Registry holds the long-lived components built from configuration
// (heuristic pipeline, generative extractor, redactor, provenance tracker,
// result cache, event publisher). A Service runs one extraction request
// through them: redact, look up the cache, extract according to the mode
// policy, attach provenance, store, publish.
package services
