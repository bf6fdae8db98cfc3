// Package provenance links extracted items back to the transcript segments
// that support them.
//
// A Tracker indexes each run's segments in a vectorstore.Store and answers
// "which segments said this?" by semantic search scoped to the run. Without
// a store, or when the store fails, it falls back to Jaccard word overlap
// against segments kept in memory. Validate turns the best match into a
// support verdict that flags likely hallucinations from generative runs.
package provenance
