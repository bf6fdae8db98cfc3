// Package vectorstore stores transcript segment embeddings for provenance
// lookups.
//
// Two backends implement Store: chromem-go, embedded and optionally
// persisted to disk, and Qdrant over its native gRPC API. Documents carry
// string metadata; searches can filter on exact metadata values, which is
// how results are scoped to a single extraction run.
package vectorstore
