// Package extraction turns a meeting transcript into decisions, action items
// and risks.
//
// An IntentTagger splits segments into sentences and labels each with up to
// two intents, using cosine similarity to per-intent centroids when an
// Embedder is available and keyword rules otherwise. The Decision, Action and
// Risk extractors promote tagged sentences into records with a shared set of
// pattern helpers (context windows, owner resolution, date phrases, priority
// and category classification, compound splitting) and then merge
// near-duplicates by embedding similarity.
//
// Calls to the embedder and entity service go through a fallible wrapper
// that records a typed FailureReason. No failure aborts a run; each one
// degrades the affected step to a cheaper heuristic and is counted in
// Stats.Degraded and the meetextract.extract.fallbacks metric.
package extraction
