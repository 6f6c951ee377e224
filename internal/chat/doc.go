// Package chat owns the conversation session.
//
// The Manager holds the ordered message list, orchestrates advisor queries,
// runs the progressive reveal through the stream controller, and persists
// the session snapshot through the store. All mutations funnel through the
// manager's lock, including the stream's mutator callbacks, so the session
// invariants (unique IDs, at most one streaming message, snapshots only at
// rest) hold by construction.
//
// A submit issued while an advisor call is outstanding is rejected with
// ErrQueryInFlight; a submit issued while a reply is still streaming cancels
// the stream and proceeds. Snapshots restored from disk are self-healed:
// a message persisted mid-stream can only be the result of a crash, and is
// coerced to its at-rest state on load.
package chat
