// Package types provides shared data structures for the assistant backend.
//
// This package defines the conversation data model used across all backend
// components, ensuring type safety and consistent serialization.
//
// Core Types:
//   - Message: One chat message (user or assistant)
//   - Snapshot: Persisted at-rest form of a session
//   - SuggestionSet: Bounded follow-up prompt list
//   - WSMessage: WebSocket communication envelope
//
// Invariants enforced by the owning components:
//   - Message IDs are unique within a session and never change
//   - At most one message is streaming at any instant
//   - Snapshots are only written when no message is mid-stream
package types
