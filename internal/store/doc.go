// Package store provides durable key-value persistence for the backend.
//
// Values are serialized with sonic and gzip-compressed, one file per key
// under the state directory. The API never surfaces failures to callers:
// a malformed or missing value yields the caller-supplied default, and
// write failures degrade to no-ops. Both are logged and counted through
// an optional diagnostics hook so operators can see silent degradation.
//
// Key ownership: the chat session manager owns the chat-history key, the
// settings provider owns the theme and settings keys. No component writes
// another component's keys.
package store
