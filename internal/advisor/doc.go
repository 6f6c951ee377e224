// Package advisor talks to the locally-running device-management backend.
//
// The backend exposes a single query capability: send a user message plus
// conversation history, receive the full advisor reply. The client enforces
// the backend's history contract (strict user/assistant alternation, first
// message from the user, bounded length) before sending, and surfaces
// transport failures as plain errors for the session manager to translate
// into user-visible notices.
package advisor
