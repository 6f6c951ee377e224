// Package stream turns a complete advisor reply into a progressive reveal.
//
// A stream splits the reply into whitespace tokens and applies them one at a
// time through a mutator callback, pausing between tokens. The controller
// guarantees at most one live stream: starting a new stream cancels and
// drains its predecessor first. Cancellation stops token application
// immediately, keeps the partial content, and marks the message complete so
// no message is ever left stuck mid-stream.
package stream
