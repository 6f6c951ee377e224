/*
Package ws pushes session state to the desktop panel over WebSocket.

Every applied mutation produces a chat_update frame carrying the full
message list and the current suggestions, so the panel can render from
any single frame without reassembling deltas. Queries, clears, and pings
arrive inbound on the same socket.
*/
package ws
