/*
Package http exposes the REST surface consumed by the desktop panel.

Queries are fire-and-forget: POST /chat/query acknowledges with 202 and
the reply streams back over the WebSocket. History, suggestions, theme,
and settings are plain request/response endpoints.
*/
package http
