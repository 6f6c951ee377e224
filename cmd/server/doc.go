// Package main is the entry point for the DroidSweep assistant backend.
//
// The process sits between the desktop panel and the device-management
// advisor, owning the conversational session:
//
//	Panel (desktop shell) → Go backend → Advisor (device backend)
//
// The server provides:
//   - REST API for queries, history, suggestions, and settings
//   - WebSocket push of session updates during progressive reveal
//   - Durable session snapshots across restarts
//   - Rate limiting and Prometheus metrics
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for local development
//
// Usage:
//
//	# Talk to a running advisor backend
//	./server -port 8090 -advisor http://localhost:8091
//
//	# Development mode without a backend
//	./server -dev -mock
//
// Signals:
//   - SIGINT, SIGTERM: graceful shutdown
package main
