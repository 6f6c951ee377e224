/*
Package server wires the session engine together: store, suggestion
generator, advisor client, chat manager, and the Gin router with its
middleware chain. cmd/server owns the process lifecycle; everything
behind the listener lives here.
*/
package server
