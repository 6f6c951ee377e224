// Package settings owns the theme and app-settings keys in the durable
// store, serving reads from memory and writing through on change.
package settings
