// Package idgen generates opaque identifiers for boots and queued messages.
package idgen
