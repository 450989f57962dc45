// Package idgen provides pluggable ID generation for domtuner.
//
// Constructors that emit identified values (mutation batches) accept a
// Generator, making the ID strategy a startup-time decision rather than a
// compile-time one.
package idgen

import "github.com/google/uuid"

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator that produces RFC 9562 UUID v7 strings.
// Time-sortable and globally unique.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Default is the module default: UUIDv7.
var Default Generator = UUIDv7()
