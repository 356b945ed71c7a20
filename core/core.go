package core

import "github.com/google/uuid"

// NewID returns a new random identifier. Centralized so the id scheme can be
// swapped without touching call sites.
func NewID() string { return uuid.NewString() }
