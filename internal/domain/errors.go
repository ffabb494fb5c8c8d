package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned when a card, a face or an edit is rejected
	// before anything is mutated. Specific errors below wrap it.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a card id is absent from the collection.
	ErrNotFound = errors.New("card not found")

	ErrFaceEmpty     = fmt.Errorf("%w: recto and verso must both have content", ErrValidation)
	ErrBoxOutOfRange = fmt.Errorf("%w: box out of range", ErrValidation)
)
