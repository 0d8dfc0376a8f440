package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrTurnInFlight is returned when input arrives while another turn waits on the search service.
var ErrTurnInFlight = errors.New("a turn is already in flight")

// ErrEmptyInput is returned for utterances that are empty after trimming.
var ErrEmptyInput = errors.New("empty input")

// ErrInvalidOrdinal is returned when a selection does not address the current recipe set.
var ErrInvalidOrdinal = errors.New("no recipe at that position")

// ErrUnknownModification is returned for modification names outside spicy, vegan and quick.
var ErrUnknownModification = errors.New("unknown modification")

// ErrSearchFailed wraps failures reported by, or while talking to, the search service.
var ErrSearchFailed = errors.New("search failed")

// ErrContractViolation is returned when a search response breaks the response contract.
var ErrContractViolation = errors.New("search response violates contract")

// ErrInvalidState is returned when a session record breaks its invariants.
var ErrInvalidState = errors.New("invalid session state")
