package models

import "errors"

// Custom errors
var (
	ErrNotFound             = errors.New("record not found")
	ErrDuplicateKey         = errors.New("duplicate key violation")
	ErrInvalidTransition    = errors.New("illegal wager status transition")
	ErrDeadlinePassed       = errors.New("race deadline has passed")
	ErrMalformedCombination = errors.New("malformed combination")
	ErrUnknownBetFamily     = errors.New("unknown bet family")
	ErrStrategyNameRequired = errors.New("strategy name is required")
	ErrUnknownStrategyKind  = errors.New("unknown strategy kind")
	ErrIncompleteResult     = errors.New("race result is incomplete")
)
