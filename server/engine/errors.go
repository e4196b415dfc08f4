package engine

import "errors"

var (
	ErrInvalidGuess = errors.New("invalid guess")
	ErrInvalidSide  = errors.New("invalid side")
	ErrOutOfRange   = errors.New("card value out of range")
	ErrEmptyPool    = errors.New("pool is empty")
	ErrBadIndex     = errors.New("hand index out of range")
	ErrHandSize     = errors.New("hand must hold exactly 3 cards")
	ErrBadCard      = errors.New("malformed card")
)
