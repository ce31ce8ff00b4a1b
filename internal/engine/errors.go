package engine

import (
	"errors"
	"fmt"
)

var ErrValidation = errors.New("validation error")
var ErrNotFound = errors.New("not found")
var ErrInvalidTurn = errors.New("invalid turn")
var ErrMapAlreadyResolved = errors.New("map already resolved")
var ErrPoolMismatch = errors.New("map not in pool")
var ErrInvalidTransition = errors.New("invalid transition")
var ErrUnrecognizedEvent = errors.New("unrecognized event")

var ErrUnsupportedCommand = fmt.Errorf("%w: unsupported command", ErrValidation)
