package apperror

import "errors"

var (
	ErrInvalidCell   = errors.New("invalid cell index")
	ErrInvalidStep   = errors.New("invalid history step")
	ErrCorruptedGame = errors.New("corrupted game state")
	ErrUnknownAction = errors.New("unknown action")
)
