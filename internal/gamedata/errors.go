package gamedata

import "errors"

// Sentinel kinds for game-table loading errors.
var (
	ErrLoadTables    = errors.New("load game tables failed")
	ErrInvalidTables = errors.New("invalid game tables")
)
