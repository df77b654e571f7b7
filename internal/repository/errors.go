package repository

import "errors"

// ErrNotFound is returned when a query for a single entity finds no rows.
// The service layer translates it into app_errors.ErrNotFound so callers
// never see driver errors such as sql.ErrNoRows or redis.Nil.
var ErrNotFound = errors.New("repository: not found")

// ErrInvalidCursor is returned when a pagination cursor cannot be decoded.
var ErrInvalidCursor = errors.New("repository: invalid cursor")
