package apperrors

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidSession = errors.New("invalid session")
	ErrNoTeamAssigned = errors.New("user has no assigned team")
)
