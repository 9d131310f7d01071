package profiles

import "errors"

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrEmptyProfileID  = errors.New("empty profile id")
)
