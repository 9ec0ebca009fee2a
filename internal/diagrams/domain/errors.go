package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrVersionNotFound = errors.New("version not found")
	ErrUnauthorized    = errors.New("you do not have access to this diagram")
	ErrTokenExpired    = errors.New("share link has expired")
	ErrInvalidToken    = errors.New("invalid share token")
	ErrInvalidArgument = errors.New("invalid argument")
)
