package domain

import "errors"

var (
	ErrDuplicateSession   = errors.New("session already exists")
	ErrSessionNotFound    = errors.New("session not found")
	ErrNoOutstandingAlert = errors.New("no outstanding alert")
	ErrRoundNotFound      = errors.New("round not found")
	ErrWardNotFound       = errors.New("ward not found")
)
