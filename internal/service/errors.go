package service

import (
	"errors"
	"fmt"

	"quiz-tournament/internal/repository"
)

// Ошибки сервиса. Хендлеры переводят их в HTTP-коды.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	ErrConflict     = errors.New("conflict")
)

func badRequest(msg string) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, msg)
}

// lookupErr converts a missing record into ErrNotFound naming what was looked up.
func lookupErr(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}
