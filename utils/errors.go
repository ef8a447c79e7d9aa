package utils

import (
	"errors"
	"fmt"
)

type PermError string

func (e PermError) Error() string {
	return string(e)
}

func (e PermError) IsPermanent() bool {
	return true
}

// IsPermanent reports whether err (or anything it wraps) should not be retried.
func IsPermanent(err error) bool {
	var p interface{ IsPermanent() bool }
	return errors.As(err, &p) && p.IsPermanent()
}

// ConfigError is returned for invalid run parameters. It is always raised
// before anything is written to the table.
type ConfigError struct {
	Msg string
	Err error
}

func NewConfigError(err error, format string, args ...any) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...), Err: err}
}

func (e *ConfigError) Error() string {
	if e.Err == nil {
		return "config error: " + e.Msg
	}
	return fmt.Sprintf("config error: %s: %s", e.Msg, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func (e *ConfigError) IsPermanent() bool {
	return true
}

func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// CollaboratorError wraps a failure of the table layer (create, insert, query).
type CollaboratorError struct {
	Op    string
	Table string
	Err   error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Table, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

func IsCollaboratorError(err error) bool {
	var ce *CollaboratorError
	return errors.As(err, &ce)
}
