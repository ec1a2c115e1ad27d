package apperrors

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrStore        = errors.New("task store failure")
	ErrComposerOpen = errors.New("composer already open")
	ErrNotComposing = errors.New("composer is not open")
	ErrDueReadOnly  = errors.New("due date cannot be changed after creation")
)
