package apperrors

import (
	"errors"
	"fmt"
)

// AppError is a domain error reported synchronously to the caller.
type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is matches any AppError with the same code, so wrapped sentinels and
// errors built with Wrap compare equal to the sentinel of their code.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Constructors
func New(code Code, message string) error {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// Newf builds an AppError with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of the first AppError in err's chain.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

var (
	ErrInvalidTransition       = New(CodeInvalidTransition, "status transition not permitted")
	ErrNotFound                = New(CodeNotFound, "not found")
	ErrUnauthorized            = New(CodeUnauthorized, "acting manager does not own the relevant side")
	ErrChatClosed              = New(CodeChatClosed, "chat is closed for this match")
	ErrEmptyMessage            = New(CodeEmptyMessage, "message body is empty")
	ErrDuplicateActiveProposal = New(CodeDuplicateActiveProposal, "an active proposal already exists for this pair")
	ErrSelfMatch               = New(CodeSelfMatch, "a client cannot be proposed to itself")
	ErrInvalidArgument         = New(CodeInvalidArgument, "invalid argument")
)

func NotFound(what, id string) error {
	return Newf(CodeNotFound, "%s %q not found", what, id)
}

func InvalidArg(msg string) error {
	return New(CodeInvalidArgument, msg)
}

func InvalidTransition(from, to string) error {
	return Newf(CodeInvalidTransition, "cannot move match from %s to %s", from, to)
}
