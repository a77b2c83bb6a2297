package usecase

import (
	"errors"
	"fmt"
)

// 呼び出し側が表示・分岐に使うエラーの種類
type ErrorKind string

const (
	KindValidation          ErrorKind = "validation"
	KindNotFound            ErrorKind = "not_found"
	KindDuplicate           ErrorKind = "duplicate"
	KindInsufficientStock   ErrorKind = "insufficient_stock"
	KindExceedsInitialStock ErrorKind = "exceeds_initial_stock"
	KindConflict            ErrorKind = "conflict"
	//DBやロックが使えない。これだけは呼び出し側で再試行してよい
	KindStorage      ErrorKind = "storage"
	KindUnauthorized ErrorKind = "unauthorized"
)

// usecaseが返すエラー。handlerはKindだけ見てステータスを決める。
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(kind ErrorKind, message string) error {
	return &AppError{Kind: kind, Message: message}
}

func AsAppError(err error) (*AppError, bool) {
	var ae *AppError
	ok := errors.As(err, &ae)
	return ae, ok
}

func IsKind(err error, kind ErrorKind) bool {
	ae, ok := AsAppError(err)
	return ok && ae.Kind == kind
}

func validationError(format string, args ...any) error {
	return &AppError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(what string) error {
	return &AppError{Kind: KindNotFound, Message: what + " not found"}
}

func duplicateError(format string, args ...any) error {
	return &AppError{Kind: KindDuplicate, Message: fmt.Sprintf(format, args...)}
}

func conflictError(format string, args ...any) error {
	return &AppError{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}
