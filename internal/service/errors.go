package service

import (
	"fmt"

	"github.com/S1riyS/happyphone/server/internal/pkg/kerrors"
)

// ServiceError is a rejected request. Unlike command failures it is not
// rendered into the history.
type ServiceError struct {
	Code    kerrors.Kind
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

func (e *ServiceError) GetCode() kerrors.Kind {
	return e.Code
}

func newServiceError(code kerrors.Kind, format string, args ...any) *ServiceError {
	return &ServiceError{Code: code, Message: fmt.Sprintf(format, args...)}
}
