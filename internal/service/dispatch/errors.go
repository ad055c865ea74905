package dispatch

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 区分失败类型，对外仍只暴露一条可读消息。
type Kind string

const (
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	KindForbidden       Kind = "FORBIDDEN"
	KindUnknownAction   Kind = "UNKNOWN_ACTION"
	KindValidation      Kind = "VALIDATION_FAILURE"
	KindUpstream        Kind = "UPSTREAM_FAILURE"
)

// HTTPStatus 返回该类型对应的状态码。
func (k Kind) HTTPStatus() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindUnknownAction, KindValidation:
		return http.StatusBadRequest
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error 是调度失败的统一错误。
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf 取出错误类型，非调度错误按上游失败处理。
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUpstream
}

// PublicMessage 返回可展示给调用方的消息。
func PublicMessage(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "request failed"
}

func unauthenticated() *Error {
	return &Error{Kind: KindUnauthenticated, Message: "Unauthorized"}
}

func forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func unknownAction(name string) *Error {
	return &Error{Kind: KindUnknownAction, Message: fmt.Sprintf("Invalid action: %q", name)}
}

func invalid(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func upstream(message string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: message, Err: err}
}
