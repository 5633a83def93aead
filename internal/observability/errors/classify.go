// Package errors classifies errors into short labels for metric tags and notifications.
package errors

import (
	"context"
	goerrors "errors"
	"net"
	"reflect"
	"strings"

	apperrors "github.com/target/mmk-jobitems/internal/errors"
)

// Classify returns a normalized label for err.
// Known failure modes of the job item API map to stable names; anything else falls back to the
// innermost concrete type in snake_case-ish form.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	if remote, ok := apperrors.AsRemote(err); ok {
		return remoteClass(remote.StatusCode)
	}
	switch {
	case apperrors.IsMalformed(err):
		return "malformed_response"
	case goerrors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case goerrors.Is(err, context.Canceled):
		return "canceled"
	}
	var netErr net.Error
	if goerrors.As(err, &netErr) {
		if netErr.Timeout() {
			return "timeout"
		}
		return "network"
	}

	return typeName(err)
}

func remoteClass(status int) string {
	switch {
	case status >= 500:
		return "remote_5xx"
	case status >= 400:
		return "remote_4xx"
	default:
		return "remote_other"
	}
}

func typeName(err error) string {
	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), "*", ""))
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
