package errors

import (
	"context"
	goerrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/target/mmk-jobitems/internal/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "remote 404", err: &apperrors.RemoteError{StatusCode: 404}, want: "remote_4xx"},
		{name: "wrapped remote 503", err: fmt.Errorf("fetch: %w", &apperrors.RemoteError{StatusCode: 503}), want: "remote_5xx"},
		{name: "malformed", err: apperrors.Malformed(goerrors.New("bad json"), "decode"), want: "malformed_response"},
		{name: "deadline", err: fmt.Errorf("get: %w", context.DeadlineExceeded), want: "timeout"},
		{name: "canceled", err: context.Canceled, want: "canceled"},
		{name: "plain", err: goerrors.New("boom"), want: "errors_errorstring"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
