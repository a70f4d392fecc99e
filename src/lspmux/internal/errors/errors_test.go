package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSessionClosed(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "sentinel",
			err:  ErrSessionClosed,
			want: true,
		},
		{
			name: "wrapped",
			err:  fmt.Errorf("calling textDocument/definition: %w", ErrSessionClosed),
			want: true,
		},
		{
			name: "random error",
			err:  New("err"),
			want: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSessionClosed(tt.err))
		})
	}
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(ErrRequestTimeout))
	assert.True(t, IsTimeout(fmt.Errorf("initialize: %w", ErrInitializeTimeout)))
	assert.False(t, IsTimeout(ErrSessionClosed))
}
