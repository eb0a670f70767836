package dispatch

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "usage", err: &UsageError{Reason: ReasonSyntax}, want: 2},
		{name: "config not found", err: &ConfigNotFoundError{}, want: 3},
		{name: "config parse", err: &ConfigParseError{}, want: 4},
		{name: "key not found", err: &KeyNotFoundError{}, want: 5},
		{name: "target not found", err: &TargetNotFoundError{}, want: 6},
		{name: "launch", err: &LaunchError{Err: errors.New("boom")}, want: 7},
		{name: "integrity", err: &IntegrityError{Err: errors.New("mismatch")}, want: 8},
		{name: "wrapped", err: fmt.Errorf("dispatch: %w", &KeyNotFoundError{Key: "x"}), want: 5},
		{name: "foreign", err: errors.New("settings broken"), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindTargetNotFound, KindOf(&TargetNotFoundError{}))
	assert.Equal(t, Kind(""), KindOf(errors.New("other")))
	assert.Equal(t, Kind(""), KindOf(nil))
}
