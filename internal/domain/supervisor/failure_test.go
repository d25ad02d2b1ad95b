package supervisor

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassExitCodes(t *testing.T) {
	tests := []struct {
		class Class
		code  int
	}{
		{ClassLaunchFailure, 10},
		{ClassReadinessTimeout, 11},
		{ClassDependencyLost, 12},
		{ClassApplicationCrashed, 13},
		{Class("mystery"), 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.class), func(t *testing.T) {
			assert.Equal(t, tt.code, tt.class.ExitCode())
		})
	}
}

func TestOutcomeExitCode(t *testing.T) {
	assert.Equal(t, 0, Outcome{}.ExitCode())

	failed := Outcome{Failure: &Failure{Class: ClassDependencyLost, Stage: "desktop"}}
	assert.Equal(t, 12, failed.ExitCode())
}

func TestFailureError(t *testing.T) {
	cause := fmt.Errorf("connect refused")
	f := &Failure{Class: ClassReadinessTimeout, Stage: "bridge", Err: cause}

	assert.Contains(t, f.Error(), "readiness_timeout")
	assert.Contains(t, f.Error(), "bridge")
	assert.Contains(t, f.Error(), "connect refused")
	assert.ErrorIs(t, f, cause)

	bare := &Failure{Class: ClassLaunchFailure, Stage: "display"}
	assert.Contains(t, bare.Error(), "display")
	assert.Nil(t, errors.Unwrap(bare))
}
