package wakerbench

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrialError(t *testing.T) {
	err := error(&TrialError{
		Err:       ErrWaitTimeout,
		Mechanism: "FD-based (no lock)",
		Iteration: 4,
	})
	assert.EqualError(t, err, "wakerbench: FD-based (no lock): measured iteration 4: wakerbench: wakeup wait timed out")
	assert.ErrorIs(t, err, ErrWaitTimeout)

	err = &TrialError{Err: ErrThreadSpawnFailed, Mechanism: "m", Warmup: true}
	assert.EqualError(t, err, "wakerbench: m: warmup iteration 0: wakerbench: thread spawn failed")
}

func TestPanicError(t *testing.T) {
	cause := errors.New("cause")
	err := error(&PanicError{Value: cause})
	assert.EqualError(t, err, "wakerbench: worker panicked: cause")
	assert.ErrorIs(t, err, cause)

	assert.Nil(t, (&PanicError{Value: 1}).Unwrap())
}
