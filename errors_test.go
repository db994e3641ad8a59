package coro

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBrokenPromiseErrorMessageAndUnwrap(t *testing.T) {
	e := &BrokenPromiseError{}
	assert.Equal(t, ErrBrokenPromise.Error(), e.Error())
	assert.ErrorIs(t, e, ErrBrokenPromise)

	e2 := &BrokenPromiseError{Subject: "scheduler timer 7"}
	assert.Contains(t, e2.Error(), "scheduler timer 7")
}

func TestStillPendingErrorUnwraps(t *testing.T) {
	e := &StillPendingError{}
	assert.ErrorIs(t, e, ErrStillPending)
}

func TestAwaitCanceledErrorIncludesCause(t *testing.T) {
	cause := stderrors.New("ctx done")
	e := &AwaitCanceledError{Cause: cause}
	assert.Contains(t, e.Error(), "ctx done")
	assert.ErrorIs(t, e, ErrAwaitCanceled)

	bare := &AwaitCanceledError{}
	assert.Equal(t, ErrAwaitCanceled.Error(), bare.Error())
}

func TestNoActiveSchedulerErrorUnwraps(t *testing.T) {
	e := &NoActiveSchedulerError{}
	assert.ErrorIs(t, e, ErrNoActiveScheduler)
}

func TestTimerNotFoundErrorIncludesID(t *testing.T) {
	e := &TimerNotFoundError{ID: TimerID(42)}
	assert.Contains(t, e.Error(), "42")
	assert.ErrorIs(t, e, ErrTimerNotFound)
}

func TestPanicErrorIncludesValue(t *testing.T) {
	e := &PanicError{Value: "boom"}
	assert.Contains(t, e.Error(), "boom")
	assert.ErrorIs(t, e, ErrPanic)
}

func TestClosedErrorIncludesCause(t *testing.T) {
	cause := stderrors.New("custom shutdown")
	e := &ClosedError{Cause: cause}
	assert.Contains(t, e.Error(), "custom shutdown")
	assert.ErrorIs(t, e, ErrClosed)

	bare := &ClosedError{}
	assert.Equal(t, ErrClosed.Error(), bare.Error())
}

func TestRecoverPanicWrapsErrorAndNonError(t *testing.T) {
	underlying := stderrors.New("bad")
	err := recoverPanic(underlying)
	var panicErr *PanicError
	assert.ErrorAs(t, err, &panicErr)
	assert.Equal(t, underlying, panicErr.Value)

	err2 := recoverPanic("raw string panic")
	var panicErr2 *PanicError
	assert.ErrorAs(t, err2, &panicErr2)
	assert.Equal(t, "raw string panic", panicErr2.Value)
}
