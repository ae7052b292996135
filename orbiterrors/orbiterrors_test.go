package orbiterrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindClassification(t *testing.T) {
	err := New(NotFound, "chunk missing")
	require.Equal(t, NotFound, KindOf(err))
	require.True(t, Is(err, NotFound))
	require.False(t, Is(err, IO))
}

func TestRetryable(t *testing.T) {
	require.True(t, IO.Retryable())
	require.True(t, Timeout.Retryable())
	require.True(t, Exhausted.Retryable())
	require.False(t, Corruption.Retryable())
	require.False(t, AccessDenied.Retryable())
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(IO, "writing chunk", cause)
	require.ErrorIs(t, err, cause)
	require.Equal(t, IO, KindOf(err))
}

func TestComposeNil(t *testing.T) {
	require.Nil(t, Compose(nil, nil))
}

func TestComposeSingle(t *testing.T) {
	e := errors.New("one")
	require.Equal(t, e, Compose(nil, e))
}

func TestComposeMultiple(t *testing.T) {
	e1 := errors.New("one")
	e2 := errors.New("two")
	composed := Compose(e1, e2)
	require.Equal(t, "[one; two]", composed.Error())
	require.True(t, Contains(composed, e1))
	require.True(t, Contains(composed, e2))
	require.False(t, Contains(composed, errors.New("three")))
}

func TestExtendPreservesKind(t *testing.T) {
	err := New(Conflict, "row already claimed")
	extended := Extend("claim_pending", err)
	require.Equal(t, Conflict, KindOf(extended))
}

func TestExtendNil(t *testing.T) {
	require.Nil(t, Extend("prefix", nil))
}
