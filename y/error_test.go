package y

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCombineWithBothErrorsPresent(t *testing.T) {
	combinedError := CombineErrors(errors.New("one"), errors.New("two"))
	require.Equal(t, "one; two", combinedError.Error())
}

func TestCombineErrorsWithOneErrorPresent(t *testing.T) {
	combinedError := CombineErrors(errors.New("one"), nil)
	require.Equal(t, "one", combinedError.Error())
}

func TestCombineErrorsWithOtherErrorPresent(t *testing.T) {
	combinedError := CombineErrors(nil, errors.New("other"))
	require.Equal(t, "other", combinedError.Error())
}

func TestCombineErrorsWithBothErrorsAsNil(t *testing.T) {
	combinedError := CombineErrors(nil, nil)
	require.NoError(t, combinedError)
}

func TestWrapfKeepsCause(t *testing.T) {
	base := errors.New("commit refused")
	err := Wrapf(base, "frame %d", 3)
	require.True(t, errors.Is(err, base))
	require.Equal(t, "frame 3 error: commit refused", err.Error())
	require.NoError(t, Wrapf(nil, "frame %d", 3))
}

func TestCombineErrorsUnwrapsSecond(t *testing.T) {
	other := errors.New("other")
	require.True(t, errors.Is(CombineErrors(errors.New("one"), other), other))
}
