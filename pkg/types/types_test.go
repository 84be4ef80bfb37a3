package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTypeString(t *testing.T) {
	require.Equal(t, "number", Number.String())
	require.Equal(t, "text", Text.String())
	require.Equal(t, "nothing", Nothing.String())
	require.Equal(t, "structure point", Structure("point").String())
	require.Equal(t, "array of number", Array(Number, 1).String())
	require.Equal(t, "link to number", Link(Number).String())
}

func TestEqualScalars(t *testing.T) {
	require.True(t, Equal(Number, Number))
	require.False(t, Equal(Number, Text))
	require.True(t, Equal(Structure("point"), Structure("point")))
	require.False(t, Equal(Structure("point"), Structure("vector")))
}

func TestEqualArrayUnspecifiedBoundsMatchesAnyDims(t *testing.T) {
	param := Array(Number, 0) // "array of number" in a parameter position
	arg1D := Array(Number, 1)
	arg2D := Array(Number, 2)
	require.True(t, Equal(param, arg1D))
	require.True(t, Equal(param, arg2D))
	require.False(t, Equal(arg1D, arg2D))
}

func TestEqualLinkComparesPointee(t *testing.T) {
	require.True(t, Equal(Link(Number), Link(Number)))
	require.False(t, Equal(Link(Number), Link(Text)))
}

func TestValid(t *testing.T) {
	require.False(t, Invalid.Valid())
	require.True(t, Number.Valid())
}
