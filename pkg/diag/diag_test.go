package diag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiagnosticError(t *testing.T) {
	d := New("parse", Syntax, 3, 7, `unexpected token "end"`)
	require.Equal(t, `parse:3:7: SyntaxError: unexpected token "end"`, d.Error())
}

func TestListEmptyAndAsError(t *testing.T) {
	var l List
	require.True(t, l.Empty())
	require.NoError(t, l.AsError())

	l.Addf("lex", Lexical, 1, 1, "illegal byte 0x01")
	require.False(t, l.Empty())
	require.Error(t, l.AsError())
	require.Len(t, l.Items(), 1)
}

func TestListErrorJoinsEntries(t *testing.T) {
	var l List
	l.Addf("lex", Lexical, 1, 1, "bad byte")
	l.Addf("parse", Syntax, 2, 5, "bad token")
	require.Equal(t, "lex:1:1: LexicalError: bad byte\nparse:2:5: SyntaxError: bad token", l.Error())
}
