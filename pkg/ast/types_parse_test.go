package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	for _, src := range []string{
		"Int",
		"Option[Text]",
		"Result[List[Int], Text]",
		"Map[Text, Set[Int]]",
		"(Int, Text)",
		"fn(Int, Int) -> Int",
		"fn(Text) -> Unit with Console, Fs",
		"geo.Point",
	} {
		t.Run(src, func(t *testing.T) {
			typ, err := ParseType(src)
			require.NoError(t, err)
			assert.Equal(t, src, typ.String())
		})
	}
}

func TestParseTypeUnit(t *testing.T) {
	typ, err := ParseType("()")
	require.NoError(t, err)
	assert.Equal(t, "Unit", typ.String())
}

func TestParseTypeErrors(t *testing.T) {
	for _, src := range []string{"", "Option[", "(Int", "Int]", "fn Int"} {
		t.Run(src, func(t *testing.T) {
			_, err := ParseType(src)
			require.Error(t, err)
		})
	}
}
