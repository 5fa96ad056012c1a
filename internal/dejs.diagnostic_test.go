package internal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExcerpt(t *testing.T) {
	source := "one\ntwo\nthree\nfour\nfive\nsix\nseven\neight\nnine"

	t.Run("middle", func(t *testing.T) {
		expected := "    2| two\n" +
			"    3| three\n" +
			"    4| four\n" +
			" >> 5| five\n" +
			"    6| six\n" +
			"    7| seven\n" +
			"    8| eight"
		assert.Equal(t, expected, Excerpt(source, 5))
	})

	t.Run("clamped at start", func(t *testing.T) {
		expected := " >> 1| one\n" +
			"    2| two\n" +
			"    3| three\n" +
			"    4| four"
		assert.Equal(t, expected, Excerpt(source, 1))
	})

	t.Run("clamped at end", func(t *testing.T) {
		expected := "    6| six\n" +
			"    7| seven\n" +
			"    8| eight\n" +
			" >> 9| nine"
		assert.Equal(t, expected, Excerpt(source, 9))
	})

	t.Run("line out of range", func(t *testing.T) {
		assert.Equal(t, " >> 1| only", Excerpt("only", 7))
	})
}

func TestEvalError(t *testing.T) {
	cause := errors.New("db down")
	exec := NewExecContext("a\nb <%= x %>\nc", "")
	err := NewEvalError(exec, 2, "", cause.Error(), cause)

	assert.Equal(t, "dejs:2\n    1| a\n >> 2| b <%= x %>\n    3| c\n\ndb down", err.Error())
	assert.ErrorIs(t, err, cause)

	exec.Filename = "views/page.ejs"
	named := NewEvalError(exec, 1, "ReferenceError", "x is not defined", nil)
	assert.Contains(t, named.Error(), "views/page.ejs:1\n")
	assert.Equal(t, "ReferenceError", named.Kind)
	assert.NoError(t, errors.Unwrap(named))
}
