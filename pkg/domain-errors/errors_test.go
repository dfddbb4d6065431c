package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	t.Run("matches outer code", func(t *testing.T) {
		err := New(CodeValidation, "bad field")
		assert.True(t, HasCode(err, CodeValidation))
		assert.False(t, HasCode(err, CodeInternal))
	})

	t.Run("matches code through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("submit: %w", New(CodeUnauthorized, "session expired"))
		assert.True(t, HasCode(err, CodeUnauthorized))
	})

	t.Run("matches inner code of nested coded errors", func(t *testing.T) {
		inner := New(CodeNotFound, "client missing")
		outer := Wrap(inner, CodeUnavailable, "load client")
		assert.True(t, HasCode(outer, CodeUnavailable))
		assert.True(t, HasCode(outer, CodeNotFound))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})
}

func TestWrap(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Wrap(cause, CodeUnavailable, "fetch clients")

	assert.True(t, Is(err, cause))
	assert.Equal(t, "fetch clients: dial tcp: refused", err.Error())
	assert.Nil(t, Wrap(nil, CodeInternal, "nothing"))
}
