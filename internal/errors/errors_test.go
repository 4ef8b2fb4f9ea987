package errors

import (
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsType(t *testing.T) {
	err := NotFound("commit 42 not found")
	assert.True(t, IsType(err, ErrorTypeNotFound))
	assert.False(t, IsType(err, ErrorTypeIO))

	// Wrapping preserves the type.
	wrapped := fmt.Errorf("reading commit: %w", err)
	assert.True(t, IsType(wrapped, ErrorTypeNotFound))

	assert.False(t, IsType(io.EOF, ErrorTypeNotFound))
	assert.False(t, IsType(nil, ErrorTypeNotFound))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "no author configured", ConfigMissing("no author configured").Error())

	ioErr := IO("writing index", io.ErrShortWrite)
	assert.Equal(t, "writing index: short write", ioErr.Error())
	assert.ErrorIs(t, ioErr, io.ErrShortWrite)
}
