package slogx

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type name string

func (n name) String() string { return string(n) }

func TestAttrs(t *testing.T) {
	attr := Error(errors.New("boom"))
	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, "boom", attr.Value.String())

	attr = Path(name("/foo/bar"))
	assert.Equal(t, KeyPath, attr.Key)
	assert.Equal(t, "/foo/bar", attr.Value.String())

	attr = Path(name(""))
	assert.Equal(t, "/", attr.Value.String())

	attr = PathKey("subscriber", name("/b"))
	assert.Equal(t, "subscriber", attr.Key)

	attr = Mode(name("shared"))
	assert.Equal(t, KeyMode, attr.Key)
	assert.Equal(t, "shared", attr.Value.String())

	attr = LoggerName("swamp")
	assert.Equal(t, KeyLoggerName, attr.Key)
}
