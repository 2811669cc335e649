package check

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArg_NonFatal(t *testing.T) {
	prev := SetFatal(false)
	defer SetFatal(prev)

	assert.True(t, Arg(true, "Foo", "x > 0"))
	assert.NotPanics(t, func() {
		assert.False(t, Arg(false, "Foo", "x > 0"))
	})
}

func TestArg_Fatal(t *testing.T) {
	prev := SetFatal(true)
	defer SetFatal(prev)

	assert.PanicsWithError(t, `arguments to Foo() were incorrect, assertion "x > 0" failed`, func() {
		Arg(false, "Foo", "x > 0")
	})
}

func TestSetFatal_ReturnsPrevious(t *testing.T) {
	prev := SetFatal(true)
	defer SetFatal(prev)

	assert.True(t, SetFatal(false))
	assert.False(t, Fatal())
}
