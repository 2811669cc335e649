package unix

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomSocketName(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		name, err := randomSocketName()
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(name, "dbus-"))
		assert.Len(t, name, len("dbus-")+randomNameLen)
		for _, c := range name[len("dbus-"):] {
			assert.True(t, strings.ContainsRune(nameAlphabet, c), "unexpected %q", c)
		}
		seen[name] = true
	}
	assert.Greater(t, len(seen), 1)
}
