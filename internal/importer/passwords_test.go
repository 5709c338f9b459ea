package importer

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenRandPassword(t *testing.T) {
	chars := DefaultRunConfig().PasswordGen.Chars
	r := rand.New(rand.NewSource(1))

	pw := genRandPassword(r, 13, chars)
	assert.Len(t, pw, 13)
	for _, c := range pw {
		assert.True(t, strings.ContainsRune(chars, c), "unexpected character %q", c)
	}

	// same seed, same sequence
	r2 := rand.New(rand.NewSource(1))
	assert.Equal(t, pw, genRandPassword(r2, 13, chars))

	assert.Empty(t, genRandPassword(r, 0, chars))
	assert.Empty(t, genRandPassword(r, 13, ""))
}
