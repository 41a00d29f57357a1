package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSymbol(t *testing.T) {
	assert.Equal(t, "AAPL", NormalizeSymbol("  aapl "))
	assert.Equal(t, "BRK.B", NormalizeSymbol("brk.b"))
	assert.Equal(t, "BTC-USD", NormalizeSymbol("btc-usd"))
}

func TestIsValidSymbol(t *testing.T) {
	assert.True(t, IsValidSymbol("AAPL"))
	assert.True(t, IsValidSymbol("BRK.B"))
	assert.True(t, IsValidSymbol("BTC-USD"))
	assert.False(t, IsValidSymbol(""))
	assert.False(t, IsValidSymbol("aapl"))
	assert.False(t, IsValidSymbol("HAS SPACE"))
	assert.False(t, IsValidSymbol("THIS.SYMBOL.IS.TOO.LONG"))
}

func TestIsValidColor(t *testing.T) {
	assert.True(t, IsValidColor("#3B82F6"))
	assert.True(t, IsValidColor("#abcdef"))
	assert.False(t, IsValidColor("3B82F6"))
	assert.False(t, IsValidColor("#3B82F"))
	assert.False(t, IsValidColor("#GGGGGG"))
	assert.False(t, IsValidColor("blue"))
}

func TestIsValidName(t *testing.T) {
	assert.True(t, IsValidName("Growth"))
	assert.False(t, IsValidName(""))
	assert.False(t, IsValidName("   "))

	long := make([]byte, 101)
	for i := range long {
		long[i] = 'a'
	}
	assert.False(t, IsValidName(string(long)))
}
