package browser

import (
	"testing"

	"github.com/chromedp/chromedp/kb"
	"github.com/stretchr/testify/assert"
)

func TestLookupKey(t *testing.T) {
	enter, ok := lookupKey("Enter")
	assert.True(t, ok)
	assert.Equal(t, keyDefinition{Key: "Enter", Code: "Enter", KeyCode: 13, Text: "\r"}, enter)

	x, ok := lookupKey("x")
	assert.True(t, ok)
	assert.Equal(t, "x", x.Key)
	assert.Equal(t, "x", x.Text)

	_, ok = lookupKey("Hyper")
	assert.False(t, ok)
	_, ok = lookupKey("")
	assert.False(t, ok)
}

func TestSendKeysSequence(t *testing.T) {
	assert.Equal(t, kb.Enter, sendKeysSequence("Enter"))
	assert.Equal(t, kb.Tab, sendKeysSequence("Tab"))
	assert.Equal(t, "q", sendKeysSequence("q"))
}
