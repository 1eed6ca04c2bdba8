package browser

import (
	"github.com/chromedp/chromedp/kb"
)

// keyDefinition is what the DevTools input domain needs to synthesize a key stroke.
type keyDefinition struct {
	Key     string
	Code    string
	KeyCode int64
	Text    string
}

var namedKeys = map[string]keyDefinition{
	"Enter":     {Key: "Enter", Code: "Enter", KeyCode: 13, Text: "\r"},
	"Tab":       {Key: "Tab", Code: "Tab", KeyCode: 9, Text: "\t"},
	"Escape":    {Key: "Escape", Code: "Escape", KeyCode: 27},
	"Space":     {Key: " ", Code: "Space", KeyCode: 32, Text: " "},
	"Backspace": {Key: "Backspace", Code: "Backspace", KeyCode: 8},
}

// lookupKey resolves a named key, or treats a single character as itself.
func lookupKey(name string) (keyDefinition, bool) {
	if def, ok := namedKeys[name]; ok {
		return def, true
	}
	if r := []rune(name); len(r) == 1 {
		return keyDefinition{Key: name, Text: name}, true
	}
	return keyDefinition{}, false
}

// sendKeysSequence maps a key name to the chromedp.SendKeys encoding.
func sendKeysSequence(name string) string {
	switch name {
	case "Enter":
		return kb.Enter
	case "Tab":
		return kb.Tab
	case "Escape":
		return kb.Escape
	case "Space":
		return " "
	case "Backspace":
		return kb.Backspace
	default:
		return name
	}
}
