package browser

import (
	"fmt"

	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/gauntlet/api/schemas"
)

// targetAttribute marks the element a chromedp action should address.
const targetAttribute = "data-gauntlet-target"

// findFirstJS defines find(query, text): the first element in document order that
// matches query and, when text is non-empty, contains it.
const findFirstJS = `const find = (query, text) => {
	for (const el of document.querySelectorAll(query)) {
		if (!text || (el.textContent || "").includes(text)) return el;
	}
	return null;
};`

// jsArgs encodes values as a JavaScript argument list.
func jsArgs(values ...interface{}) (string, error) {
	encoded, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode script arguments: %w", err)
	}
	// Strip the surrounding brackets of the JSON array.
	return string(encoded[1 : len(encoded)-1]), nil
}

// visibilityScript reports whether the first match has a box and is not hidden.
func visibilityScript(loc schemas.Locator) (string, error) {
	args, err := jsArgs(loc.Query, loc.HasText)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`((query, text) => {
	%s
	const el = find(query, text);
	if (!el) return false;
	const rect = el.getBoundingClientRect();
	const style = window.getComputedStyle(el);
	return rect.width > 0 && rect.height > 0 && style.display !== "none" && style.visibility !== "hidden";
})(%s)`, findFirstJS, args), nil
}

// tagScript clears stale tags, then tags the first match with token. It evaluates
// to true when an element was tagged.
func tagScript(loc schemas.Locator, token string) (string, error) {
	args, err := jsArgs(loc.Query, loc.HasText, targetAttribute, token)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`((query, text, attr, token) => {
	%s
	document.querySelectorAll("[" + attr + "]").forEach((el) => el.removeAttribute(attr));
	const el = find(query, text);
	if (!el) return false;
	el.setAttribute(attr, token);
	return true;
})(%s)`, findFirstJS, args), nil
}

// checkedScript evaluates to the checked state of a tagged element.
func checkedScript(selector string) (string, error) {
	args, err := jsArgs(selector)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`((sel) => { const el = document.querySelector(sel); return !!(el && el.checked); })(%s)`, args), nil
}

// selectResult is the outcome of selectByIndexScript.
type selectResult struct {
	Found    bool `json:"found"`
	Options  int  `json:"options"`
	Selected bool `json:"selected"`
}

// selectByIndexScript chooses option index of a tagged select element and fires the
// events a user selection would.
func selectByIndexScript(selector string, index int) (string, error) {
	args, err := jsArgs(selector, index)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`((sel, index) => {
	const el = document.querySelector(sel);
	if (!el || !el.options) return {found: false, options: 0, selected: false};
	if (el.options.length <= index) return {found: true, options: el.options.length, selected: false};
	el.selectedIndex = index;
	el.dispatchEvent(new Event("input", {bubbles: true}));
	el.dispatchEvent(new Event("change", {bubbles: true}));
	return {found: true, options: el.options.length, selected: true};
})(%s)`, args), nil
}

// targetSelector addresses an element tagged by tagScript.
func targetSelector(token string) string {
	return fmt.Sprintf(`[%s="%s"]`, targetAttribute, token)
}
