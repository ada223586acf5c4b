package browser

import (
	"encoding/json"
	"fmt"

	"github.com/ternarybob/authflow/internal/scenario"
)

// refAttribute tags the element a Fill or Click acts on
const refAttribute = "data-authflow-ref"

// resolverJS finds elements by accessible semantics. It returns how many
// candidates matched and how many of them are visible, and when tag is set
// marks the first visible one with refAttribute.
const resolverJS = `(function(kind, role, source, tag, refAttr) {
	const re = new RegExp(source.normalize('NFC'), 'i');
	const norm = s => (s || '').replace(/\s+/g, ' ').trim().normalize('NFC');
	const textOf = el => norm(el.innerText !== undefined ? el.innerText : el.textContent);
	const byIds = ids => norm((ids || '').split(/\s+/).map(id => {
		const n = id ? document.getElementById(id) : null;
		return n ? textOf(n) : '';
	}).join(' '));
	const isVisible = el => {
		if (!el || !el.isConnected) return false;
		const style = window.getComputedStyle(el);
		if (style.visibility === 'hidden' || style.display === 'none') return false;
		const r = el.getBoundingClientRect();
		return r.width > 0 && r.height > 0;
	};
	const accessibleName = el => {
		const labelledBy = byIds(el.getAttribute('aria-labelledby'));
		if (labelledBy) return labelledBy;
		const ariaLabel = norm(el.getAttribute('aria-label'));
		if (ariaLabel) return ariaLabel;
		if (el.labels && el.labels.length) {
			return norm(Array.from(el.labels).map(textOf).join(' '));
		}
		const tagName = el.tagName.toLowerCase();
		if (tagName === 'input') {
			const type = (el.getAttribute('type') || 'text').toLowerCase();
			if (type === 'submit' || type === 'button' || type === 'reset') {
				return norm(el.value || (type === 'submit' ? 'Submit' : ''));
			}
			if (type === 'image') return norm(el.getAttribute('alt'));
			return norm(el.getAttribute('placeholder') || el.getAttribute('title'));
		}
		if (tagName === 'img') return norm(el.getAttribute('alt'));
		return textOf(el) || norm(el.getAttribute('title'));
	};
	const roleSelectors = {
		button: 'button, input[type=submit], input[type=button], input[type=reset], input[type=image], [role=button]',
		link: 'a[href], area[href], [role=link]',
		heading: 'h1, h2, h3, h4, h5, h6, [role=heading]',
		textbox: 'input:not([type]), input[type=text], input[type=email], input[type=password], input[type=search], input[type=tel], input[type=url], textarea, [role=textbox]'
	};
	const skip = new Set(['SCRIPT', 'STYLE', 'NOSCRIPT', 'TEMPLATE', 'HEAD', 'TITLE']);

	let candidates = [];
	if (kind === 'role') {
		const selector = roleSelectors[role] || ('[role=' + role + ']');
		candidates = Array.from(document.querySelectorAll(selector)).filter(el => {
			const explicit = (el.getAttribute('role') || '').split(/\s+/)[0];
			if (explicit && explicit !== role) return false;
			return re.test(accessibleName(el));
		});
	} else if (kind === 'label') {
		const controls = new Set();
		document.querySelectorAll('label').forEach(label => {
			if (label.control && re.test(textOf(label))) controls.add(label.control);
		});
		document.querySelectorAll('[aria-label]').forEach(el => {
			if (re.test(norm(el.getAttribute('aria-label')))) controls.add(el);
		});
		document.querySelectorAll('[aria-labelledby]').forEach(el => {
			if (re.test(byIds(el.getAttribute('aria-labelledby')))) controls.add(el);
		});
		candidates = Array.from(controls);
	} else {
		const all = document.body ? Array.from(document.body.querySelectorAll('*')) : [];
		candidates = all.filter(el => !skip.has(el.tagName) && re.test(textOf(el)))
			.filter(el => !Array.from(el.children).some(c => !skip.has(c.tagName) && re.test(textOf(c))));
	}

	const shown = candidates.filter(isVisible);
	if (tag) {
		document.querySelectorAll('[' + refAttr + ']').forEach(el => el.removeAttribute(refAttr));
		if (shown.length) shown[0].setAttribute(refAttr, tag);
	}
	return { total: candidates.length, visible: shown.length };
})`

// resolution is the resolver's answer for one locator
type resolution struct {
	Total   int `json:"total"`
	Visible int `json:"visible"`
}

// resolverExpression builds the JS call for loc. tag is empty for pure queries.
func resolverExpression(loc scenario.Locator, tag string) (string, error) {
	args := []interface{}{string(loc.Kind), string(loc.Role), loc.Name.Source(), tag, refAttribute}

	encoded := make([]string, 0, len(args))
	for _, arg := range args {
		b, err := json.Marshal(arg)
		if err != nil {
			return "", fmt.Errorf("failed to encode resolver argument: %w", err)
		}
		encoded = append(encoded, string(b))
	}

	return fmt.Sprintf("%s(%s, %s, %s, %s, %s)", resolverJS, encoded[0], encoded[1], encoded[2], encoded[3], encoded[4]), nil
}

// refSelector is the CSS selector for an element tagged by the resolver
func refSelector(tag string) string {
	return fmt.Sprintf(`[%s="%s"]`, refAttribute, tag)
}
