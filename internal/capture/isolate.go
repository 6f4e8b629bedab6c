package capture

// Element isolation hides everything on the page except the target's
// ancestor chain (kept for layout and clipping) and its own subtree, using
// visibility rather than display so geometry is preserved. Restoration
// clears the inline override on every element and must always run, even
// when the capture itself fails, so a half-hidden page never leaks into
// later operations on the same page.

const hideScript = `(sel) => {
	const target = document.querySelector(sel);
	if (!target) return { found: false, hidden: 0 };
	const keep = new Set();
	for (let node = target; node; node = node.parentElement) keep.add(node);
	for (const node of target.querySelectorAll('*')) keep.add(node);
	let hidden = 0;
	for (const el of document.querySelectorAll('*')) {
		if (!keep.has(el)) {
			el.style.visibility = 'hidden';
			hidden++;
		}
	}
	return { found: true, hidden: hidden };
}`

const restoreScript = `() => {
	let restored = 0;
	for (const el of document.querySelectorAll('*')) {
		if (el.style.visibility !== '') restored++;
		el.style.visibility = '';
	}
	return restored;
}`

// Isolate hides all elements outside the target's ancestor chain and
// subtree. It reports whether the target still existed; when it has been
// removed between location and isolation nothing is hidden and the caller
// falls back to a full-page capture.
func Isolate(t Target, selector string) (found bool, hidden int, err error) {
	res, err := t.Eval(hideScript, selector)
	if err != nil {
		return false, 0, err
	}
	return res.Get("found").Bool(), res.Get("hidden").Int(), nil
}

// RestoreVisibility resets every element's visibility to its stylesheet
// default. Returns the number of elements that carried an inline override.
func RestoreVisibility(t Target) (int, error) {
	res, err := t.Eval(restoreScript)
	if err != nil {
		return 0, err
	}
	return res.Int(), nil
}
