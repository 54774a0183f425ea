package browser

// interactiveElementsScript enumerates the page's visible interactive
// elements with the metadata the locator heuristics inspect: type,
// name, id, placeholder, associated label text, current value and
// checked state, plus a stable-enough selector for acting on each.
func interactiveElementsScript() string {
	return `(() => {
		try {
			const result = [];
			const seen = new Set();
			const targets = ['a', 'button', 'input', 'select', 'textarea'];

			const generateSelector = (el) => {
				const tag = el.tagName.toLowerCase();

				if (el.id && /^[a-zA-Z]/.test(el.id) && !el.id.includes(' ')) {
					return '#' + el.id;
				}

				if (el.name && ['input', 'select', 'textarea', 'button'].includes(tag)) {
					return tag + '[name="' + el.name + '"]';
				}

				if (tag === 'input' && el.type && el.placeholder) {
					return 'input[type="' + el.type + '"][placeholder="' + el.placeholder + '"]';
				}

				const ariaLabel = el.getAttribute('aria-label');
				if (ariaLabel && ariaLabel.length < 80) {
					return tag + '[aria-label="' + ariaLabel + '"]';
				}

				let path = [];
				let current = el;
				let depth = 0;

				while (current && current.tagName && depth < 4) {
					const t = current.tagName.toLowerCase();
					if (current.id) {
						path.unshift('#' + current.id);
						break;
					}
					const index = Array.from(current.parentNode?.children || []).indexOf(current);
					if (index >= 0) {
						path.unshift(t + ':nth-child(' + (index + 1) + ')');
					}
					current = current.parentElement;
					depth++;
				}

				return path.length > 0 ? path.join(' > ') : tag;
			};

			const labelTextFor = (el) => {
				if (el.labels && el.labels[0]) {
					return el.labels[0].textContent || '';
				}

				// Labels rendered as plain siblings ("Araç Plakası:"),
				// common in the portal's form layouts.
				let prev = el.previousElementSibling;
				let hops = 0;
				while (prev && hops < 2) {
					const text = (prev.textContent || '').trim();
					if (text && text.length < 80) {
						return text;
					}
					prev = prev.previousElementSibling;
					hops++;
				}

				if (el.nextSibling && el.nextSibling.textContent) {
					const text = el.nextSibling.textContent.trim();
					if (text && text.length < 80) {
						return text;
					}
				}

				return '';
			};

			const all = document.querySelectorAll(targets.join(','));

			for (const el of all) {
				if (seen.has(el)) continue;

				const rect = el.getBoundingClientRect();
				const style = window.getComputedStyle(el);

				const isVisible = (
					rect.width > 0 &&
					rect.height > 0 &&
					el.offsetParent !== null &&
					style.display !== 'none' &&
					style.visibility !== 'hidden' &&
					style.opacity !== '0'
				);

				if (!isVisible) continue;

				seen.add(el);

				let txt = '';
				if (el.innerText && el.innerText.trim()) {
					txt = el.innerText;
				} else if (el.textContent && el.textContent.trim()) {
					txt = el.textContent;
				} else if (el.value && el.type === 'submit') {
					txt = el.value;
				}

				txt = txt.trim();
				if (txt.length > 200) {
					txt = txt.substring(0, 200);
				}

				result.push({
					tag: el.tagName.toLowerCase(),
					text: txt,
					selector: generateSelector(el),
					type: el.type || '',
					name: el.name || '',
					id: el.id || '',
					placeholder: el.placeholder || '',
					label: labelTextFor(el),
					value: el.value || '',
					checked: !!el.checked,
					visible: true,
					enabled: !el.disabled,
					x: rect.left,
					y: rect.top,
					width: rect.width,
					height: rect.height
				});

				if (result.length >= 150) break;
			}

			return result;
		} catch (e) {
			return [];
		}
	})()`
}
