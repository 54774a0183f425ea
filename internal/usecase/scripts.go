package usecase

import "fmt"

// In-page scripts the stages evaluate. Each returns a JSON-friendly
// value: playwright maps JS numbers to float64, arrays to []any.

// errorMessagesScript gathers short visible texts from elements styled
// as errors or alerts.
func errorMessagesScript() string {
	return `
		() => {
			const out = [];
			const nodes = document.querySelectorAll(
				'[class*="error"], [class*="alert"], [class*="invalid"], [role="alert"], .validation-message');
			for (const node of nodes) {
				if (!node.offsetParent) continue;
				const text = (node.innerText || '').trim();
				if (text && text.length <= 200 && !out.includes(text)) out.push(text);
				if (out.length >= 10) break;
			}
			return out;
		}
	`
}

// productCardScript clicks the quote button inside the card naming the
// product. Cards render inside the new-quote modal; the button label
// is matched case-insensitively with Turkish casing rules.
func productCardScript(productName string) string {
	return fmt.Sprintf(`
		() => {
			const productText = %q.toLocaleLowerCase('tr-TR');
			const cards = document.querySelectorAll('div, section, li, article');
			for (const card of cards) {
				if (!card.offsetParent) continue;
				const text = (card.innerText || '').toLocaleLowerCase('tr-TR');
				if (!text.includes(productText) || text.length > 400) continue;
				const buttons = card.querySelectorAll('button, a');
				for (const button of buttons) {
					const label = (button.innerText || '').toLocaleLowerCase('tr-TR').trim();
					if (label.includes('teklif al')) {
						button.click();
						return true;
					}
				}
			}
			return false;
		}
	`, productName)
}

// checkboxReconcileScript checks the wanted product's checkbox and
// clears the competing one, matching each checkbox against its label
// or surrounding row text. Returns the number of boxes toggled.
func checkboxReconcileScript(wantName, otherName string) string {
	return fmt.Sprintf(`
		() => {
			const want = %q.toLocaleLowerCase('tr-TR');
			const other = %q.toLocaleLowerCase('tr-TR');
			const textFor = (box) => {
				if (box.labels && box.labels.length > 0) {
					return Array.from(box.labels).map(l => l.innerText || '').join(' ');
				}
				const row = box.closest('label, tr, li, div');
				return row ? (row.innerText || '') : '';
			};
			let toggled = 0;
			for (const box of document.querySelectorAll('input[type="checkbox"]')) {
				const text = textFor(box).toLocaleLowerCase('tr-TR');
				if (text.includes(want) && !box.checked) {
					box.click();
					toggled++;
				} else if (text.includes(other) && box.checked) {
					box.click();
					toggled++;
				}
			}
			return toggled;
		}
	`, wantName, otherName)
}

// spinnerVisibleScript reports whether a loading indicator is shown.
func spinnerVisibleScript() string {
	return `
		() => {
			const nodes = document.querySelectorAll(
				'[class*="spinner"], [class*="loading"], [class*="loader"], [aria-busy="true"]');
			for (const node of nodes) {
				if (node.offsetParent) return true;
			}
			return false;
		}
	`
}

// priceFragmentsScript collects Turkish-lira amount fragments from the
// page text, dot-grouped thousands with an optional comma decimal part
// followed by a currency marker.
func priceFragmentsScript() string {
	return `
		() => {
			const pattern = /\d{1,3}(\.\d{3})*(,\d{2})?\s*(TL|₺)/g;
			const body = document.body ? (document.body.innerText || '') : '';
			const out = [];
			let match;
			while ((match = pattern.exec(body)) !== null) {
				if (!out.includes(match[0])) out.push(match[0]);
				if (out.length >= 50) break;
			}
			return out;
		}
	`
}
