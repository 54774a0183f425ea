// Package locator resolves semantic field intents against the current
// page. Each intent carries an ordered list of strategies, most
// specific first; the first strategy with a visible, enabled,
// keyword-satisfying match wins and later strategies are not tried.
package locator

import (
	"strings"
	"unicode"

	"sompo-quote-agent/internal/entity"
)

type Intent string

const (
	IntentUsernameField   Intent = "username_field"
	IntentPasswordField   Intent = "password_field"
	IntentLoginSubmit     Intent = "login_submit"
	IntentOTPInput        Intent = "otp_input"
	IntentReloadHome      Intent = "reload_home"
	IntentNewQuoteTrigger Intent = "new_quote_trigger"
	IntentDismissPopup    Intent = "dismiss_popup"
	IntentPlateField      Intent = "plate_field"
	IntentNationalIDField Intent = "national_id_field"
	IntentSubmitQuote     Intent = "submit_quote"
)

// Strategy is one way of finding an intent's element. Match narrows by
// structure (tag, type, attributes); Keywords, when present, require
// the element's visible text, label or placeholder to contain at least
// one of them (Turkish case folded).
type Strategy struct {
	Name     string
	Match    func(el entity.Element) bool
	Keywords []string
}

type Resolver struct {
	table map[Intent][]Strategy
}

func NewResolver() *Resolver {
	return &Resolver{table: intentTable()}
}

// Resolve returns the first match for the intent among the page's
// elements. Absence is a normal outcome throughout the pipeline, so it
// is reported via the bool, never as an error.
func (r *Resolver) Resolve(intent Intent, elements []entity.Element) (entity.Element, bool) {
	strategies, ok := r.table[intent]
	if !ok {
		return entity.Element{}, false
	}

	for _, strategy := range strategies {
		for _, el := range elements {
			if !el.Visible || !el.Enabled {
				continue
			}

			if strategy.Match != nil && !strategy.Match(el) {
				continue
			}

			if len(strategy.Keywords) > 0 && !AnyKeyword(elementText(el), strategy.Keywords) {
				continue
			}

			return el, true
		}
	}

	return entity.Element{}, false
}

// ResolveAll returns every match for the intent, in strategy then
// document order. An element is reported once, under the first
// strategy that hit it.
func (r *Resolver) ResolveAll(intent Intent, elements []entity.Element) []entity.Element {
	strategies := r.table[intent]
	seen := make(map[string]bool)

	var matches []entity.Element

	for _, strategy := range strategies {
		for _, el := range elements {
			if !el.Visible || !el.Enabled || seen[el.Selector] {
				continue
			}

			if strategy.Match != nil && !strategy.Match(el) {
				continue
			}

			if len(strategy.Keywords) > 0 && !AnyKeyword(elementText(el), strategy.Keywords) {
				continue
			}

			seen[el.Selector] = true
			matches = append(matches, el)
		}
	}

	return matches
}

func elementText(el entity.Element) string {
	return strings.Join([]string{el.Text, el.Label, el.Placeholder, el.Name, el.ID}, " ")
}

// Fold lowercases with Turkish casing rules so "TEKLİF" matches
// "teklif" and "I" folds to "ı" rather than "i".
func Fold(s string) string {
	return strings.ToLowerSpecial(unicode.TurkishCase, s)
}

// AnyKeyword reports whether the folded text contains any of the
// (already lowercase) keywords.
func AnyKeyword(text string, keywords []string) bool {
	folded := Fold(text)

	for _, kw := range keywords {
		if strings.Contains(folded, kw) {
			return true
		}
	}

	return false
}

// NoKeyword reports that none of the keywords occur in the text.
func NoKeyword(text string, keywords []string) bool {
	return !AnyKeyword(text, keywords)
}
