package locator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sompo-quote-agent/internal/entity"
)

func visibleInput(selector, inputType, name string) entity.Element {
	return entity.Element{
		Tag:      "input",
		Type:     inputType,
		Name:     name,
		Selector: selector,
		Visible:  true,
		Enabled:  true,
	}
}

func TestResolveStrategyOrderWins(t *testing.T) {
	r := NewResolver()

	// The decoy satisfies the generic "first text input" fallback; the
	// named element satisfies the first, specific strategy. The
	// specific strategy is listed first, so its match must win even
	// though the decoy appears earlier in document order.
	decoy := visibleInput("#decoy", "text", "")
	named := visibleInput("#user", "text", "username")

	el, ok := r.Resolve(IntentUsernameField, []entity.Element{decoy, named})
	require.True(t, ok)
	assert.Equal(t, "#user", el.Selector)
}

func TestResolveSkipsInvisibleAndDisabled(t *testing.T) {
	r := NewResolver()

	hidden := visibleInput("#hidden", "password", "")
	hidden.Visible = false

	disabled := visibleInput("#disabled", "password", "")
	disabled.Enabled = false

	active := visibleInput("#pwd", "password", "")

	el, ok := r.Resolve(IntentPasswordField, []entity.Element{hidden, disabled, active})
	require.True(t, ok)
	assert.Equal(t, "#pwd", el.Selector)
}

func TestResolveAbsenceIsNotAnError(t *testing.T) {
	r := NewResolver()

	_, ok := r.Resolve(IntentPlateField, nil)
	assert.False(t, ok)
}

func TestResolveKeywordRequirement(t *testing.T) {
	r := NewResolver()

	other := entity.Element{Tag: "button", Text: "İPTAL", Selector: "#cancel", Visible: true, Enabled: true}
	submit := entity.Element{Tag: "button", Text: "TEKLİF OLUŞTUR", Selector: "#submit", Visible: true, Enabled: true}

	el, ok := r.Resolve(IntentSubmitQuote, []entity.Element{other, submit})
	require.True(t, ok)
	assert.Equal(t, "#submit", el.Selector, "keyword strategy must pick the quote button over the earlier cancel button")
}

func TestResolveAllReportsEveryMatchOnce(t *testing.T) {
	r := NewResolver()

	ok := entity.Element{Tag: "button", Text: "Tamam", Selector: "#ok", Visible: true, Enabled: true}
	x := entity.Element{Tag: "button", Text: "×", Selector: "#x", Visible: true, Enabled: true}
	unrelated := entity.Element{Tag: "button", Text: "Detay", Selector: "#detail", Visible: true, Enabled: true}

	matches := r.ResolveAll(IntentDismissPopup, []entity.Element{ok, x, unrelated, ok})
	require.Len(t, matches, 2)
	assert.Equal(t, "#ok", matches[0].Selector)
	assert.Equal(t, "#x", matches[1].Selector)
}

func TestFoldHandlesTurkishDottedI(t *testing.T) {
	assert.Equal(t, "teklif al", Fold("TEKLİF AL"))
	assert.True(t, AnyKeyword("YENİ İŞ TEKLİFİ", []string{"yeni iş teklifi"}))
}

func TestDismissPopupMatchesExactControls(t *testing.T) {
	r := NewResolver()

	longText := entity.Element{Tag: "button", Text: "Hayır demeyin, kampanyayı inceleyin", Selector: "#promo", Visible: true, Enabled: true}
	no := entity.Element{Tag: "button", Text: "Hayır", Selector: "#no", Visible: true, Enabled: true}

	el, ok := r.Resolve(IntentDismissPopup, []entity.Element{longText, no})
	require.True(t, ok)
	assert.Equal(t, "#no", el.Selector)
}
