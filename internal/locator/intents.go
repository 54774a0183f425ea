package locator

import (
	"strings"

	"sompo-quote-agent/internal/entity"
)

// Strategy tables per intent, ordered most-specific to most-generic.
// The ordering is contractual: generic fallbacks like "any text input"
// sit last because they can mismatch under a changed layout.
func intentTable() map[Intent][]Strategy {
	return map[Intent][]Strategy{
		IntentUsernameField: {
			{
				Name: "named_username_input",
				Match: func(el entity.Element) bool {
					return isTextInput(el) && AnyKeyword(el.Name+" "+el.ID, []string{"username", "email", "kullanıcı", "kullanici"})
				},
			},
			{
				Name: "placeholder_username_input",
				Match: func(el entity.Element) bool {
					return isTextInput(el) && AnyKeyword(el.Placeholder+" "+el.Label, []string{"kullanıcı", "kullanici", "e-posta", "email"})
				},
			},
			{
				Name:  "first_text_input",
				Match: isTextInput,
			},
		},
		IntentPasswordField: {
			{
				Name: "password_type_input",
				Match: func(el entity.Element) bool {
					return el.Tag == "input" && el.Type == "password"
				},
			},
			{
				Name: "named_password_input",
				Match: func(el entity.Element) bool {
					return el.Tag == "input" && AnyKeyword(el.Name+" "+el.ID, []string{"password", "şifre", "sifre", "parola"})
				},
			},
		},
		IntentLoginSubmit: {
			{
				Name: "submit_button_with_login_text",
				Match: func(el entity.Element) bool {
					return isSubmitControl(el)
				},
				Keywords: []string{"giriş", "giris", "login"},
			},
			{
				Name:  "any_submit_button",
				Match: isSubmitControl,
			},
		},
		IntentOTPInput: {
			{
				Name: "one_time_code_input",
				Match: func(el entity.Element) bool {
					return el.Tag == "input" && AnyKeyword(el.Placeholder+" "+el.Name+" "+el.ID, []string{"otp", "kod", "doğrulama", "dogrulama"})
				},
			},
			{
				Name: "numeric_input",
				Match: func(el entity.Element) bool {
					return el.Tag == "input" && (el.Type == "tel" || el.Type == "number")
				},
			},
			{
				Name:  "any_text_input",
				Match: isTextInput,
			},
		},
		IntentReloadHome: {
			{
				Name:     "reload_home_control",
				Match:    isClickable,
				Keywords: []string{"ana sayfayı yükle", "ana sayfayi yukle", "ana sayfa"},
			},
		},
		IntentNewQuoteTrigger: {
			{
				Name:     "new_quote_button",
				Match:    isClickable,
				Keywords: []string{"yeni iş teklifi", "yeni is teklifi", "yeni teklif"},
			},
		},
		IntentDismissPopup: {
			{
				Name: "dismiss_button",
				Match: func(el entity.Element) bool {
					if !isClickable(el) {
						return false
					}
					text := strings.TrimSpace(Fold(el.Text))
					return text == "tamam" || text == "hayır" || text == "hayir" ||
						text == "kapat" || text == "x" || text == "×" ||
						AnyKeyword(el.Label, []string{"close", "kapat"})
				},
			},
		},
		IntentPlateField: {
			{
				Name: "named_plate_input",
				Match: func(el entity.Element) bool {
					return isTextInput(el) && AnyKeyword(el.Name+" "+el.ID, []string{"plaka", "plate"})
				},
			},
			{
				Name: "labelled_plate_input",
				Match: func(el entity.Element) bool {
					return isTextInput(el) && AnyKeyword(el.Placeholder+" "+el.Label, []string{"plaka", "plak", "araç"})
				},
			},
		},
		IntentNationalIDField: {
			{
				Name: "named_tckn_input",
				Match: func(el entity.Element) bool {
					return isTextInput(el) && AnyKeyword(el.Name+" "+el.ID, []string{"tckn", "tcno", "kimlik"})
				},
			},
			{
				Name: "labelled_tckn_input",
				Match: func(el entity.Element) bool {
					return isTextInput(el) && AnyKeyword(el.Placeholder+" "+el.Label, []string{"tckn", "kimlik", "tc"})
				},
			},
		},
		IntentSubmitQuote: {
			{
				Name:     "quote_submit_button",
				Match:    isSubmitControl,
				Keywords: []string{"teklif", "sorgula", "hesapla", "devam"},
			},
			{
				Name:  "any_submit_button",
				Match: isSubmitControl,
			},
		},
	}
}

func isTextInput(el entity.Element) bool {
	return el.Tag == "input" && (el.Type == "" || el.Type == "text")
}

func isClickable(el entity.Element) bool {
	return el.Tag == "button" || el.Tag == "a" || el.Label != "" && el.Tag != "input"
}

func isSubmitControl(el entity.Element) bool {
	if el.Tag == "button" {
		return true
	}

	return el.Tag == "input" && el.Type == "submit"
}
