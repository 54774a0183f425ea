package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sompo-quote-agent/internal/entity"
	"sompo-quote-agent/pkg/apperr"
)

func TestRunTrafikQuote(t *testing.T) {
	driver := newFakeDriver()
	scriptHappyPortal(driver, []any{"4.350,00 TL", "890 TL"})

	pipeline := testPipeline(t, driver)

	resp, err := pipeline.Run(context.Background(), &entity.QuoteRequest{
		Plate:       "34ABC123",
		NationalID:  "12345678901",
		ProductType: entity.ProductTrafik,
	})
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.True(t, resp.Success)
	assert.Equal(t, "Sompo", resp.Company)
	assert.Equal(t, entity.ProductTrafik, resp.ProductType)

	assert.Equal(t, "4350", resp.Premium.Gross.String())
	assert.Equal(t, "3686.44", resp.Premium.Net.String())
	assert.Equal(t, "663.56", resp.Premium.Taxes.String())
	assert.Equal(t, "TRY", resp.Premium.Currency)

	assert.True(t, resp.Premium.Net.Add(resp.Premium.Taxes).Equal(resp.Premium.Gross),
		"net plus taxes must reconstruct gross")

	require.Len(t, resp.Installments, 2)
	assert.Equal(t, 1, resp.Installments[0].Count)
	assert.True(t, resp.Installments[0].PerInstallment.Equal(resp.Premium.Gross))
	assert.Equal(t, 3, resp.Installments[1].Count)
	assert.Equal(t, "1450", resp.Installments[1].PerInstallment.String())

	require.Len(t, resp.Coverages, 1)
	assert.Equal(t, "TRAFIK_ZORUNLU", resp.Coverages[0].Code)
	assert.True(t, resp.Coverages[0].Included)

	assert.GreaterOrEqual(t, resp.Timings.ScrapeMs, int64(0))

	assert.Equal(t, "34ABC123", driver.fills["#plate"])
	assert.Equal(t, "12345678901", driver.fills["#tckn"])
	assert.True(t, driver.closed, "browser session must be released after the run")
}

func TestRunKaskoCoverage(t *testing.T) {
	driver := newFakeDriver()
	scriptHappyPortal(driver, []any{"15.750,50 TL"})

	pipeline := testPipeline(t, driver)

	resp, err := pipeline.Run(context.Background(), &entity.QuoteRequest{
		Plate:       "06XYZ42",
		NationalID:  "98765432109",
		ProductType: entity.ProductKasko,
	})
	require.NoError(t, err)

	assert.Equal(t, entity.ProductKasko, resp.ProductType)
	assert.Equal(t, "15750.5", resp.Premium.Gross.String())
	require.Len(t, resp.Coverages, 1)
	assert.Equal(t, "KASKO_TAM", resp.Coverages[0].Code)
}

func TestRunPicksHighestPlausibleAmount(t *testing.T) {
	driver := newFakeDriver()
	scriptHappyPortal(driver, []any{"4.350 TL", "12.000.000 TL", "890 TL"})

	pipeline := testPipeline(t, driver)

	resp, err := pipeline.Run(context.Background(), &entity.QuoteRequest{
		Plate:       "34ABC123",
		NationalID:  "12345678901",
		ProductType: entity.ProductTrafik,
	})
	require.NoError(t, err)

	// 12.000.000 is above the plausibility ceiling and must lose to
	// the highest in-bounds amount.
	assert.Equal(t, "4350", resp.Premium.Gross.String())
}

func TestRunRejectsUnknownProduct(t *testing.T) {
	driver := newFakeDriver()
	pipeline := testPipeline(t, driver)

	_, err := pipeline.Run(context.Background(), &entity.QuoteRequest{
		Plate:       "34ABC123",
		ProductType: entity.ProductType("saglik"),
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
}

func TestRunOTPRequiredWithoutSeed(t *testing.T) {
	driver := newFakeDriver()
	driver.elements = loginElements()
	driver.pressHooks["#pass"] = func(d *fakeDriver) {
		d.url = "https://ejento.somposigorta.com.tr/authenticator"
		d.elements = nil
	}

	pipeline := testPipeline(t, driver)

	_, err := pipeline.Run(context.Background(), &entity.QuoteRequest{
		Plate:       "34ABC123",
		NationalID:  "12345678901",
		ProductType: entity.ProductTrafik,
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeOTPRequired, apperr.CodeOf(err))
	assert.True(t, driver.closed)
}

func TestRunPassesOTPChallenge(t *testing.T) {
	driver := newFakeDriver()
	scriptHappyPortal(driver, []any{"4.350,00 TL"})

	otpInput := entity.Element{
		Tag: "input", Type: "tel", Name: "otp-code", Selector: "#otp",
		Visible: true, Enabled: true,
	}
	driver.pressHooks["#pass"] = func(d *fakeDriver) {
		d.url = "https://ejento.somposigorta.com.tr/authenticator"
		d.elements = []entity.Element{otpInput}
	}
	driver.pressHooks["#otp"] = func(d *fakeDriver) {
		d.url = "https://ejento.somposigorta.com.tr/dashboard/home"
		d.elements = dashboardElements()
	}

	pipeline := testPipeline(t, driver)
	pipeline.config.PortalConfig.TOTPSecret = "JBSWY3DPEHPK3PXP"

	resp, err := pipeline.Run(context.Background(), &entity.QuoteRequest{
		Plate:       "34ABC123",
		NationalID:  "12345678901",
		ProductType: entity.ProductTrafik,
	})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "123456", driver.fills["#otp"])
}

func TestRunOTPAutoAdvanceAfterWaitWindow(t *testing.T) {
	driver := newFakeDriver()
	scriptHappyPortal(driver, []any{"4.350,00 TL"})

	driver.pressHooks["#pass"] = func(d *fakeDriver) {
		d.url = "https://ejento.somposigorta.com.tr/authenticator"
		d.elements = []entity.Element{
			{Tag: "input", Type: "tel", Name: "otp-code", Selector: "#otp", Visible: true, Enabled: true},
		}
	}
	// The challenge page advances on its own, after the wait window
	// for leaving the authenticator URL has already closed.
	driver.tickHook = func(d *fakeDriver, tick int) {
		if tick >= 25 {
			d.url = "https://ejento.somposigorta.com.tr/dashboard/home"
			d.elements = dashboardElements()
		}
	}

	pipeline := testPipeline(t, driver)
	pipeline.config.PortalConfig.TOTPSecret = "JBSWY3DPEHPK3PXP"

	resp, err := pipeline.Run(context.Background(), &entity.QuoteRequest{
		Plate:       "34ABC123",
		NationalID:  "12345678901",
		ProductType: entity.ProductTrafik,
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Warnings, "otp page did not transition within the wait window")
}

func TestRunDashboardArrivesAfterOTPDetour(t *testing.T) {
	driver := newFakeDriver()
	scriptHappyPortal(driver, []any{"4.350,00 TL"})

	driver.pressHooks["#pass"] = func(d *fakeDriver) {
		d.url = "https://ejento.somposigorta.com.tr/authenticator"
		d.elements = []entity.Element{
			{Tag: "input", Type: "tel", Name: "otp-code", Selector: "#otp", Visible: true, Enabled: true},
		}
	}
	// The code is accepted onto an interim page; the dashboard URL
	// only shows up a few polls later.
	driver.pressHooks["#otp"] = func(d *fakeDriver) {
		d.url = "https://ejento.somposigorta.com.tr/landing"
		d.elements = dashboardElements()
		d.tickHook = func(d *fakeDriver, tick int) {
			if tick >= 3 {
				d.url = "https://ejento.somposigorta.com.tr/dashboard/home"
			}
		}
	}

	pipeline := testPipeline(t, driver)
	pipeline.config.PortalConfig.TOTPSecret = "JBSWY3DPEHPK3PXP"

	resp, err := pipeline.Run(context.Background(), &entity.QuoteRequest{
		Plate:       "34ABC123",
		NationalID:  "12345678901",
		ProductType: entity.ProductTrafik,
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestRunUnmarkedTransitionIsDashboardUnreachable(t *testing.T) {
	driver := newFakeDriver()
	driver.elements = loginElements()
	driver.pressHooks["#pass"] = func(d *fakeDriver) {
		d.url = "https://ejento.somposigorta.com.tr/welcome"
		d.elements = nil
	}

	pipeline := testPipeline(t, driver)

	_, err := pipeline.Run(context.Background(), &entity.QuoteRequest{
		Plate:       "34ABC123",
		NationalID:  "12345678901",
		ProductType: entity.ProductTrafik,
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeDashboardUnreachable, apperr.CodeOf(err))
}

func TestRunCombinedFieldBindsOnce(t *testing.T) {
	driver := newFakeDriver()
	scriptHappyPortal(driver, []any{"4.350,00 TL"})

	// A single input whose metadata matches both the plate and the
	// national-id keyword sets.
	driver.clickHooks["#trafik-link"] = func(d *fakeDriver) {
		d.url = "https://cosmos.somposigorta.com.tr/quote/trafik"
		d.elements = []entity.Element{
			{Tag: "input", Type: "text", Name: "plaka", Placeholder: "TCKN / Plaka", Selector: "#combined", Visible: true, Enabled: true},
			{Tag: "button", Text: "TEKLİF OLUŞTUR", Selector: "#submit-btn", Visible: true, Enabled: true},
		}
	}

	pipeline := testPipeline(t, driver)

	resp, err := pipeline.Run(context.Background(), &entity.QuoteRequest{
		Plate:       "34ABC123",
		NationalID:  "12345678901",
		ProductType: entity.ProductTrafik,
	})
	require.NoError(t, err)

	assert.Equal(t, "34ABC123", driver.fills["#combined"],
		"the first binding must not be overwritten by the second field")
	assert.Contains(t, resp.Warnings, "field not found: tckn")
}

func TestRunBotInterstitialExhaustsRecovery(t *testing.T) {
	driver := newFakeDriver()
	driver.elements = loginElements()
	driver.pressHooks["#pass"] = func(d *fakeDriver) {
		d.url = "https://ejento.somposigorta.com.tr/bot"
		d.elements = nil
	}
	// Reload keeps landing back on the interstitial.
	driver.reloadHook = func(d *fakeDriver) {
		d.url = "https://ejento.somposigorta.com.tr/bot"
	}

	pipeline := testPipeline(t, driver)

	_, err := pipeline.Run(context.Background(), &entity.QuoteRequest{
		Plate:       "34ABC123",
		NationalID:  "12345678901",
		ProductType: entity.ProductTrafik,
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeBotDetected, apperr.CodeOf(err))
}

func TestRunBotInterstitialRecoversViaReloadControl(t *testing.T) {
	driver := newFakeDriver()
	scriptHappyPortal(driver, []any{"4.350,00 TL"})

	driver.pressHooks["#pass"] = func(d *fakeDriver) {
		d.url = "https://ejento.somposigorta.com.tr/bot"
		d.elements = []entity.Element{
			{Tag: "button", Text: "ANA SAYFAYI YÜKLE", Selector: "#reload-home", Visible: true, Enabled: true},
		}
	}
	driver.clickHooks["#reload-home"] = func(d *fakeDriver) {
		d.url = "https://ejento.somposigorta.com.tr/dashboard/home"
		d.elements = dashboardElements()
	}

	pipeline := testPipeline(t, driver)

	resp, err := pipeline.Run(context.Background(), &entity.QuoteRequest{
		Plate:       "34ABC123",
		NationalID:  "12345678901",
		ProductType: entity.ProductTrafik,
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Contains(t, driver.clicked, "#reload-home")
}

func TestRunPriceNotFound(t *testing.T) {
	driver := newFakeDriver()
	scriptHappyPortal(driver, nil)
	driver.clickHooks["#submit-btn"] = func(d *fakeDriver) {}

	pipeline := testPipeline(t, driver)

	_, err := pipeline.Run(context.Background(), &entity.QuoteRequest{
		Plate:       "34ABC123",
		NationalID:  "12345678901",
		ProductType: entity.ProductTrafik,
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodePriceNotFound, apperr.CodeOf(err))
	assert.True(t, driver.closed)
}

func TestRunMissingPlateFieldIsWarning(t *testing.T) {
	driver := newFakeDriver()
	scriptHappyPortal(driver, []any{"4.350,00 TL"})

	driver.clickHooks["#trafik-link"] = func(d *fakeDriver) {
		d.url = "https://cosmos.somposigorta.com.tr/quote/trafik"
		d.elements = []entity.Element{
			{Tag: "input", Type: "text", Name: "tckn", Selector: "#tckn", Visible: true, Enabled: true},
			{Tag: "button", Text: "TEKLİF OLUŞTUR", Selector: "#submit-btn", Visible: true, Enabled: true},
		}
	}

	pipeline := testPipeline(t, driver)

	resp, err := pipeline.Run(context.Background(), &entity.QuoteRequest{
		Plate:       "34ABC123",
		NationalID:  "12345678901",
		ProductType: entity.ProductTrafik,
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Warnings, "field not found: plate")
}

func TestRunSkipsRenewalLink(t *testing.T) {
	driver := newFakeDriver()
	scriptHappyPortal(driver, []any{"4.350,00 TL"})

	driver.pressHooks["#pass"] = func(d *fakeDriver) {
		d.url = "https://ejento.somposigorta.com.tr/dashboard/home"
		d.elements = []entity.Element{
			{Tag: "a", Text: "Trafik Yenileme", Selector: "#renewal", Visible: true, Enabled: true},
			{Tag: "a", Text: "Trafik Sigortası", Selector: "#trafik-link", Visible: true, Enabled: true},
		}
	}

	pipeline := testPipeline(t, driver)

	resp, err := pipeline.Run(context.Background(), &entity.QuoteRequest{
		Plate:       "34ABC123",
		NationalID:  "12345678901",
		ProductType: entity.ProductTrafik,
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.NotContains(t, driver.clicked, "#renewal")
	assert.Contains(t, driver.clicked, "#trafik-link")
}

func TestRunNewQuoteModalFallback(t *testing.T) {
	driver := newFakeDriver()
	scriptHappyPortal(driver, []any{"4.350,00 TL"})

	// Dashboard without direct product links: the modal path is the
	// only way in.
	driver.pressHooks["#pass"] = func(d *fakeDriver) {
		d.url = "https://ejento.somposigorta.com.tr/dashboard/home"
		d.elements = []entity.Element{
			{Tag: "button", Text: "YENİ İŞ TEKLİFİ", Selector: "#new-quote", Visible: true, Enabled: true},
		}
	}
	driver.cardClick = func(d *fakeDriver) bool {
		d.url = "https://cosmos.somposigorta.com.tr/quote/trafik"
		d.elements = quoteFormElements()
		return true
	}

	pipeline := testPipeline(t, driver)

	resp, err := pipeline.Run(context.Background(), &entity.QuoteRequest{
		Plate:       "34ABC123",
		NationalID:  "12345678901",
		ProductType: entity.ProductTrafik,
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Contains(t, driver.clicked, "#new-quote")
}
