package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Premium amounts serialize as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

type ProductType string

const (
	ProductTrafik ProductType = "trafik"
	ProductKasko  ProductType = "kasko"
)

func (p ProductType) Valid() bool {
	return p == ProductTrafik || p == ProductKasko
}

// DisplayName is the product label as rendered by the portal,
// used when scanning cards and checkboxes for the product text.
func (p ProductType) DisplayName() string {
	switch p {
	case ProductTrafik:
		return "Trafik"
	case ProductKasko:
		return "Kasko"
	default:
		return string(p)
	}
}

// QuoteRequest is the immutable per-run input.
type QuoteRequest struct {
	RequestID   string      `json:"request_id,omitempty"`
	Plate       string      `json:"plate"`
	NationalID  string      `json:"tckn"`
	ProductType ProductType `json:"product_type"`
}

// Credentials is loaded from the environment and lives for one run.
// Password and TOTPSecret must never be logged in full.
type Credentials struct {
	Username   string
	Password   string
	TOTPSecret string
}

type FailureKind string

const (
	FailureLoginFailed          FailureKind = "login_failed"
	FailureOTPRequired          FailureKind = "otp_required"
	FailureOTPFailed            FailureKind = "otp_failed"
	FailureBotDetected          FailureKind = "bot_detected"
	FailureDashboardUnreachable FailureKind = "dashboard_unreachable"
	FailureProductSelection     FailureKind = "product_selection_failed"
	FailureFieldNotFound        FailureKind = "field_not_found"
	FailureSubmitNotFound       FailureKind = "submit_not_found"
	FailurePriceNotFound        FailureKind = "price_not_found"
	FailureElementNotFound      FailureKind = "element_not_found"
	FailureTimeout              FailureKind = "timeout"
)

// StageResult reports one pipeline stage's outcome.
type StageResult struct {
	Success     bool
	Diagnostics []string
	FailureKind FailureKind
}

// RunTrace accumulates stage diagnostics and warnings across the run
// for failure reporting.
type RunTrace struct {
	Diagnostics []string
	Warnings    []string
}

func (t *RunTrace) Diag(msg string) {
	t.Diagnostics = append(t.Diagnostics, msg)
}

func (t *RunTrace) Warn(msg string) {
	t.Warnings = append(t.Warnings, msg)
}

// PriceCandidate is a currency-looking fragment harvested from the
// result page, discarded once the premium is chosen.
type PriceCandidate struct {
	RawText string
	Value   decimal.Decimal
}

type PremiumDetail struct {
	Net      decimal.Decimal `json:"net"`
	Gross    decimal.Decimal `json:"gross"`
	Taxes    decimal.Decimal `json:"taxes"`
	Currency string          `json:"currency"`
}

type Installment struct {
	Count          int             `json:"count"`
	PerInstallment decimal.Decimal `json:"per_installment"`
	Total          decimal.Decimal `json:"total"`
}

type Coverage struct {
	Code     string           `json:"code"`
	Name     string           `json:"name"`
	Limit    *decimal.Decimal `json:"limit"`
	Included bool             `json:"included"`
}

type Timings struct {
	ScrapeMs int64 `json:"scrape_ms"`
}

// QuoteResponse is the sole externally visible output, constructed
// exactly once at the end of the run.
type QuoteResponse struct {
	Success      bool          `json:"success"`
	Company      string        `json:"company"`
	ProductType  ProductType   `json:"product_type"`
	Premium      PremiumDetail `json:"premium"`
	Installments []Installment `json:"installments"`
	Coverages    []Coverage    `json:"coverages"`
	Warnings     []string      `json:"warnings"`
	Timings      Timings       `json:"timings"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Element describes one visible interactive element as enumerated in
// the page, with the metadata the locator heuristics inspect.
type Element struct {
	Tag         string
	Text        string
	Selector    string
	Type        string
	Name        string
	ID          string
	Placeholder string
	Label       string
	Value       string
	Checked     bool
	Visible     bool
	Enabled     bool
	BoundingBox BoundingBox
}

type BoundingBox struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

type PageState struct {
	URL       string
	Title     string
	Elements  []Element
	Timestamp time.Time
}
