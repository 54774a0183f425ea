package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"sompo-quote-agent/internal/entity"
	"sompo-quote-agent/pkg/apperr"
	"sompo-quote-agent/pkg/currency"
	"sompo-quote-agent/pkg/logg"
)

const (
	companyName  = "Sompo"
	currencyCode = "TRY"
)

// extractQuote harvests currency-looking fragments from the result
// page, filters them to plausible premium amounts, and assembles the
// response around the highest candidate. The highest wins because the
// result page lists the gross premium alongside smaller per-coverage
// and per-installment figures.
func (s *PipelineService) extractQuote(ctx context.Context, request *entity.QuoteRequest, runTrace *entity.RunTrace, start time.Time) (*entity.QuoteResponse, error) {
	const op = "extractQuote"
	logger := s.logger.With(
		zap.String(logg.Operation, op),
		zap.String(logg.Stage, apperr.StageExtraction),
	)

	candidates := s.harvestCandidates(ctx, logger)

	if len(candidates) == 0 {
		s.collectErrorMessages(ctx, runTrace)
		path := s.exec.Snapshot(ctx, "price_not_found")

		return nil, apperr.Wrap(op, apperr.CodePriceNotFound,
			errors.New("no plausible premium amount on the result page"),
			map[string]any{
				apperr.MetaStage: apperr.StageExtraction,
				"snapshot":       path,
			})
	}

	gross := candidates[0].Value
	for _, c := range candidates[1:] {
		if c.Value.GreaterThan(gross) {
			gross = c.Value
		}
	}

	logger.Info("Premium selected",
		zap.Int("candidates", len(candidates)),
		zap.String("gross", gross.String()))

	response := s.buildResponse(request.ProductType, gross, runTrace, start)

	return response, nil
}

// harvestCandidates polls the page for price fragments until at least
// one plausible amount appears or the window closes. The result page
// renders asynchronously after submit, so early sweeps can come back
// empty without that meaning failure.
func (s *PipelineService) harvestCandidates(ctx context.Context, logger *zap.Logger) []entity.PriceCandidate {
	deadline := time.Now().Add(s.config.PipelineConfig.ExtractWindow)
	min := decimal.NewFromFloat(s.config.PipelineConfig.PriceMin)
	max := decimal.NewFromFloat(s.config.PipelineConfig.PriceMax)

	for {
		var candidates []entity.PriceCandidate

		result, err := s.driver.Evaluate(ctx, priceFragmentsScript())
		if err != nil {
			logger.Warn("Price harvest script failed", zap.Error(err))
		} else if fragments, ok := result.([]any); ok {
			for _, fragment := range fragments {
				raw, ok := fragment.(string)
				if !ok {
					continue
				}

				value, parsed := currency.Parse(raw)
				if !parsed {
					continue
				}

				if value.LessThan(min) || value.GreaterThan(max) {
					logger.Info("Discarded out-of-bounds amount",
						zap.String("raw", raw),
						zap.String("value", value.String()))
					continue
				}

				candidates = append(candidates, entity.PriceCandidate{RawText: raw, Value: value})
			}
		}

		if len(candidates) > 0 {
			return candidates
		}

		if ctx.Err() != nil || !time.Now().Before(deadline) {
			return nil
		}

		s.settle(ctx)
	}
}

func (s *PipelineService) buildResponse(product entity.ProductType, gross decimal.Decimal, runTrace *entity.RunTrace, start time.Time) *entity.QuoteResponse {
	taxDivisor := decimal.NewFromFloat(1 + s.config.PipelineConfig.TaxRate)

	gross = gross.Round(2)
	net := gross.Div(taxDivisor).Round(2)
	taxes := gross.Sub(net).Round(2)

	warnings := runTrace.Warnings
	if warnings == nil {
		warnings = []string{}
	}

	return &entity.QuoteResponse{
		Success:     true,
		Company:     companyName,
		ProductType: product,
		Premium: entity.PremiumDetail{
			Net:      net,
			Gross:    gross,
			Taxes:    taxes,
			Currency: currencyCode,
		},
		Installments: []entity.Installment{
			{Count: 1, PerInstallment: gross, Total: gross},
			{Count: 3, PerInstallment: gross.Div(decimal.NewFromInt(3)).Round(2), Total: gross},
		},
		Coverages: coveragesFor(product),
		Warnings:  warnings,
		Timings:   entity.Timings{ScrapeMs: time.Since(start).Milliseconds()},
	}
}

func coveragesFor(product entity.ProductType) []entity.Coverage {
	switch product {
	case entity.ProductKasko:
		return []entity.Coverage{
			{Code: "KASKO_TAM", Name: "Tam Kasko", Included: true},
		}
	default:
		return []entity.Coverage{
			{Code: "TRAFIK_ZORUNLU", Name: "Zorunlu Trafik Sigortası", Included: true},
		}
	}
}
