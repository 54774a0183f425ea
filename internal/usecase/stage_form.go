package usecase

import (
	"context"

	"go.uber.org/zap"

	"sompo-quote-agent/internal/entity"
	"sompo-quote-agent/internal/locator"
	"sompo-quote-agent/pkg/apperr"
	"sompo-quote-agent/pkg/logg"
)

// fillAndSubmit binds the request's vehicle identifiers into the quote
// form and submits it. Missing optional fields degrade to warnings; a
// missing submit control is fatal because nothing can be quoted then.
func (s *PipelineService) fillAndSubmit(ctx context.Context, request *entity.QuoteRequest, runTrace *entity.RunTrace) error {
	const op = "fillAndSubmit"
	logger := s.logger.With(
		zap.String(logg.Operation, op),
		zap.String(logg.Stage, apperr.StageForm),
	)

	s.reconcileProductCheckboxes(ctx, request.ProductType, runTrace, logger)

	// One input can satisfy both keyword sets (a combined "TC / Plaka"
	// field); each input binds to at most one value.
	bound := make(map[string]bool)
	s.fillField(ctx, locator.IntentPlateField, "plate", request.Plate, bound, runTrace, logger)
	s.fillField(ctx, locator.IntentNationalIDField, "tckn", request.NationalID, bound, runTrace, logger)

	if _, err := s.exec.Execute(ctx, StepClick, locator.IntentSubmitQuote, ""); err != nil {
		if ctx.Err() != nil {
			return err
		}

		s.collectErrorMessages(ctx, runTrace)
		path := s.exec.Snapshot(ctx, "submit_not_found")

		return apperr.Wrap(op, apperr.CodeSubmitNotFound, err, map[string]any{
			apperr.MetaStage: apperr.StageForm,
			"snapshot":       path,
		})
	}

	logger.Info("Quote form submitted")

	s.settle(ctx)
	if err := s.driver.WaitForNetworkIdle(ctx, networkIdleTimeout); err != nil {
		logger.Warn("Network idle wait after submit failed", zap.Error(err))
	}
	s.awaitSpinnerGone(ctx, logger)

	return nil
}

// reconcileProductCheckboxes makes the product-selection checkboxes on
// the form match the requested product: its own box checked, the
// competing product's box cleared. The form may ship without the
// checkboxes at all, which is fine.
func (s *PipelineService) reconcileProductCheckboxes(ctx context.Context, product entity.ProductType, runTrace *entity.RunTrace, logger *zap.Logger) {
	other := entity.ProductKasko
	if product == entity.ProductKasko {
		other = entity.ProductTrafik
	}

	result, err := s.driver.Evaluate(ctx, checkboxReconcileScript(product.DisplayName(), other.DisplayName()))
	if err != nil {
		logger.Warn("Checkbox reconciliation failed", zap.Error(err))
		return
	}

	toggled, ok := result.(float64)
	if !ok || toggled == 0 {
		return
	}

	runTrace.Diag("product checkboxes reconciled")
	logger.Info("Product checkboxes reconciled", zap.Int("toggled", int(toggled)))

	s.settle(ctx)
}

// fillField binds one value to the first not-yet-bound input matching
// the intent, with the reactive fill so framework-bound inputs commit
// it, then reads the value back. Absence of an unbound field is a
// warning: some portal layouts prefill identifiers from the agency
// account and omit the input.
func (s *PipelineService) fillField(ctx context.Context, intent locator.Intent, name, value string, bound map[string]bool, runTrace *entity.RunTrace, logger *zap.Logger) {
	if value == "" {
		return
	}

	var target entity.Element
	found := false

	for attempt := 0; attempt <= s.config.PipelineConfig.StepRetries && !found; attempt++ {
		if attempt > 0 {
			s.settle(ctx)
		}

		for _, el := range s.exec.ResolveAllVisible(ctx, intent) {
			if bound[el.Selector] {
				continue
			}

			target = el
			found = true

			break
		}
	}

	if !found {
		runTrace.Warn("field not found: " + name)
		logger.Warn("Form field not found, continuing without it",
			zap.String(logg.Intent, string(intent)),
			zap.String("field", name))
		return
	}

	bound[target.Selector] = true

	if err := s.driver.FillReactive(ctx, target.Selector, value); err != nil {
		runTrace.Warn("field fill failed: " + name)
		logger.Warn("Form field fill failed",
			zap.String("field", name),
			zap.String(logg.Selector, target.Selector),
			zap.Error(err))
		return
	}

	back, readErr := s.driver.ReadValue(ctx, target.Selector)
	if readErr == nil && back != value {
		runTrace.Warn("field readback mismatch: " + name)
		logger.Warn("Form field readback mismatch",
			zap.String("field", name),
			zap.String(logg.Selector, target.Selector))
	}
}
