package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"sompo-quote-agent/internal/entity"
	"sompo-quote-agent/internal/locator"
	"sompo-quote-agent/pkg/apperr"
	"sompo-quote-agent/pkg/logg"
)

const (
	popupSweeps        = 3
	navWaitTimeout     = 10 * time.Second
	networkIdleTimeout = 10 * time.Second
	maxLinkTextLen     = 100
)

// noiseKeywords mark navigation entries that mention a product without
// leading to its quote form (renewal lists, info pages, campaign ads).
var noiseKeywords = []string{"yenileme", "bilgi", "kamyon", "paket", "indirim"}

func productKeywords(product entity.ProductType) (include, exclude []string) {
	switch product {
	case entity.ProductTrafik:
		include, exclude = []string{"trafik", "zorunlu"}, []string{"kasko"}
	case entity.ProductKasko:
		include, exclude = []string{"kasko"}, []string{"trafik"}
	default:
		return nil, nil
	}

	return include, append(exclude, noiseKeywords...)
}

// selectProduct lands the session on the product's quote entry form.
// A direct dashboard link is preferred; otherwise the new-quote modal
// is opened and the product card's quote button is clicked.
func (s *PipelineService) selectProduct(ctx context.Context, product entity.ProductType, runTrace *entity.RunTrace) error {
	const op = "selectProduct"
	logger := s.logger.With(
		zap.String(logg.Operation, op),
		zap.String(logg.Stage, apperr.StageNavigation),
		zap.String(logg.Product, string(product)),
	)

	startURL, err := s.driver.CurrentURL(ctx)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeProductSelection, err, map[string]any{
			apperr.MetaStage: apperr.StageNavigation,
		})
	}

	s.dismissPopups(ctx, logger)

	clicked := s.clickDirectProductLink(ctx, product, logger)
	if clicked {
		runTrace.Diag("product reached via direct link")
	} else {
		if err := s.openProductViaModal(ctx, product, runTrace, logger); err != nil {
			return err
		}
	}

	s.awaitPageTransition(ctx, startURL, logger)

	url, err := s.driver.CurrentURL(ctx)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeProductSelection, err, map[string]any{
			apperr.MetaStage: apperr.StageNavigation,
		})
	}

	logger.Info("Product entry page reached", zap.String(logg.URL, url))

	return nil
}

// clickDirectProductLink scans visible navigation controls for one
// naming the product and not the competing one. The length bound keeps
// wide container elements whose text happens to mention the product
// from being clicked.
func (s *PipelineService) clickDirectProductLink(ctx context.Context, product entity.ProductType, logger *zap.Logger) bool {
	include, exclude := productKeywords(product)

	elements, err := s.driver.QueryVisible(ctx)
	if err != nil {
		return false
	}

	for _, el := range elements {
		if el.Tag != "a" && el.Tag != "button" {
			continue
		}

		text := strings.TrimSpace(el.Text)
		if text == "" || len(text) > maxLinkTextLen {
			continue
		}

		if !locator.AnyKeyword(text, include) || !locator.NoKeyword(text, exclude) {
			continue
		}

		if clickErr := s.driver.Click(ctx, el.Selector); clickErr != nil {
			logger.Warn("Direct product link click failed",
				zap.String(logg.Selector, el.Selector),
				zap.Error(clickErr))
			continue
		}

		logger.Info("Clicked direct product link",
			zap.String(logg.Selector, el.Selector),
			zap.String("text", text))
		s.settle(ctx)

		return true
	}

	return false
}

func (s *PipelineService) openProductViaModal(ctx context.Context, product entity.ProductType, runTrace *entity.RunTrace, logger *zap.Logger) error {
	const op = "openProductViaModal"

	if _, err := s.exec.Execute(ctx, StepClick, locator.IntentNewQuoteTrigger, ""); err != nil {
		return s.navFailure(ctx, op, "new_quote_trigger_not_found", runTrace, err)
	}

	s.settle(ctx)
	s.dismissPopups(ctx, logger)

	result, err := s.driver.Evaluate(ctx, productCardScript(product.DisplayName()))
	if err != nil {
		return s.navFailure(ctx, op, "product_card_script_failed", runTrace, err)
	}

	if ok, _ := result.(bool); !ok {
		return s.navFailure(ctx, op, "product_card_not_found", runTrace,
			fmt.Errorf("no card for %q offered a quote button", product.DisplayName()))
	}

	runTrace.Diag("product reached via new-quote modal")
	logger.Info("Clicked product card quote button")
	s.settle(ctx)

	return nil
}

// dismissPopups closes announcement and consent dialogs that sit over
// the dashboard. Multiple sweeps because closing one popup can reveal
// the next.
func (s *PipelineService) dismissPopups(ctx context.Context, logger *zap.Logger) {
	for sweep := 0; sweep < popupSweeps; sweep++ {
		controls := s.exec.ResolveAllVisible(ctx, locator.IntentDismissPopup)
		if len(controls) == 0 {
			return
		}

		for _, el := range controls {
			if err := s.driver.Click(ctx, el.Selector); err != nil {
				logger.Warn("Popup dismiss click failed",
					zap.String(logg.Selector, el.Selector),
					zap.Error(err))
				continue
			}

			logger.Info("Dismissed popup", zap.String(logg.Selector, el.Selector))
		}

		s.settle(ctx)
	}
}

// awaitPageTransition waits for the product click to take effect. The
// entry form may load on another subdomain, so any URL change counts;
// when the URL stays put the page is given a settle plus network-idle
// window instead. Neither outcome is fatal here.
func (s *PipelineService) awaitPageTransition(ctx context.Context, fromURL string, logger *zap.Logger) {
	err := s.driver.WaitForURL(ctx, func(url string) bool {
		return url != fromURL
	}, navWaitTimeout)
	if err != nil {
		logger.Info("URL unchanged after product selection, waiting for page to settle")
		s.settle(ctx)
	}

	if idleErr := s.driver.WaitForNetworkIdle(ctx, networkIdleTimeout); idleErr != nil {
		logger.Warn("Network idle wait failed", zap.Error(idleErr))
	}

	s.awaitSpinnerGone(ctx, logger)
}

func (s *PipelineService) awaitSpinnerGone(ctx context.Context, logger *zap.Logger) {
	deadline := time.Now().Add(navWaitTimeout)

	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return
		}

		result, err := s.driver.Evaluate(ctx, spinnerVisibleScript())
		if err != nil {
			return
		}

		if visible, _ := result.(bool); !visible {
			return
		}

		s.settle(ctx)
	}

	logger.Warn("Loading indicator still visible after wait window")
}

func (s *PipelineService) navFailure(ctx context.Context, op, reason string, runTrace *entity.RunTrace, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	s.collectErrorMessages(ctx, runTrace)
	path := s.exec.Snapshot(ctx, "product_selection_failed")

	return apperr.Wrap(op, apperr.CodeProductSelection, err, map[string]any{
		apperr.MetaStage:  apperr.StageNavigation,
		apperr.MetaReason: reason,
		"snapshot":        path,
	})
}
