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
	urlWaitTimeout       = 20 * time.Second
	otpWaitTimeout       = 15 * time.Second
	dashboardWaitTimeout = 15 * time.Second
	botMaxRecovery       = 2
	markerOTP            = "authenticator"
	markerBot            = "/bot"
	markerDashboard      = "dashboard"
	markerLogin          = "login"
)

// authenticate drives the portal login: credential entry, submit,
// optional one-time-password challenge, bot interstitial recovery, and
// dashboard confirmation. Any fatal outcome carries a screenshot path
// in its metadata.
func (s *PipelineService) authenticate(ctx context.Context, creds *entity.Credentials, runTrace *entity.RunTrace) error {
	const op = "authenticate"
	logger := s.logger.With(
		zap.String(logg.Operation, op),
		zap.String(logg.Stage, apperr.StageAuth),
	)

	loginURL := s.config.PortalConfig.LoginURL()
	if err := s.driver.Navigate(ctx, loginURL); err != nil {
		return apperr.Wrap(op, apperr.CodeLoginFailed, err, map[string]any{
			apperr.MetaStage: apperr.StageAuth,
			apperr.MetaURL:   loginURL,
		})
	}

	s.settle(ctx)

	userField, err := s.exec.Execute(ctx, StepFill, locator.IntentUsernameField, creds.Username)
	if err != nil {
		return s.authFailure(ctx, op, "username_field_not_found", runTrace, err)
	}

	passField, err := s.exec.Execute(ctx, StepFill, locator.IntentPasswordField, creds.Password)
	if err != nil {
		return s.authFailure(ctx, op, "password_field_not_found", runTrace, err)
	}

	// Readback catches inputs a framework handler silently cleared.
	// Values are compared, never logged.
	if back, readErr := s.driver.ReadValue(ctx, userField.Selector); readErr == nil && back != creds.Username {
		runTrace.Warn("username readback mismatch")
		logger.Warn("Username field readback mismatch", zap.String(logg.Selector, userField.Selector))
	}

	// Password compared by length only so the secret never leaves the
	// field.
	if back, readErr := s.driver.ReadValue(ctx, passField.Selector); readErr == nil && len(back) != len(creds.Password) {
		runTrace.Warn("password readback mismatch")
		logger.Warn("Password field readback mismatch", zap.String(logg.Selector, passField.Selector))
	}

	if err := s.submitLogin(ctx, passField.Selector); err != nil {
		return s.authFailure(ctx, op, "login_submit_failed", runTrace, err)
	}

	logger.Info("Credentials submitted, waiting for post-login page")

	// login_failed is reserved for a URL that never leaves the login
	// page; any transition counts, marker or not, and the later
	// dashboard gate sorts out where the flow actually landed.
	err = s.driver.WaitForURL(ctx, func(url string) bool {
		lower := strings.ToLower(url)
		return strings.Contains(lower, markerOTP) ||
			strings.Contains(lower, markerBot) ||
			!strings.Contains(lower, markerLogin)
	}, urlWaitTimeout)
	if err != nil {
		return s.authFailure(ctx, op, "no_post_login_transition", runTrace, err)
	}

	url, err := s.driver.CurrentURL(ctx)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeLoginFailed, err, map[string]any{
			apperr.MetaStage: apperr.StageAuth,
		})
	}

	if strings.Contains(strings.ToLower(url), markerOTP) {
		if err := s.passOTPChallenge(ctx, creds, runTrace); err != nil {
			return err
		}
	}

	if err := s.recoverFromBotPage(ctx, runTrace); err != nil {
		return err
	}

	return s.confirmDashboard(ctx, runTrace)
}

// submitLogin presses Enter in the password field, the portal's
// primary submit path, and falls back to a visible login button.
func (s *PipelineService) submitLogin(ctx context.Context, passwordSelector string) error {
	if err := s.driver.Press(ctx, passwordSelector, "Enter"); err == nil {
		return nil
	}

	if _, ok := s.exec.Try(ctx, StepClick, locator.IntentLoginSubmit, ""); ok {
		return nil
	}

	return errors.New("neither enter key nor login button submitted the form")
}

func (s *PipelineService) passOTPChallenge(ctx context.Context, creds *entity.Credentials, runTrace *entity.RunTrace) error {
	const op = "passOTPChallenge"
	logger := s.logger.With(
		zap.String(logg.Operation, op),
		zap.String(logg.Stage, apperr.StageAuth),
	)

	logger.Info("One-time-password challenge detected")
	runTrace.Diag("otp challenge presented")

	if creds.TOTPSecret == "" {
		path := s.exec.Snapshot(ctx, "otp_required")
		return apperr.Wrap(op, apperr.CodeOTPRequired,
			errors.New("portal requires a one-time password and no seed is configured"),
			map[string]any{
				apperr.MetaStage:  apperr.StageAuth,
				apperr.MetaReason: "missing_totp_seed",
				"snapshot":        path,
			})
	}

	code, err := s.codes.CurrentCode(creds.TOTPSecret)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeOTPFailed, err, map[string]any{
			apperr.MetaStage:  apperr.StageAuth,
			apperr.MetaReason: "code_generation_failed",
		})
	}

	otpField, err := s.exec.Execute(ctx, StepFill, locator.IntentOTPInput, code)
	if err != nil {
		return s.otpFailure(ctx, op, "otp_input_not_found", err)
	}

	if pressErr := s.driver.Press(ctx, otpField.Selector, "Enter"); pressErr != nil {
		s.exec.Try(ctx, StepClick, locator.IntentLoginSubmit, "")
	}

	// Some flows auto-advance off the challenge page on their own
	// schedule, so a timeout here is a warning only. The bounded
	// dashboard confirmation is the authoritative verdict.
	waitErr := s.driver.WaitForURL(ctx, func(url string) bool {
		return !strings.Contains(strings.ToLower(url), markerOTP)
	}, otpWaitTimeout)
	if waitErr != nil {
		runTrace.Warn("otp page did not transition within the wait window")
		logger.Warn("Still on challenge page after submitting code")

		return nil
	}

	logger.Info("One-time-password challenge passed")

	return nil
}

func (s *PipelineService) otpFailure(ctx context.Context, op, reason string, err error) error {
	path := s.exec.Snapshot(ctx, "otp_failed")

	return apperr.Wrap(op, apperr.CodeOTPFailed, err, map[string]any{
		apperr.MetaStage:  apperr.StageAuth,
		apperr.MetaReason: reason,
		"snapshot":        path,
	})
}

// recoverFromBotPage handles the anti-automation interstitial. The page
// offers a reload-home control; when that is missing a plain reload is
// attempted instead. Two failed recoveries is a hard stop.
func (s *PipelineService) recoverFromBotPage(ctx context.Context, runTrace *entity.RunTrace) error {
	const op = "recoverFromBotPage"
	logger := s.logger.With(
		zap.String(logg.Operation, op),
		zap.String(logg.Stage, apperr.StageAuth),
	)

	for attempt := 1; attempt <= botMaxRecovery+1; attempt++ {
		url, err := s.driver.CurrentURL(ctx)
		if err != nil {
			return apperr.Wrap(op, apperr.CodeBotDetected, err, map[string]any{
				apperr.MetaStage: apperr.StageAuth,
			})
		}

		if !strings.Contains(strings.ToLower(url), markerBot) {
			return nil
		}

		if attempt > botMaxRecovery {
			break
		}

		runTrace.Diag(fmt.Sprintf("bot interstitial, recovery attempt %d", attempt))
		logger.Warn("Bot interstitial detected, recovering",
			zap.Int(logg.Attempt, attempt),
			zap.String(logg.URL, url))

		if _, ok := s.exec.Try(ctx, StepClick, locator.IntentReloadHome, ""); !ok {
			if reloadErr := s.driver.Reload(ctx); reloadErr != nil {
				logger.Warn("Reload during bot recovery failed", zap.Error(reloadErr))
			}
		}

		s.settle(ctx)
	}

	path := s.exec.Snapshot(ctx, "bot_detected")

	return apperr.Wrap(op, apperr.CodeBotDetected,
		errors.New("anti-automation interstitial persisted after recovery attempts"),
		map[string]any{
			apperr.MetaStage: apperr.StageAuth,
			"snapshot":       path,
		})
}

// confirmDashboard is the authoritative gate for the whole stage: the
// OTP and bot paths can land on intermediate URLs, so the dashboard is
// awaited with its own bounded window rather than read once.
func (s *PipelineService) confirmDashboard(ctx context.Context, runTrace *entity.RunTrace) error {
	const op = "confirmDashboard"

	err := s.driver.WaitForURL(ctx, func(url string) bool {
		lower := strings.ToLower(url)
		return strings.Contains(lower, markerDashboard) && !strings.Contains(lower, markerLogin)
	}, dashboardWaitTimeout)
	if err == nil {
		url, _ := s.driver.CurrentURL(ctx)
		s.logger.Info("Dashboard reached",
			zap.String(logg.Operation, op),
			zap.String(logg.URL, url))

		return nil
	}

	url, urlErr := s.driver.CurrentURL(ctx)
	if urlErr != nil {
		return apperr.Wrap(op, apperr.CodeDashboardUnreachable, urlErr, map[string]any{
			apperr.MetaStage: apperr.StageAuth,
		})
	}

	s.collectErrorMessages(ctx, runTrace)
	path := s.exec.Snapshot(ctx, "dashboard_unreachable")

	return apperr.Wrap(op, apperr.CodeDashboardUnreachable,
		fmt.Errorf("post-login page is not the dashboard: %s", url),
		map[string]any{
			apperr.MetaStage: apperr.StageAuth,
			apperr.MetaURL:   url,
			"snapshot":       path,
		})
}

func (s *PipelineService) authFailure(ctx context.Context, op, reason string, runTrace *entity.RunTrace, err error) error {
	s.collectErrorMessages(ctx, runTrace)
	path := s.exec.Snapshot(ctx, "login_failed")

	return apperr.Wrap(op, apperr.CodeLoginFailed, err, map[string]any{
		apperr.MetaStage:  apperr.StageAuth,
		apperr.MetaReason: reason,
		"snapshot":        path,
	})
}

// collectErrorMessages sweeps the page for short validation or error
// texts and records them as run diagnostics.
func (s *PipelineService) collectErrorMessages(ctx context.Context, runTrace *entity.RunTrace) {
	result, err := s.driver.Evaluate(ctx, errorMessagesScript())
	if err != nil {
		return
	}

	items, ok := result.([]any)
	if !ok {
		return
	}

	for _, item := range items {
		if text, ok := item.(string); ok && text != "" {
			runTrace.Diag("page message: " + text)
		}
	}
}

func (s *PipelineService) settle(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(s.config.PipelineConfig.SettleDelay):
	}
}
