package apperr

import (
	"errors"
	"fmt"
)

const (
	MetaReason   = "reason"
	MetaStage    = "stage"
	MetaField    = "field"
	MetaIntent   = "intent"
	MetaSelector = "selector"
	MetaURL      = "url"

	StageBrowser    = "browser"
	StageAuth       = "auth"
	StageNavigation = "navigation"
	StageForm       = "form"
	StageExtraction = "extraction"
	StageScreenshot = "screenshot"

	CodeInternal        = "internal"
	CodeInvalidArgument = "invalid_argument"
	CodeNotFound        = "not_found"
	CodeTimeout         = "timeout"
	CodeBrowserNotReady = "browser_not_ready"
	CodeActionFailed    = "action_failed"

	CodeLoginFailed          = "login_failed"
	CodeOTPRequired          = "otp_required"
	CodeOTPFailed            = "otp_failed"
	CodeBotDetected          = "bot_detected"
	CodeDashboardUnreachable = "dashboard_unreachable"
	CodeProductSelection     = "product_selection_failed"
	CodeFieldNotFound        = "field_not_found"
	CodeSubmitNotFound       = "submit_not_found"
	CodePriceNotFound        = "price_not_found"
)

type Error struct {
	Op       string
	Code     string
	Err      error
	Metadata map[string]any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}

	return e.Op
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Wrap(op, code string, err error, metadata map[string]any) error {
	if metadata == nil {
		metadata = make(map[string]any)
	}

	return &Error{
		Op:       op,
		Code:     code,
		Err:      err,
		Metadata: metadata,
	}
}

func WrapWithReason(op, code string, err error, reason string) error {
	return Wrap(op, code, err, map[string]any{
		MetaReason: reason,
	})
}

func WrapErrorWithReason(op, code, reason string) error {
	return Wrap(op, code, fmt.Errorf(reason), map[string]any{
		MetaReason: reason,
	})
}

func InvalidReqError(op, field string, err error) error {
	return Wrap(op, CodeInvalidArgument, err, map[string]any{
		MetaField:  field,
		MetaReason: "invalid_request",
	})
}

func NotFoundError(op string, err error) error {
	return Wrap(op, CodeNotFound, err, map[string]any{
		MetaReason: "not_found",
	})
}

// CodeOf extracts the failure code from any error produced by this
// package, unwrapping as needed. Unknown errors map to CodeInternal.
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}

	return CodeInternal
}
