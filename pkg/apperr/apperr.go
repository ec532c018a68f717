package apperr

import "fmt"

const (
	MetaReason   = "reason"
	MetaStage    = "stage"
	MetaField    = "field"
	MetaSelector = "selector"
	MetaURL      = "url"
	MetaScreen   = "screen"
	MetaSession  = "session"
	MetaStatus   = "status"

	StagePreparation = "preparation"
	StageBrowser     = "browser"
	StageNavigation  = "navigation"
	StageAuth        = "authentication"
	StageExtraction  = "extraction"
	StageInteraction = "interaction"
	StagePersistence = "persistence"
	StageMonitor     = "monitor"

	CodeInternal          = "internal"
	CodeInvalidArgument   = "invalid_argument"
	CodeNotFound          = "not_found"
	CodeUnavailable       = "unavailable"
	CodeTimeout           = "timeout"
	CodeBrowserNotReady   = "browser_not_ready"
	CodeActionFailed      = "action_failed"
	CodeNavigationFailed  = "navigation_failed"
	CodeAuthFailed        = "auth_failed"
	CodeTwoFactorRequired = "two_factor_required"
	CodePersistence       = "persistence_unavailable"
	CodeCancelled         = "cancelled"
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
	return Wrap(op, code, fmt.Errorf("%s", reason), map[string]any{
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

// CodeOf returns the Code of the outermost *Error, or CodeInternal for a
// foreign error, so callers can branch on failure class without unwrapping.
func CodeOf(err error) string {
	if e, ok := err.(*Error); ok {
		return e.Code
	}

	return CodeInternal
}

// IsTerminal reports whether the error aborts the whole crawl rather than
// a single branch.
func IsTerminal(err error) bool {
	switch CodeOf(err) {
	case CodeAuthFailed, CodeTwoFactorRequired, CodeNavigationFailed:
		return true
	}

	return false
}
