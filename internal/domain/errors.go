package domain

import "errors"

// Every error below is fatal for a run. They are wrapped with the offending
// account, token or contract so the input defect can be located.
var (
	ErrConfig               = errors.New("invalid config")
	ErrMissingStorageKey    = errors.New("missing storage key")
	ErrMalformedAttributes  = errors.New("malformed attributes")
	ErrMalformedHolding     = errors.New("malformed holding")
	ErrUnknownTokenKind     = errors.New("unknown token kind")
	ErrHoldingNotFound      = errors.New("holding not found")
	ErrDuplicateHolding     = errors.New("duplicate holding")
	ErrMissingSummary       = errors.New("missing contract summary")
	ErrInvalidSummary       = errors.New("invalid contract summary")
	ErrConservationViolated = errors.New("conservation check failed")
)
