package models

import "errors"

// Error kinds shared by the storefront client and the pipeline stages.
var (
	ErrTransport        = errors.New("transport error")
	ErrRateLimited      = errors.New("rate limited")
	ErrFormat           = errors.New("malformed payload")
	ErrUnexpectedStatus = errors.New("unexpected response status")
)

// Outcome classifies a single detail request.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeRateLimited
	OutcomeTransport
	OutcomeFormat
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeTransport:
		return "transport"
	case OutcomeFormat:
		return "format"
	default:
		return "unknown"
	}
}

// DetailResult is the classified result of one detail request.
// Payload is set only for OutcomeSuccess; Err only for Transport and Format.
type DetailResult struct {
	Outcome Outcome
	Payload map[string]interface{}
	Err     error
}

func Success(payload map[string]interface{}) DetailResult {
	return DetailResult{Outcome: OutcomeSuccess, Payload: payload}
}

func RateLimited() DetailResult {
	return DetailResult{Outcome: OutcomeRateLimited, Err: ErrRateLimited}
}

func TransportFailure(err error) DetailResult {
	return DetailResult{Outcome: OutcomeTransport, Err: err}
}

func FormatFailure(err error) DetailResult {
	return DetailResult{Outcome: OutcomeFormat, Err: err}
}
