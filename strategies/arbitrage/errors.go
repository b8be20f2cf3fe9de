package arbitrage

import (
	"errors"

	"github.com/michaelpento.lv/arbengine/rewards"
)

var (
	ErrInvalidRouteLength     = errors.New("invalid route length")
	ErrFirstHopSourceMismatch = errors.New("first hop source token is not the base token")
	ErrLastHopTargetMismatch  = errors.New("last hop target token is not the base token")
	ErrMinReturnNotReached    = errors.New("hop returned less than its minimum target amount")
	ErrUnauthorizedCallback   = errors.New("unauthorized flash loan callback")
	ErrReentrantCall          = errors.New("reentrant call")
	ErrAccessDenied           = errors.New("access denied")
	ErrCallbackNotInvoked     = errors.New("flash loan callback was not invoked")
	ErrOverspent              = errors.New("hop spent more than its source amount")

	ErrZeroValue  = rewards.ErrZeroValue
	ErrInvalidFee = rewards.ErrInvalidFee
	ErrNoProfit   = rewards.ErrNoProfit
)

// failureReason maps an execution error to a metrics label
func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRouteLength),
		errors.Is(err, ErrFirstHopSourceMismatch),
		errors.Is(err, ErrLastHopTargetMismatch),
		errors.Is(err, ErrZeroValue):
		return "invalid_route"
	case errors.Is(err, ErrUnauthorizedCallback):
		return "unauthorized_callback"
	case errors.Is(err, ErrReentrantCall):
		return "reentrant_call"
	case errors.Is(err, ErrMinReturnNotReached):
		return "min_return"
	case errors.Is(err, ErrNoProfit):
		return "no_profit"
	default:
		return "execution"
	}
}
