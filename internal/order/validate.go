package order

import (
	"fmt"
	"math"
)

// rule is one admission check. Rules run in order and the first failure wins.
type rule struct {
	name  string
	check func(in Intent) *ValidationError
}

// ⭐ SSOT: order parameter rules are defined only here
var rules = []rule{
	{name: "direction", check: checkDirection},
	{name: "kind", check: checkKind},
	{name: "size", check: checkSize},
	{name: "limit_price", check: checkLimitPrice},
	{name: "stop_price", check: checkStopPrice},
	{name: "trailing", check: checkTrailing},
	{name: "bracket", check: checkBracket},
	{name: "tif", check: checkTimeInForce},
}

// Validate checks an intent against every rule and returns the first
// *ValidationError, or nil when the intent is well-formed.
// It has no side effects and may be called any number of times.
func Validate(in Intent) error {
	in = in.Normalize()
	for _, r := range rules {
		if verr := r.check(in); verr != nil {
			return verr
		}
	}
	return nil
}

func checkDirection(in Intent) *ValidationError {
	if in.Side.Valid() {
		return nil
	}
	return &ValidationError{
		Code:    CodeInvalidDirection,
		Field:   "direction",
		Message: fmt.Sprintf("invalid direction %q, must be BUY or SELL", in.Side),
	}
}

func checkKind(in Intent) *ValidationError {
	if in.Kind.Valid() {
		return nil
	}
	return &ValidationError{
		Code:    CodeInvalidOrderKind,
		Field:   "order_type",
		Message: fmt.Sprintf("invalid order type %q, must be one of MKT, LMT, STP, STP LMT, TRAIL, TRAILLMT", in.Kind),
	}
}

func checkSize(in Intent) *ValidationError {
	if validSize(in.Size) {
		return nil
	}
	return &ValidationError{
		Code:    CodeInvalidSize,
		Field:   "size",
		Message: "size must be a finite number greater than 0",
	}
}

// validSize rejects zero, negatives, NaN and infinities
func validSize(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func checkLimitPrice(in Intent) *ValidationError {
	if !in.Kind.NeedsLimitPrice() || in.LimitPrice != nil {
		return nil
	}
	return &ValidationError{
		Code:    CodeMissingLimitPrice,
		Field:   "limit_price",
		Message: fmt.Sprintf("limit price required for %s orders", in.Kind),
	}
}

func checkStopPrice(in Intent) *ValidationError {
	if !in.Kind.NeedsStopPrice() || in.StopPrice != nil {
		return nil
	}
	return &ValidationError{
		Code:    CodeMissingStopPrice,
		Field:   "stop_price",
		Message: fmt.Sprintf("stop price required for %s orders", in.Kind),
	}
}

func checkTrailing(in Intent) *ValidationError {
	if in.Kind != KindTrail {
		return nil
	}
	switch {
	case in.TrailingAmount == nil && in.TrailingPercent == nil:
		return &ValidationError{
			Code:    CodeMissingTrailingParameter,
			Field:   "trailing_amount",
			Message: "either trailing_amount or trailing_percent must be specified for TRAIL orders",
		}
	case in.TrailingAmount != nil && in.TrailingPercent != nil:
		return &ValidationError{
			Code:    CodeConflictingTrailingParameters,
			Field:   "trailing_percent",
			Message: "cannot specify both trailing_amount and trailing_percent",
		}
	}
	return nil
}

func checkBracket(in Intent) *ValidationError {
	if in.Bracket == nil {
		return nil
	}
	if in.Bracket.TakeProfit == nil {
		return &ValidationError{
			Code:    CodeIncompleteBracketSpec,
			Field:   "bracket.take_profit",
			Message: "bracket must contain take_profit and stop_loss",
		}
	}
	if in.Bracket.StopLoss == nil {
		return &ValidationError{
			Code:    CodeIncompleteBracketSpec,
			Field:   "bracket.stop_loss",
			Message: "bracket must contain take_profit and stop_loss",
		}
	}
	return nil
}

func checkTimeInForce(in Intent) *ValidationError {
	if in.TIF.Valid() {
		return nil
	}
	return &ValidationError{
		Code:    CodeInvalidTimeInForce,
		Field:   "tif",
		Message: fmt.Sprintf("invalid TIF %q, must be one of DAY, GTC, IOC, GTD", in.TIF),
	}
}
