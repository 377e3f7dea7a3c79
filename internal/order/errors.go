package order

import (
	"errors"
	"fmt"
)

// Code identifies why an intent or modification was rejected
type Code string

const (
	CodeInvalidDirection              Code = "InvalidDirection"
	CodeInvalidOrderKind              Code = "InvalidOrderKind"
	CodeInvalidSize                   Code = "InvalidSize"
	CodeMissingLimitPrice             Code = "MissingLimitPrice"
	CodeMissingStopPrice              Code = "MissingStopPrice"
	CodeMissingTrailingParameter      Code = "MissingTrailingParameter"
	CodeConflictingTrailingParameters Code = "ConflictingTrailingParameters"
	CodeIncompleteBracketSpec         Code = "IncompleteBracketSpec"
	CodeInvalidTimeInForce            Code = "InvalidTimeInForce"

	CodeOrderNotFound   Code = "OrderNotFound"
	CodeChannelRejected Code = "ChannelRejected"
)

// ValidationError is returned when an intent fails admission control.
// It is always user-correctable.
type ValidationError struct {
	Code    Code   `json:"code"`
	Field   string `json:"field"`
	Message string `json:"error"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ModificationError is returned when a live order cannot be patched
type ModificationError struct {
	Code    Code
	OrderID string
	Err     error
}

func (e *ModificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("modify order %s: %s: %v", e.OrderID, e.Code, e.Err)
	}
	return fmt.Sprintf("modify order %s: %s", e.OrderID, e.Code)
}

func (e *ModificationError) Unwrap() error {
	return e.Err
}

// ErrOrderNotFound is returned by sessions that cannot find a live order
var ErrOrderNotFound = errors.New("order not found")

// CodeOf extracts the rejection code from err, or "" when err carries none
func CodeOf(err error) Code {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code
	}
	var me *ModificationError
	if errors.As(err, &me) {
		return me.Code
	}
	return ""
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
