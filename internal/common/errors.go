package common

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies failures that reach the HTTP boundary.
type ErrorKind string

const (
	KindWarehouse     ErrorKind = "warehouse_error"
	KindQuoteProvider ErrorKind = "quote_provider_error"
	KindInvalidInput  ErrorKind = "invalid_input"
	KindTimeout       ErrorKind = "timeout"
)

// Error is a classified failure. Op names the operation that failed.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// Sentinels for errors.Is matching by kind.
var (
	ErrWarehouse     = &Error{Kind: KindWarehouse}
	ErrQuoteProvider = &Error{Kind: KindQuoteProvider}
	ErrInvalidInput  = &Error{Kind: KindInvalidInput}
	ErrTimeout       = &Error{Kind: KindTimeout}
)

// ErrUnknownSymbol marks a provider response for a ticker it does not know.
// It is wrapped inside a quote provider error.
var ErrUnknownSymbol = errors.New("unknown symbol")

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind when the target is a bare sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

// KindOf returns the kind of the first classified error in the chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// WarehouseError wraps err as a warehouse failure unless it is already classified.
func WarehouseError(op string, err error) error {
	return classify(KindWarehouse, op, err)
}

// QuoteProviderError wraps err as a quote provider failure unless it is already classified.
func QuoteProviderError(op string, err error) error {
	return classify(KindQuoteProvider, op, err)
}

// InvalidInput reports a rejected argument.
func InvalidInput(op string, format string, args ...any) error {
	return &Error{Kind: KindInvalidInput, Op: op, Err: fmt.Errorf(format, args...)}
}

// TimeoutError reports an exceeded wait on an external call.
func TimeoutError(op string, err error) error {
	return &Error{Kind: KindTimeout, Op: op, Err: err}
}

// ClassifyContextError returns a timeout error when err stems from a
// deadline or cancellation, otherwise nil.
func ClassifyContextError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return TimeoutError(op, err)
	}
	return nil
}

func classify(kind ErrorKind, op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := KindOf(err); ok {
		return err
	}
	if terr := ClassifyContextError(op, err); terr != nil {
		return terr
	}
	return &Error{Kind: kind, Op: op, Err: err}
}
