package checkout

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Entry guard and flow errors. Each guard violation gets its own error so
// the caller can surface a specific message instead of opening the flow.
var (
	ErrEmptyCart          = errors.New("your cart is empty, add some products first")
	ErrLoginRequired      = errors.New("please login to proceed with checkout")
	ErrNoActiveSession    = errors.New("no checkout in progress")
	ErrNotOnDetailsStep   = errors.New("delivery details have already been confirmed")
	ErrNotOnPaymentStep   = errors.New("complete delivery details first")
	ErrProofRequired      = errors.New("please upload payment proof screenshot")
	ErrDeliveryRequired   = errors.New("delivery details are missing")
	ErrSubmissionInFlight = errors.New("order submission already in progress")
	ErrAlreadySubmitted   = errors.New("order has already been placed")
)

// OutOfStockError blocks checkout entry when a line's quantity exceeds the
// stock known at add time. The advisory check here is best effort; the
// orders API re-checks authoritative stock at submission.
type OutOfStockError struct {
	ProductName string
	Quantity    int
	Stock       int
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("%s has only %d in stock (requested %d)", e.ProductName, e.Stock, e.Quantity)
}

// ValidationError reports field-level failures of the delivery details
// form. The step does not transition while any field is invalid.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	return "invalid delivery details: " + strings.Join(names, ", ")
}
