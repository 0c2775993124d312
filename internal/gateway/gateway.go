// Package gateway abstracts the outbound messaging provider.
package gateway

import (
	"context"
	"errors"
	"fmt"
)

// Result reports what the provider accepted.
type Result struct {
	ProviderMessageID string
	Status            string
}

// Gateway sends one message to one recipient. Implementations must honor
// ctx cancellation and deadlines.
type Gateway interface {
	Send(ctx context.Context, to, body string) (Result, error)
}

// Failure kinds for dispatch errors.
const (
	KindProviderTimeout  = "provider_timeout"
	KindProviderRejected = "provider_rejected"
	KindInvalidRecipient = "invalid_recipient"
)

// DispatchError classifies a failed send. Only provider timeouts are
// retryable; rejection and bad recipients are permanent.
type DispatchError struct {
	Kind string
	Err  error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s: %v", e.Kind, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt may succeed.
func (e *DispatchError) Retryable() bool {
	return e.Kind == KindProviderTimeout
}

// IsRetryable inspects any error for a retryable dispatch failure.
// Unclassified errors are treated as retryable within the bounded
// attempt budget.
func IsRetryable(err error) bool {
	var de *DispatchError
	if errors.As(err, &de) {
		return de.Retryable()
	}
	return true
}
