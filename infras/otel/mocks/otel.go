package mocks

import (
	"context"
	"rental/infras/otel"
	"sync"
)

// Otel is a no-op tracer that remembers the errors and events scopes report,
// so tests can assert on observability signals.
type Otel struct {
	mu     sync.Mutex
	errors []error
	events []string
}

// NewScope implements otel.Otel.
func (o *Otel) NewScope(ctx context.Context, _, _ string) (context.Context, otel.Scope) {
	return ctx, &scopeImpl{otel: o}
}

// Shutdown implements otel.Otel.
func (o *Otel) Shutdown(_ context.Context) error {
	return nil
}

// Errors returns every error traced so far.
func (o *Otel) Errors() []error {
	o.mu.Lock()
	defer o.mu.Unlock()

	return append([]error(nil), o.errors...)
}

// Events returns every event name added so far.
func (o *Otel) Events() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	return append([]string(nil), o.events...)
}

func NewOtel() *Otel {
	return &Otel{}
}
