// Package provider defines the interface for email delivery backends.
package provider

import (
	"context"

	"github.com/shineum/scaleway-tem/email"
	"github.com/shineum/scaleway-tem/tem"
)

// Provider is the interface that email delivery backends must implement.
// *tem.Client is the primary implementation; the other backends report
// their outcome in the same Result shape.
type Provider interface {
	// Send delivers an email message through this provider.
	// It returns an error if the delivery fails.
	Send(ctx context.Context, msg *email.Email) (*tem.Result, error)

	// Name returns the human-readable name of this provider.
	Name() string
}

var _ Provider = (*tem.Client)(nil)
