// Package stdout implements a Provider that prints emails to standard output
// instead of delivering them.
package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shineum/scaleway-tem/email"
	"github.com/shineum/scaleway-tem/tem"
)

// Provider prints email messages to stdout in a human-readable format.
type Provider struct {
	// writer is the output destination, defaulting to os.Stdout.
	writer io.Writer
}

// New creates a new stdout Provider that writes to os.Stdout.
func New() *Provider {
	return &Provider{writer: os.Stdout}
}

// NewWithWriter creates a new stdout Provider that writes to the given writer.
// This is useful for testing.
func NewWithWriter(w io.Writer) *Provider {
	return &Provider{writer: w}
}

// Send prints the email message and returns a Result marking every
// recipient as sent. Only a failed write is reported as an error.
func (p *Provider) Send(_ context.Context, msg *email.Email) (*tem.Result, error) {
	var b strings.Builder

	from, _ := msg.From()
	to := msg.To()
	rcpts := make([]string, 0, len(to))
	for _, r := range to {
		rcpts = append(rcpts, r.String())
	}

	b.WriteString("========================================\n")
	fmt.Fprintf(&b, "Project: %s\n", msg.ProjectID())
	fmt.Fprintf(&b, "From: %s\n", from.String())
	fmt.Fprintf(&b, "To: %s\n", strings.Join(rcpts, ", "))
	fmt.Fprintf(&b, "Subject: %s\n", msg.Subject())

	for _, h := range msg.Headers() {
		b.WriteString(h.String() + "\n")
	}

	b.WriteString("Body:\n")

	body := msg.Text()
	if body == "" {
		body = msg.HTML()
	}
	b.WriteString(body + "\n")

	if atts := msg.Attachments(); len(atts) > 0 {
		names := make([]string, 0, len(atts))
		for _, att := range atts {
			names = append(names, fmt.Sprintf("%s (%s, %s)", att.Name(), att.Type(), formatSize(att.Size())))
		}
		fmt.Fprintf(&b, "Attachments: %s\n", strings.Join(names, ", "))
	}

	b.WriteString("========================================\n")

	if _, err := fmt.Fprint(p.writer, b.String()); err != nil {
		return nil, fmt.Errorf("failed to write message: %w", err)
	}

	now := time.Now().UTC()
	res := &tem.Result{Emails: make([]tem.ResultEmail, 0, len(to))}
	for _, r := range to {
		id := uuid.NewString()
		res.Emails = append(res.Emails, tem.ResultEmail{
			ID:        id,
			MessageID: id,
			ProjectID: msg.ProjectID(),
			MailFrom:  from.Email(),
			RcptTo:    r.Email(),
			RcptType:  "to",
			CreatedAt: now,
			UpdatedAt: now,
			Status:    tem.StatusSent,
		})
	}
	return res, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "stdout"
}

// formatSize formats a byte count into a human-readable string.
func formatSize(bytes int) string {
	const (
		kb = 1024
		mb = kb * 1024
	)

	switch {
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
