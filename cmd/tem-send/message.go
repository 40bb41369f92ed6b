package main

import (
	"fmt"
	"net/mail"
	"os"
	"strings"

	"github.com/shineum/scaleway-tem/email"
	"github.com/shineum/scaleway-tem/internal/config"
	"github.com/shineum/scaleway-tem/internal/parser"
)

// messageOptions collects the message-related command line flags.
type messageOptions struct {
	emlPath     string
	from        string
	fromName    string
	to          stringList
	subject     string
	text        string
	html        string
	attachments stringList
	headers     stringList
}

// stringList is a repeatable string flag.
type stringList []string

func (l *stringList) String() string {
	return strings.Join(*l, ", ")
}

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// buildMessage assembles the outgoing email either from a raw message file
// or from flags. The configured sender fills in a missing From.
func buildMessage(cfg *config.Config, opts messageOptions) (*email.Email, error) {
	projectID := cfg.Scaleway.ProjectID

	var msg *email.Email
	if opts.emlPath != "" {
		raw, err := os.ReadFile(opts.emlPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read message file: %w", err)
		}
		msg, err = parser.Parse(raw, projectID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse message file: %w", err)
		}
	} else {
		msg = email.New(projectID)
	}

	from, fromName := opts.from, opts.fromName
	if from == "" {
		if _, ok := msg.From(); !ok && cfg.Sender.Email != "" {
			from = cfg.Sender.Email
			if fromName == "" {
				fromName = cfg.Sender.Name
			}
		}
	}
	if from != "" {
		if err := msg.SetFromAddress(from, fromName); err != nil {
			return nil, err
		}
	}

	for _, v := range opts.to {
		address, name, err := parseRecipient(v)
		if err != nil {
			return nil, err
		}
		if err := msg.AddTo(address, name); err != nil {
			return nil, err
		}
	}

	if opts.subject != "" {
		if err := msg.SetSubject(opts.subject); err != nil {
			return nil, err
		}
	}
	if opts.text != "" {
		msg.SetText(opts.text)
	}
	if opts.html != "" {
		msg.SetHTML(opts.html)
	}

	for _, path := range opts.attachments {
		att, err := email.AttachmentFromFile(path)
		if err != nil {
			return nil, err
		}
		msg.AddAttachment(att)
	}

	for _, v := range opts.headers {
		key, value, err := parseHeader(v)
		if err != nil {
			return nil, err
		}
		msg.AddHeader(key, value)
	}

	return msg, nil
}

// parseRecipient splits "addr" or "Name <addr>" into address and name.
func parseRecipient(v string) (string, string, error) {
	addr, err := mail.ParseAddress(v)
	if err != nil {
		return "", "", &email.ValidationError{Field: "to", Message: fmt.Sprintf("%q is not a valid recipient", v)}
	}
	return addr.Address, addr.Name, nil
}

// parseHeader splits "Key: Value".
func parseHeader(v string) (string, string, error) {
	key, value, ok := strings.Cut(v, ":")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", fmt.Errorf("invalid header %q, want \"Key: Value\"", v)
	}
	return key, strings.TrimSpace(value), nil
}
