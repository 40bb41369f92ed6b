package parser

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/shineum/scaleway-tem/email"
)

// decoded returns the attachment content as plain text.
func decoded(t *testing.T, att email.Attachment) string {
	t.Helper()
	data, err := base64.StdEncoding.DecodeString(att.Content())
	if err != nil {
		t.Fatalf("attachment %q has invalid base64 content: %v", att.Name(), err)
	}
	return string(data)
}

func TestParsePlainTextEmail(t *testing.T) {
	t.Parallel()

	raw := []byte(strings.Join([]string{
		"From: Sender <sender@example.com>",
		"To: recipient@example.com",
		"Subject: Test Subject",
		"Message-Id: <test123@example.com>",
		"Content-Type: text/plain",
		"",
		"Hello, this is a plain text email.",
	}, "\r\n"))

	msg, err := Parse(raw, "project-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if msg.ProjectID() != "project-1" {
		t.Errorf("ProjectID: got %q, want %q", msg.ProjectID(), "project-1")
	}
	from, ok := msg.From()
	if !ok || from.Email() != "sender@example.com" || from.Name() != "Sender" {
		t.Errorf("From: got %q, want %q", from.String(), "Sender <sender@example.com>")
	}
	to := msg.To()
	if len(to) != 1 || to[0].Email() != "recipient@example.com" {
		t.Errorf("To: got %v, want [recipient@example.com]", to)
	}
	if msg.Subject() != "Test Subject" {
		t.Errorf("Subject: got %q, want %q", msg.Subject(), "Test Subject")
	}
	if msg.Text() != "Hello, this is a plain text email." {
		t.Errorf("Text: got %q, want %q", msg.Text(), "Hello, this is a plain text email.")
	}
	if msg.HTML() != "" {
		t.Errorf("HTML: got %q, want empty", msg.HTML())
	}
	if len(msg.Attachments()) != 0 {
		t.Errorf("Attachments: got %d, want 0", len(msg.Attachments()))
	}
	if len(msg.Headers()) != 0 {
		t.Errorf("Headers: got %v, want none", msg.Headers())
	}
}

func TestParseMultipartTextAndHTML(t *testing.T) {
	t.Parallel()

	raw := []byte(strings.Join([]string{
		"From: sender@example.com",
		"To: alice@example.com, Bob <bob@example.com>",
		"Cc: carol@example.com",
		"Subject: Multipart Test",
		"Content-Type: multipart/alternative; boundary=boundary123",
		"",
		"--boundary123",
		"Content-Type: text/plain",
		"",
		"Plain text body",
		"--boundary123",
		"Content-Type: text/html",
		"",
		"<html><body><p>HTML body</p></body></html>",
		"--boundary123--",
	}, "\r\n"))

	msg, err := Parse(raw, "project-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	to := msg.To()
	if len(to) != 2 {
		t.Fatalf("To: got %d recipients, want 2", len(to))
	}
	if to[0].Email() != "alice@example.com" {
		t.Errorf("To[0]: got %q, want %q", to[0].Email(), "alice@example.com")
	}
	if to[1].String() != "Bob <bob@example.com>" {
		t.Errorf("To[1]: got %q, want %q", to[1].String(), "Bob <bob@example.com>")
	}
	if msg.Text() != "Plain text body" {
		t.Errorf("Text: got %q, want %q", msg.Text(), "Plain text body")
	}
	if msg.HTML() != "<html><body><p>HTML body</p></body></html>" {
		t.Errorf("HTML: got %q, want %q", msg.HTML(), "<html><body><p>HTML body</p></body></html>")
	}
}

func TestParseEmailWithAttachments(t *testing.T) {
	t.Parallel()

	raw := []byte(strings.Join([]string{
		"From: sender@example.com",
		"To: recipient@example.com",
		"Subject: With Attachment",
		"Content-Type: multipart/mixed; boundary=mixedboundary",
		"",
		"--mixedboundary",
		"Content-Type: text/plain",
		"",
		"Email body text",
		"--mixedboundary",
		"Content-Type: application/pdf; name=\"report.pdf\"",
		"Content-Disposition: attachment; filename=\"report.pdf\"",
		"Content-Transfer-Encoding: base64",
		"",
		"SGVsbG8gV29ybGQ=",
		"--mixedboundary--",
	}, "\r\n"))

	msg, err := Parse(raw, "project-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if msg.Text() != "Email body text" {
		t.Errorf("Text: got %q, want %q", msg.Text(), "Email body text")
	}
	atts := msg.Attachments()
	if len(atts) != 1 {
		t.Fatalf("Attachments: got %d, want 1", len(atts))
	}

	att := atts[0]
	if att.Name() != "report.pdf" {
		t.Errorf("Attachment Name: got %q, want %q", att.Name(), "report.pdf")
	}
	if att.Type() != "application/pdf" {
		t.Errorf("Attachment Type: got %q, want %q", att.Type(), "application/pdf")
	}
	if got := decoded(t, att); got != "Hello World" {
		t.Errorf("Attachment Content: got %q, want %q", got, "Hello World")
	}
}

func TestParseMalformedMIME(t *testing.T) {
	t.Parallel()

	t.Run("completely invalid message", func(t *testing.T) {
		t.Parallel()
		raw := []byte("not a valid email at all\x00\x01\x02")
		_, err := Parse(raw, "project-1")
		if err == nil {
			t.Error("expected error for completely invalid message, got nil")
		}
	})

	t.Run("missing content type defaults to text/plain", func(t *testing.T) {
		t.Parallel()
		raw := []byte(strings.Join([]string{
			"From: sender@example.com",
			"To: recipient@example.com",
			"Subject: No Content Type",
			"",
			"Body without content type header",
		}, "\r\n"))

		msg, err := Parse(raw, "project-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if msg.Text() != "Body without content type header" {
			t.Errorf("Text: got %q, want %q", msg.Text(), "Body without content type header")
		}
	})

	t.Run("multipart missing boundary", func(t *testing.T) {
		t.Parallel()
		raw := []byte(strings.Join([]string{
			"From: sender@example.com",
			"To: recipient@example.com",
			"Content-Type: multipart/mixed",
			"",
			"some body",
		}, "\r\n"))

		_, err := Parse(raw, "project-1")
		if err == nil {
			t.Error("expected error for multipart missing boundary, got nil")
		}
	})
}

func TestParseInvalidAddresses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		header    string
		wantField string
	}{
		{name: "invalid from", header: "From: not-an-address", wantField: "from"},
		{name: "invalid to", header: "To: alice@example.com, ???", wantField: "to"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			raw := []byte(strings.Join([]string{
				tt.header,
				"Subject: Bad",
				"",
				"Body",
			}, "\r\n"))

			_, err := Parse(raw, "project-1")
			var vErr *email.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected *email.ValidationError, got %v", err)
			}
			if vErr.Field != tt.wantField {
				t.Errorf("Field: got %q, want %q", vErr.Field, tt.wantField)
			}
		})
	}
}

func TestParseDuplicateRecipientsAreMerged(t *testing.T) {
	t.Parallel()

	raw := []byte(strings.Join([]string{
		"From: sender@example.com",
		"To: alice@example.com, bob@example.com, Alice <alice@example.com>",
		"Bcc: secret@example.com",
		"Subject: Multiple Recipients",
		"Content-Type: text/plain",
		"",
		"Hello everyone",
	}, "\r\n"))

	msg, err := Parse(raw, "project-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	to := msg.To()
	if len(to) != 2 {
		t.Fatalf("To: got %d recipients, want 2", len(to))
	}
	if to[0].String() != "Alice <alice@example.com>" {
		t.Errorf("To[0]: got %q, want %q", to[0].String(), "Alice <alice@example.com>")
	}
}

func TestParseEmptyAddressFields(t *testing.T) {
	t.Parallel()

	raw := []byte(strings.Join([]string{
		"Subject: No To",
		"Content-Type: text/plain",
		"",
		"Body",
	}, "\r\n"))

	msg, err := Parse(raw, "project-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := msg.From(); ok {
		t.Error("From should be unset")
	}
	if len(msg.To()) != 0 {
		t.Errorf("To: got %v, want none", msg.To())
	}
}

func TestParseAdditionalHeaders(t *testing.T) {
	t.Parallel()

	raw := []byte(strings.Join([]string{
		"From: sender@example.com",
		"To: recipient@example.com",
		"X-Custom-Header: custom-value",
		"List-Unsubscribe: <mailto:unsubscribe@example.com>",
		"Subject: Headers Test",
		"Date: Mon, 02 Jan 2006 15:04:05 -0700",
		"MIME-Version: 1.0",
		"Content-Type: text/plain",
		"",
		"Body",
	}, "\r\n"))

	msg, err := Parse(raw, "project-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	headers := msg.Headers()
	if len(headers) != 2 {
		t.Fatalf("Headers: got %v, want 2 entries", headers)
	}
	if headers[0].String() != "List-Unsubscribe: <mailto:unsubscribe@example.com>" {
		t.Errorf("Headers[0]: got %q", headers[0].String())
	}
	if headers[1].String() != "X-Custom-Header: custom-value" {
		t.Errorf("Headers[1]: got %q", headers[1].String())
	}
}

func TestParseEncodedSubject(t *testing.T) {
	t.Parallel()

	raw := []byte(strings.Join([]string{
		"From: sender@example.com",
		"To: recipient@example.com",
		"Subject: =?UTF-8?Q?Caf=C3=A9_menu?=",
		"",
		"Body",
	}, "\r\n"))

	msg, err := Parse(raw, "project-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Subject() != "Café menu" {
		t.Errorf("Subject: got %q, want %q", msg.Subject(), "Café menu")
	}
}

func TestParseBase64AttachmentWithCRLF(t *testing.T) {
	t.Parallel()

	raw := []byte("From: sender@example.com\r\n" +
		"To: recipient@example.com\r\n" +
		"Subject: CRLF Base64\r\n" +
		"Content-Type: multipart/mixed; boundary=bound\r\n" +
		"\r\n" +
		"--bound\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"body\r\n" +
		"--bound\r\n" +
		"Content-Type: application/pdf; name=\"file.pdf\"\r\n" +
		"Content-Disposition: attachment; filename=\"file.pdf\"\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		"SGVs\r\n" +
		"bG8g\r\n" +
		"V29y\r\n" +
		"bGQ=\r\n" +
		"--bound--\r\n")

	msg, err := Parse(raw, "project-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	atts := msg.Attachments()
	if len(atts) != 1 {
		t.Fatalf("Attachments: got %d, want 1", len(atts))
	}

	if atts[0].Name() != "file.pdf" {
		t.Errorf("Name: got %q, want %q", atts[0].Name(), "file.pdf")
	}
	if got := decoded(t, atts[0]); got != "Hello World" {
		t.Errorf("Content: got %q, want %q", got, "Hello World")
	}
}

func TestParseAttachmentWithoutFilename(t *testing.T) {
	t.Parallel()

	raw := []byte(strings.Join([]string{
		"From: sender@example.com",
		"To: recipient@example.com",
		"Subject: No Filename",
		"Content-Type: multipart/mixed; boundary=bound",
		"",
		"--bound",
		"Content-Type: text/plain",
		"",
		"body",
		"--bound",
		"Content-Type: application/pdf",
		"Content-Disposition: attachment",
		"Content-Transfer-Encoding: base64",
		"",
		"SGVsbG8gV29ybGQ=",
		"--bound--",
	}, "\r\n"))

	msg, err := Parse(raw, "project-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	atts := msg.Attachments()
	if len(atts) != 1 {
		t.Fatalf("Attachments: got %d, want 1", len(atts))
	}
	if atts[0].Name() != "attachment.pdf" {
		t.Errorf("Name: got %q, want %q", atts[0].Name(), "attachment.pdf")
	}
	if got := decoded(t, atts[0]); got != "Hello World" {
		t.Errorf("Content: got %q, want %q", got, "Hello World")
	}
}

func TestParseNestedMultipart(t *testing.T) {
	t.Parallel()

	raw := []byte(strings.Join([]string{
		"From: sender@example.com",
		"To: recipient@example.com",
		"Subject: Nested Multipart",
		"Content-Type: multipart/mixed; boundary=outer",
		"",
		"--outer",
		"Content-Type: multipart/alternative; boundary=inner",
		"",
		"--inner",
		"Content-Type: text/plain",
		"",
		"Plain text part",
		"--inner",
		"Content-Type: text/html",
		"",
		"<p>HTML part</p>",
		"--inner--",
		"--outer",
		"Content-Type: application/octet-stream; name=\"data.bin\"",
		"Content-Disposition: attachment; filename=\"data.bin\"",
		"",
		"binarydata",
		"--outer--",
	}, "\r\n"))

	msg, err := Parse(raw, "project-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if msg.Text() != "Plain text part" {
		t.Errorf("Text: got %q, want %q", msg.Text(), "Plain text part")
	}
	if msg.HTML() != "<p>HTML part</p>" {
		t.Errorf("HTML: got %q, want %q", msg.HTML(), "<p>HTML part</p>")
	}
	atts := msg.Attachments()
	if len(atts) != 1 {
		t.Fatalf("Attachments: got %d, want 1", len(atts))
	}
	if atts[0].Name() != "data.bin" {
		t.Errorf("Attachment Name: got %q, want %q", atts[0].Name(), "data.bin")
	}
}
