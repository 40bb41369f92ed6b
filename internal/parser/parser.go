// Package parser builds outgoing emails from raw RFC 5322 messages with
// MIME multipart support.
package parser

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/mail"
	"sort"
	"strings"

	"github.com/shineum/scaleway-tem/email"
)

// structuralHeaders are consumed by the parser itself and are never copied
// as additional headers.
var structuralHeaders = map[string]bool{
	"From":                      true,
	"To":                        true,
	"Cc":                        true,
	"Bcc":                       true,
	"Subject":                   true,
	"Date":                      true,
	"Message-Id":                true,
	"Mime-Version":              true,
	"Content-Type":              true,
	"Content-Transfer-Encoding": true,
	"Content-Disposition":       true,
}

// Parse parses a raw RFC 5322 email message into an Email for projectID.
// It handles plain text messages, multipart messages with text/html bodies,
// and attachments. Sender and recipient addresses are validated; Cc and
// Bcc recipients cannot be sent and are dropped with a warning.
func Parse(raw []byte, projectID string) (*email.Email, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	result := email.New(projectID)

	if from := msg.Header.Get("From"); from != "" {
		addr, err := mail.ParseAddress(from)
		if err != nil {
			return nil, &email.ValidationError{Field: "from", Message: err.Error()}
		}
		if err := result.SetFromAddress(addr.Address, addr.Name); err != nil {
			return nil, err
		}
	}

	if to := msg.Header.Get("To"); to != "" {
		addrs, err := mail.ParseAddressList(to)
		if err != nil {
			return nil, &email.ValidationError{Field: "to", Message: err.Error()}
		}
		for _, addr := range addrs {
			if err := result.AddTo(addr.Address, addr.Name); err != nil {
				return nil, err
			}
		}
	}

	for _, key := range []string{"Cc", "Bcc"} {
		if v := msg.Header.Get(key); v != "" {
			slog.Warn("dropping unsupported recipient header",
				"header", key,
				"value", v,
			)
		}
	}

	if err := result.SetSubject(decodeHeader(msg.Header.Get("Subject"))); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(msg.Header))
	for key := range msg.Header {
		if !structuralHeaders[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		values := msg.Header[key]
		if len(values) == 0 {
			continue
		}
		result.AddHeader(key, values[len(values)-1])
	}

	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// If content type is unparseable, treat as plain text
		slog.Warn("failed to parse content type, treating as plain text",
			"content_type", contentType,
			"error", err,
		)
		body, readErr := io.ReadAll(msg.Body)
		if readErr != nil {
			return nil, fmt.Errorf("failed to read message body: %w", readErr)
		}
		result.SetText(string(body))
		return result, nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return nil, fmt.Errorf("multipart message missing boundary")
		}
		if err := parseMultipart(msg.Body, boundary, result); err != nil {
			return nil, fmt.Errorf("failed to parse multipart message: %w", err)
		}
	} else {
		body, err := io.ReadAll(msg.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read message body: %w", err)
		}
		switch mediaType {
		case "text/plain":
			result.SetText(string(body))
		case "text/html":
			result.SetHTML(string(body))
		default:
			slog.Warn("unrecognized top-level content type",
				"content_type", mediaType,
			)
			result.SetText(string(body))
		}
	}

	return result, nil
}

// parseMultipart processes a multipart MIME message body, extracting text/plain,
// text/html parts and attachments.
func parseMultipart(body io.Reader, boundary string, result *email.Email) error {
	reader := multipart.NewReader(body, boundary)

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read next part: %w", err)
		}

		partContentType := part.Header.Get("Content-Type")
		if partContentType == "" {
			partContentType = "text/plain"
		}

		mediaType, params, err := mime.ParseMediaType(partContentType)
		if err != nil {
			slog.Warn("failed to parse part content type, skipping",
				"content_type", partContentType,
				"error", err,
			)
			continue
		}

		contentDisposition := part.Header.Get("Content-Disposition")
		isAttachment := strings.HasPrefix(contentDisposition, "attachment")

		// Check for nested multipart
		if strings.HasPrefix(mediaType, "multipart/") {
			nestedBoundary := params["boundary"]
			if nestedBoundary == "" {
				slog.Warn("nested multipart missing boundary, skipping")
				continue
			}
			if err := parseMultipart(part, nestedBoundary, result); err != nil {
				slog.Warn("failed to parse nested multipart",
					"error", err,
				)
			}
			continue
		}

		content, err := readPartContent(part)
		if err != nil {
			slog.Warn("failed to read part content",
				"content_type", mediaType,
				"error", err,
			)
			continue
		}

		if isAttachment {
			filename := extractFilename(part, params)
			result.AddAttachment(email.NewAttachment(filename, mediaType, content))
			continue
		}

		switch mediaType {
		case "text/plain":
			if result.Text() == "" {
				result.SetText(string(content))
			}
		case "text/html":
			if result.HTML() == "" {
				result.SetHTML(string(content))
			}
		default:
			// Check if it has a filename even without attachment disposition
			if part.FileName() != "" || params["name"] != "" {
				result.AddAttachment(email.NewAttachment(extractFilename(part, params), mediaType, content))
			} else {
				slog.Warn("unrecognized MIME part, skipping",
					"content_type", mediaType,
					"disposition", contentDisposition,
				)
			}
		}
	}

	return nil
}

// readPartContent reads the full content of a MIME part, handling
// Content-Transfer-Encoding (base64, quoted-printable).
func readPartContent(part *multipart.Part) ([]byte, error) {
	encoding := part.Header.Get("Content-Transfer-Encoding")
	encoding = strings.ToLower(strings.TrimSpace(encoding))

	raw, err := io.ReadAll(part)
	if err != nil {
		return nil, err
	}

	switch encoding {
	case "base64":
		cleaned := strings.NewReplacer("\r", "", "\n", "").Replace(string(raw))
		decoded, err := base64.StdEncoding.DecodeString(cleaned)
		if err != nil {
			// Try with RawStdEncoding for unpadded base64
			decoded, err = base64.RawStdEncoding.DecodeString(cleaned)
			if err != nil {
				return nil, fmt.Errorf("failed to decode base64 content: %w", err)
			}
		}
		return decoded, nil
	default:
		// For "7bit", "8bit", "binary", "quoted-printable", or empty,
		// return raw content. Go's multipart reader handles QP internally.
		return raw, nil
	}
}

// extractFilename extracts the filename from a MIME part, checking both
// Content-Disposition and Content-Type parameters.
func extractFilename(part *multipart.Part, params map[string]string) string {
	// Try Content-Disposition filename first (via multipart.Part)
	if fn := part.FileName(); fn != "" {
		return fn
	}
	// Fall back to Content-Type "name" parameter
	if name, ok := params["name"]; ok && name != "" {
		return name
	}
	// Attachments are keyed by name, so fall back to one derived from the media type
	if mediaType, _, err := mime.ParseMediaType(part.Header.Get("Content-Type")); err == nil {
		parts := strings.SplitN(mediaType, "/", 2)
		if len(parts) == 2 {
			return "attachment." + parts[1]
		}
	}
	return "attachment"
}

// decodeHeader decodes RFC 2047 encoded-words, returning the raw value when
// decoding fails.
func decodeHeader(v string) string {
	decoded, err := new(mime.WordDecoder).DecodeHeader(v)
	if err != nil {
		return v
	}
	return decoded
}
