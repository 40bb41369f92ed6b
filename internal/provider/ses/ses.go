// Package ses implements a Provider that sends emails via AWS SES v2.
package ses

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/google/uuid"

	"github.com/shineum/scaleway-tem/email"
	"github.com/shineum/scaleway-tem/tem"
)

// SESProviderConfig holds the configuration for creating a SESProvider.
type SESProviderConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// SESProvider sends emails via the AWS SES v2 API. The sender is taken
// from each message.
type SESProvider struct {
	client SendEmailAPI
	now    func() time.Time
}

// SendEmailAPI is the interface for the SES v2 SendEmail operation.
// Used for testing with mock implementations.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// New creates a new SESProvider with the given configuration.
func New(ctx context.Context, cfg SESProviderConfig) (*SESProvider, error) {
	var opts []func(*awsconfig.LoadOptions) error

	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewWithClient(sesv2.NewFromConfig(awsCfg)), nil
}

// NewWithClient creates a SESProvider with a custom client, used for testing.
func NewWithClient(client SendEmailAPI) *SESProvider {
	return &SESProvider{
		client: client,
		now:    time.Now,
	}
}

// Send delivers an email message via AWS SES v2 in a single call.
// For emails with attachments, it builds a raw MIME message.
// For simple emails, it uses the SES simple email format.
func (s *SESProvider) Send(ctx context.Context, msg *email.Email) (*tem.Result, error) {
	from, ok := msg.From()
	if !ok {
		return nil, &email.ValidationError{Field: "from", Message: "sender is required"}
	}
	if len(msg.To()) == 0 {
		return nil, &email.ValidationError{Field: "to", Message: "at least one recipient is required"}
	}

	var input *sesv2.SendEmailInput
	if len(msg.Attachments()) > 0 {
		raw, err := buildRawMessage(msg)
		if err != nil {
			return nil, fmt.Errorf("failed to build raw message: %w", err)
		}
		input = &sesv2.SendEmailInput{
			Content: &types.EmailContent{
				Raw: &types.RawMessage{
					Data: raw,
				},
			},
		}
	} else {
		input = buildSimpleInput(msg)
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		slog.Warn("SES API error", "error", err)
		return nil, fmt.Errorf("SES API request failed: %w", err)
	}

	messageID := aws.ToString(out.MessageId)
	slog.Info("email accepted by SES", "message_id", messageID)

	now := s.now()
	res := &tem.Result{Emails: make([]tem.ResultEmail, 0, len(msg.To()))}
	for _, rcpt := range msg.To() {
		res.Emails = append(res.Emails, tem.ResultEmail{
			ID:        uuid.NewString(),
			MessageID: messageID,
			ProjectID: msg.ProjectID(),
			MailFrom:  from.Email(),
			RcptTo:    rcpt.Email(),
			RcptType:  "to",
			CreatedAt: now,
			UpdatedAt: now,
			Status:    tem.StatusSending,
			TryCount:  1,
		})
	}
	return res, nil
}

// Name returns the provider name.
func (s *SESProvider) Name() string {
	return "ses"
}

// buildSimpleInput creates a SES SendEmailInput for emails without attachments.
func buildSimpleInput(msg *email.Email) *sesv2.SendEmailInput {
	body := &types.Body{}

	if msg.HTML() != "" {
		body.Html = &types.Content{
			Data:    aws.String(msg.HTML()),
			Charset: aws.String("UTF-8"),
		}
	}
	if msg.Text() != "" {
		body.Text = &types.Content{
			Data:    aws.String(msg.Text()),
			Charset: aws.String("UTF-8"),
		}
	}

	var headers []types.MessageHeader
	for _, h := range msg.Headers() {
		headers = append(headers, types.MessageHeader{
			Name:  aws.String(h.Key()),
			Value: aws.String(h.Value()),
		})
	}

	from, _ := msg.From()
	return &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(formatAddress(from)),
		Destination: &types.Destination{
			ToAddresses: toAddresses(msg),
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(msg.Subject()),
					Charset: aws.String("UTF-8"),
				},
				Body:    body,
				Headers: headers,
			},
		},
	}
}

// buildRawMessage constructs a raw MIME message for emails with attachments.
// The attachment content is already base64 and is only re-wrapped.
func buildRawMessage(msg *email.Email) ([]byte, error) {
	var buf bytes.Buffer

	from, _ := msg.From()

	// Write headers
	fmt.Fprintf(&buf, "From: %s\r\n", formatAddress(from))
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(toAddresses(msg), ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", msg.Subject()))
	for _, h := range msg.Headers() {
		fmt.Fprintf(&buf, "%s\r\n", h.String())
	}
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")

	writer := multipart.NewWriter(&buf)
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", writer.Boundary())

	// Write body part
	bodyHeader := make(textproto.MIMEHeader)
	if msg.HTML() != "" {
		bodyHeader.Set("Content-Type", "text/html; charset=UTF-8")
		part, err := writer.CreatePart(bodyHeader)
		if err != nil {
			return nil, fmt.Errorf("failed to create body part: %w", err)
		}
		part.Write([]byte(msg.HTML()))
	} else if msg.Text() != "" {
		bodyHeader.Set("Content-Type", "text/plain; charset=UTF-8")
		part, err := writer.CreatePart(bodyHeader)
		if err != nil {
			return nil, fmt.Errorf("failed to create body part: %w", err)
		}
		part.Write([]byte(msg.Text()))
	}

	// Write attachments
	for _, att := range msg.Attachments() {
		attHeader := make(textproto.MIMEHeader)
		attHeader.Set("Content-Type", att.Type())
		attHeader.Set("Content-Transfer-Encoding", "base64")
		attHeader.Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%s", mime.QEncoding.Encode("UTF-8", att.Name())))

		part, err := writer.CreatePart(attHeader)
		if err != nil {
			return nil, fmt.Errorf("failed to create attachment part: %w", err)
		}

		part.Write([]byte(wrapLines(att.Content(), 76)))
	}

	writer.Close()
	return buf.Bytes(), nil
}

// formatAddress renders a recipient as an RFC 5322 address, encoding
// non-ASCII display names.
func formatAddress(r email.Recipient) string {
	if r.Name() == "" {
		return r.Email()
	}
	addr := mail.Address{Name: r.Name(), Address: r.Email()}
	return addr.String()
}

func toAddresses(msg *email.Email) []string {
	to := msg.To()
	addrs := make([]string, 0, len(to))
	for _, r := range to {
		addrs = append(addrs, formatAddress(r))
	}
	return addrs
}

// wrapLines splits s into CRLF separated lines of at most n characters,
// as RFC 2045 requires for base64 bodies.
func wrapLines(s string, n int) string {
	var lines []string
	for i := 0; i < len(s); i += n {
		end := i + n
		if end > len(s) {
			end = len(s)
		}
		lines = append(lines, s[i:end])
	}
	return strings.Join(lines, "\r\n")
}

