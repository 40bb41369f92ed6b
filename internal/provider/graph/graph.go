package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/shineum/scaleway-tem/email"
	"github.com/shineum/scaleway-tem/tem"
)

// DefaultBaseURL is the Graph API root used when none is configured.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

const graphScope = "https://graph.microsoft.com/.default"

// GraphProviderConfig holds the configuration for creating a GraphProvider.
type GraphProviderConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string

	// BaseURL and TokenURL override the Microsoft endpoints.
	BaseURL  string
	TokenURL string
	Timeout  time.Duration
}

// GraphProvider sends emails via the Microsoft Graph API using OAuth2
// client credentials. The message sender must be a mailbox of the tenant.
type GraphProvider struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// New creates a new GraphProvider. Tokens are fetched lazily on the first
// send and cached by the oauth2 transport until they expire.
func New(ctx context.Context, cfg GraphProviderConfig) *GraphProvider {
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.TenantID)
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
		Scopes:       []string{graphScope},
	}

	// The token exchange uses the same timeout as the send itself.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: timeout})
	httpClient := creds.Client(ctx)
	httpClient.Timeout = timeout

	return &GraphProvider{
		baseURL:    baseURL,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Send delivers an email message with a single sendMail call.
func (g *GraphProvider) Send(ctx context.Context, msg *email.Email) (*tem.Result, error) {
	from, ok := msg.From()
	if !ok {
		return nil, &email.ValidationError{Field: "from", Message: "sender is required"}
	}
	to := msg.To()
	if len(to) == 0 {
		return nil, &email.ValidationError{Field: "to", Message: "at least one recipient is required"}
	}

	bodyJSON, err := json.Marshal(buildSendMailRequest(msg))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	sendURL := g.baseURL + "/users/" + url.PathEscape(from.Email()) + "/sendMail"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendURL, bytes.NewReader(bodyJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	slog.Debug("sending Graph API request", "sender", from.Email(), "recipients", len(to))

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Graph API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read Graph API response: %w", err)
	}

	// HTTP 202 Accepted is success for sendMail
	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		remoteErr := &tem.RemoteError{
			Code:    resp.StatusCode,
			Message: errorMessage(resp.StatusCode, body),
			Detail:  string(body),
		}
		slog.Warn("Graph API rejected message", "status", resp.StatusCode, "message", remoteErr.Message)
		return nil, remoteErr
	}

	requestID := resp.Header.Get("request-id")
	slog.Info("email accepted by Graph API", "request_id", requestID)

	now := g.now()
	res := &tem.Result{Emails: make([]tem.ResultEmail, 0, len(to))}
	for _, rcpt := range to {
		res.Emails = append(res.Emails, tem.ResultEmail{
			ID:        uuid.NewString(),
			MessageID: requestID,
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
func (g *GraphProvider) Name() string {
	return "msgraph"
}

func errorMessage(status int, body []byte) string {
	var errResp graphErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return http.StatusText(status)
}
