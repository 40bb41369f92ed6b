// Package tem is a client for the Scaleway Transactional Email API.
//
// A Client holds the project credentials and the region the API is called
// in. Messages are built with email.Email and sent with Client.Send, which
// performs exactly one HTTPS request and returns either a *Result or an
// error. Callers tell the failure kinds apart with errors.As:
//
//   - *email.ValidationError: the message was incomplete, nothing was sent
//   - *TransportError: no HTTP response was received
//   - *RemoteError: the API answered with a status other than 200 or 201
package tem

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shineum/scaleway-tem/email"
)

// Supported regions.
const (
	RegionFrPar = "fr-par"
	RegionNlAms = "nl-ams"

	DefaultRegion = RegionNlAms
)

// DefaultEndpoint is the base URL the region and "/emails" are appended to.
const DefaultEndpoint = "https://api.scaleway.com/transactional-email/v1alpha1/regions/"

// Regions lists the regions the API is available in.
var Regions = []string{RegionFrPar, RegionNlAms}

// ClientConfig holds the configuration for creating a Client.
type ClientConfig struct {
	ProjectID    string
	AccessKey    string
	AccessSecret string
	// Region defaults to DefaultRegion.
	Region string
	// Endpoint defaults to DefaultEndpoint.
	Endpoint string
	DomainID string
	// Timeout bounds a whole request. Zero means no timeout.
	Timeout time.Duration
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// Client sends transactional emails. Its setters are not safe for
// concurrent use.
type Client struct {
	projectID    string
	accessKey    string
	accessSecret string
	region       string
	endpoint     string
	domainID     string
	httpClient   *http.Client
}

// New creates a Client, validating the region and endpoint.
func New(cfg ClientConfig) (*Client, error) {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	c := &Client{
		projectID:    cfg.ProjectID,
		accessKey:    cfg.AccessKey,
		accessSecret: cfg.AccessSecret,
		endpoint:     DefaultEndpoint,
		domainID:     cfg.DomainID,
		httpClient:   httpClient,
	}

	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}
	if err := c.SetRegion(region); err != nil {
		return nil, err
	}
	if cfg.Endpoint != "" {
		if err := c.SetEndpoint(cfg.Endpoint); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// SetRegion selects the region requests are sent to.
func (c *Client) SetRegion(region string) error {
	if !slices.Contains(Regions, region) {
		return &email.ValidationError{
			Field:   "region",
			Message: fmt.Sprintf("%q is not supported, allowed values: %s", region, strings.Join(Regions, ", ")),
		}
	}
	c.region = region
	return nil
}

// Region returns the selected region.
func (c *Client) Region() string {
	return c.region
}

// SetEndpoint replaces the API base URL. The URL must be absolute; a
// trailing slash is added when missing.
func (c *Client) SetEndpoint(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &email.ValidationError{Field: "endpoint", Message: fmt.Sprintf("%q is not a valid URL", rawURL)}
	}
	if !strings.HasSuffix(rawURL, "/") {
		rawURL += "/"
	}
	c.endpoint = rawURL
	return nil
}

// Endpoint returns the API base URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// SetDomainID records the sending domain. It is kept for callers but is
// not part of the send request.
func (c *Client) SetDomainID(domainID string) {
	c.domainID = domainID
}

// DomainID returns the value given to SetDomainID.
func (c *Client) DomainID() string {
	return c.domainID
}

// CreateEmail returns an empty email bound to the client's project.
func (c *Client) CreateEmail() *email.Email {
	return email.New(c.projectID)
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "scaleway"
}

// Send validates msg and submits it. A nil error means the API accepted
// the message; the returned Result then has one entry per recipient.
func (c *Client) Send(ctx context.Context, msg *email.Email) (*Result, error) {
	if err := validate(msg); err != nil {
		return nil, err
	}

	bodyJSON, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	sendURL := c.endpoint + c.region + "/emails"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendURL, bytes.NewReader(bodyJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Auth-Token", c.accessSecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Length", strconv.Itoa(len(bodyJSON)))

	slog.Debug("sending transactional email",
		"region", c.region,
		"recipients", len(msg.To()),
		"attachments", len(msg.Attachments()),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, newTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newTransportError(err)
	}

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		res, err := decodeResult(body)
		if err != nil {
			return nil, err
		}
		slog.Info("transactional email accepted",
			"region", c.region,
			"emails", len(res.Emails),
		)
		return res, nil
	}

	remoteErr := &RemoteError{
		Code:    resp.StatusCode,
		Message: errorMessage(resp.StatusCode, body),
		Detail:  string(body),
	}
	slog.Warn("transactional email rejected",
		"status", remoteErr.Code,
		"message", remoteErr.Message,
	)
	return nil, remoteErr
}

// validate checks, in order, the fields the API requires.
func validate(msg *email.Email) error {
	if _, ok := msg.From(); !ok {
		return &email.ValidationError{Field: "from", Message: "sender is required"}
	}
	if len(msg.To()) == 0 {
		return &email.ValidationError{Field: "to", Message: "at least one recipient is required"}
	}
	if msg.Subject() == "" {
		return &email.ValidationError{Field: "subject", Message: "subject is required"}
	}
	if msg.Text() == "" && msg.HTML() == "" {
		return &email.ValidationError{Field: "body", Message: "text or html content is required"}
	}
	if msg.ProjectID() == "" {
		return &email.ValidationError{Field: "project_id", Message: "project id is required"}
	}
	return nil
}

// apiErrorResponse covers the error bodies returned by the API.
type apiErrorResponse struct {
	Message string `json:"message"`
	Error   any    `json:"error"`
}

// errorMessage picks a human readable message out of an error body,
// falling back to the status text.
func errorMessage(status int, body []byte) string {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		if s, ok := apiErr.Error.(string); ok && s != "" {
			return s
		}
	}
	return http.StatusText(status)
}
