package tem

import (
	"encoding/json"
	"fmt"
	"time"
)

// Email statuses reported by the API.
const (
	StatusNew      = "new"
	StatusSending  = "sending"
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusCanceled = "canceled"
)

// Result is the outcome of an accepted send, one entry per recipient.
type Result struct {
	Emails []ResultEmail `json:"emails"`
}

// ResultEmail tracks the delivery of the message to a single recipient.
type ResultEmail struct {
	ID            string    `json:"id"`
	MessageID     string    `json:"message_id"`
	ProjectID     string    `json:"project_id"`
	MailFrom      string    `json:"mail_from"`
	RcptTo        string    `json:"rcpt_to"`
	RcptType      string    `json:"rcpt_type"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Status        string    `json:"status"`
	StatusDetails string    `json:"status_details"`
	TryCount      int       `json:"try_count"`
	LastTries     []LastTry `json:"last_tries"`
}

// LastTry is one delivery attempt of a ResultEmail.
type LastTry struct {
	Rank    int       `json:"rank"`
	TriedAt time.Time `json:"tried_at"`
	Code    int       `json:"code"`
	Message string    `json:"message"`
}

// decodeResult reads a success body. Unknown keys are ignored and missing
// keys stay zero.
func decodeResult(body []byte) (*Result, error) {
	var res Result
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &res, nil
}
