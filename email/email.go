// Package email models an outgoing transactional email: its sender,
// recipients, subject, bodies, attachments and additional headers.
//
// Recipients, attachments and headers are kept in insertion order and are
// unique by address, file name and header key respectively. Adding an entry
// whose key is already present replaces the existing entry in place.
//
// An Email is not safe for concurrent mutation.
package email

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// MaxSubjectLength is the longest subject, in characters, that is accepted.
const MaxSubjectLength = 255

// Email is an outgoing message bound to a project.
type Email struct {
	projectID   string
	from        *Recipient
	to          []Recipient
	subject     string
	text        string
	html        string
	attachments []Attachment
	headers     []Header
}

// New returns an empty Email for the given project.
func New(projectID string) *Email {
	return &Email{projectID: projectID}
}

// ProjectID returns the project the email is sent for.
func (e *Email) ProjectID() string {
	return e.projectID
}

// SetFrom sets the sender.
func (e *Email) SetFrom(from Recipient) {
	e.from = &from
}

// SetFromAddress sets the sender from an address and display name.
func (e *Email) SetFromAddress(address, name string) error {
	r, err := NewRecipient(address, name)
	if err != nil {
		return err
	}
	e.SetFrom(r)
	return nil
}

// From returns the sender and whether one has been set.
func (e *Email) From() (Recipient, bool) {
	if e.from == nil {
		return Recipient{}, false
	}
	return *e.from, true
}

// AddRecipient adds r to the recipient list, replacing an existing
// recipient with the same address.
func (e *Email) AddRecipient(r Recipient) {
	for i := range e.to {
		if e.to[i].email == r.email {
			e.to[i] = r
			return
		}
	}
	e.to = append(e.to, r)
}

// AddTo adds a recipient from an address and display name.
func (e *Email) AddTo(address, name string) error {
	r, err := NewRecipient(address, name)
	if err != nil {
		return err
	}
	e.AddRecipient(r)
	return nil
}

// To returns a copy of the recipient list.
func (e *Email) To() []Recipient {
	return append([]Recipient(nil), e.to...)
}

// SetSubject sets the subject. Subjects longer than MaxSubjectLength
// characters are rejected.
func (e *Email) SetSubject(subject string) error {
	if n := utf8.RuneCountInString(subject); n > MaxSubjectLength {
		return &ValidationError{
			Field:   "subject",
			Message: fmt.Sprintf("must be at most %d characters, got %d", MaxSubjectLength, n),
		}
	}
	e.subject = subject
	return nil
}

func (e *Email) Subject() string { return e.subject }

func (e *Email) SetText(text string) { e.text = text }

func (e *Email) Text() string { return e.text }

func (e *Email) SetHTML(html string) { e.html = html }

func (e *Email) HTML() string { return e.html }

// AddAttachment adds a, replacing an existing attachment with the same name.
func (e *Email) AddAttachment(a Attachment) {
	for i := range e.attachments {
		if e.attachments[i].name == a.name {
			e.attachments[i] = a
			return
		}
	}
	e.attachments = append(e.attachments, a)
}

// Attachments returns a copy of the attachment list.
func (e *Email) Attachments() []Attachment {
	return append([]Attachment(nil), e.attachments...)
}

// AddHeader sets an additional header. If key is already present its value
// is updated and its position kept.
func (e *Email) AddHeader(key, value string) {
	for i := range e.headers {
		if e.headers[i].key == key {
			e.headers[i].SetValue(value)
			return
		}
	}
	e.headers = append(e.headers, NewHeader(key, value))
}

// Headers returns a copy of the additional headers.
func (e *Email) Headers() []Header {
	return append([]Header(nil), e.headers...)
}

// wireEmail is the request body of the send endpoint. Every field is always
// present; empty lists are encoded as [] and a missing sender as null.
type wireEmail struct {
	ProjectID         string       `json:"project_id"`
	From              *Recipient   `json:"from"`
	To                []Recipient  `json:"to"`
	Subject           string       `json:"subject"`
	Text              string       `json:"text"`
	HTML              string       `json:"html"`
	Attachments       []Attachment `json:"attachments"`
	AdditionalHeaders []Header     `json:"additional_headers"`
}

// MarshalJSON encodes the email as the send request body.
func (e *Email) MarshalJSON() ([]byte, error) {
	w := wireEmail{
		ProjectID:         e.projectID,
		From:              e.from,
		To:                e.To(),
		Subject:           e.subject,
		Text:              e.text,
		HTML:              e.html,
		Attachments:       e.Attachments(),
		AdditionalHeaders: e.Headers(),
	}
	if w.To == nil {
		w.To = []Recipient{}
	}
	if w.Attachments == nil {
		w.Attachments = []Attachment{}
	}
	if w.AdditionalHeaders == nil {
		w.AdditionalHeaders = []Header{}
	}
	return json.Marshal(w)
}
