package email

import (
	"encoding/json"
	"net/mail"
)

// Recipient is an email address with an optional display name.
type Recipient struct {
	email string
	name  string
}

// NewRecipient returns a Recipient for address, which must be a bare
// addr-spec such as "jane@example.com".
func NewRecipient(address, name string) (Recipient, error) {
	if err := validateAddress(address); err != nil {
		return Recipient{}, err
	}
	return Recipient{email: address, name: name}, nil
}

// Email returns the address.
func (r Recipient) Email() string {
	return r.email
}

// Name returns the display name, possibly empty.
func (r Recipient) Name() string {
	return r.name
}

// SetEmail replaces the address. The recipient is left unchanged on error.
func (r *Recipient) SetEmail(address string) error {
	if err := validateAddress(address); err != nil {
		return err
	}
	r.email = address
	return nil
}

// SetName replaces the display name.
func (r *Recipient) SetName(name string) {
	r.name = name
}

// String returns "name <email>", or only the address when no name is set.
func (r Recipient) String() string {
	if r.name == "" {
		return r.email
	}
	return r.name + " <" + r.email + ">"
}

type wireRecipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// MarshalJSON encodes the recipient as {"email": ..., "name": ...}.
func (r Recipient) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireRecipient{Email: r.email, Name: r.name})
}

// validateAddress accepts only a bare address: display names, angle
// brackets and surrounding whitespace are rejected.
func validateAddress(address string) error {
	if address == "" {
		return &ValidationError{Field: "email", Message: "address is empty"}
	}
	parsed, err := mail.ParseAddress(address)
	if err != nil || parsed.Name != "" || parsed.Address != address {
		return &ValidationError{Field: "email", Message: "invalid email address " + `"` + address + `"`}
	}
	return nil
}
