package email

import "encoding/json"

// Header is one additional mail header sent along with the message.
type Header struct {
	key   string
	value string
}

// NewHeader returns a Header with the given key and value.
func NewHeader(key, value string) Header {
	return Header{key: key, value: value}
}

func (h Header) Key() string   { return h.key }
func (h Header) Value() string { return h.value }

// SetValue replaces the header value.
func (h *Header) SetValue(value string) {
	h.value = value
}

// String returns "key: value".
func (h Header) String() string {
	return h.key + ": " + h.value
}

// MarshalJSON encodes the header as {"key": ..., "value": ...}.
func (h Header) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}{h.key, h.value})
}
