package email

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
)

// sniffLen is the number of leading bytes http.DetectContentType considers.
const sniffLen = 512

// Attachment is a file attached to an Email. Its content is kept base64
// encoded, the form in which it is sent.
type Attachment struct {
	name        string
	contentType string
	content     string
	size        int
}

// NewAttachment builds an attachment from in-memory data. An empty
// contentType is detected from the data.
func NewAttachment(name, contentType string, data []byte) Attachment {
	if contentType == "" {
		contentType = detectContentType(data)
	}
	return Attachment{
		name:        name,
		contentType: contentType,
		content:     base64.StdEncoding.EncodeToString(data),
		size:        len(data),
	}
}

// AttachmentFromFile reads the whole file at path. The attachment is named
// after the last path element and typed by sniffing its content.
func AttachmentFromFile(path string) (Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Attachment{}, &AttachmentError{Source: path, Err: err}
	}
	return NewAttachment(filepath.Base(path), "", data), nil
}

// AttachmentFromReader reads r to EOF and names the attachment fileName.
// When r is also an io.Seeker it is rewound first. The caller keeps
// ownership of r.
func AttachmentFromReader(r io.Reader, fileName string) (Attachment, error) {
	if s, ok := r.(io.Seeker); ok {
		if _, err := s.Seek(0, io.SeekStart); err != nil {
			return Attachment{}, &AttachmentError{Source: fileName, Err: err}
		}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Attachment{}, &AttachmentError{Source: fileName, Err: err}
	}
	return NewAttachment(fileName, "", data), nil
}

// Name returns the file name.
func (a Attachment) Name() string { return a.name }

// Type returns the MIME type.
func (a Attachment) Type() string { return a.contentType }

// Content returns the base64 encoded content.
func (a Attachment) Content() string { return a.content }

// Size returns the length of the decoded content in bytes.
func (a Attachment) Size() int { return a.size }

// MarshalJSON encodes the attachment as {"name", "type", "content"}.
func (a Attachment) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name    string `json:"name"`
		Type    string `json:"type"`
		Content string `json:"content"`
	}{a.name, a.contentType, a.content})
}

// detectContentType sniffs data and drops media type parameters, so a
// plain text file yields "text/plain" rather than "text/plain; charset=utf-8".
func detectContentType(data []byte) string {
	if len(data) > sniffLen {
		data = data[:sniffLen]
	}
	detected := http.DetectContentType(data)
	mediaType, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return detected
	}
	return mediaType
}
