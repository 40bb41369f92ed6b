// Package graph implements a Provider that sends emails via the Microsoft Graph API.
package graph

import (
	"github.com/shineum/scaleway-tem/email"
)

// sendMailRequest is the top-level request body for the Graph API sendMail endpoint.
type sendMailRequest struct {
	Message         sendMailMessage `json:"message"`
	SaveToSentItems bool            `json:"saveToSentItems"`
}

type sendMailMessage struct {
	Subject                string           `json:"subject"`
	Body                   messageBody      `json:"body"`
	From                   recipient        `json:"from"`
	ToRecipients           []recipient      `json:"toRecipients"`
	Attachments            []fileAttachment `json:"attachments,omitempty"`
	InternetMessageHeaders []messageHeader  `json:"internetMessageHeaders,omitempty"`
}

type messageBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

type emailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

type fileAttachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	ContentBytes string `json:"contentBytes"`
}

type messageHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// graphErrorResponse is the error envelope returned by the Graph API.
type graphErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func toRecipient(r email.Recipient) recipient {
	return recipient{EmailAddress: emailAddress{Address: r.Email(), Name: r.Name()}}
}

// buildSendMailRequest converts an email.Email into a sendMail request body.
// HTML wins over text when both are set since Graph carries a single body.
// Attachment content is already base64 and is passed through unchanged.
func buildSendMailRequest(msg *email.Email) *sendMailRequest {
	body := messageBody{ContentType: "text", Content: msg.Text()}
	if msg.HTML() != "" {
		body = messageBody{ContentType: "html", Content: msg.HTML()}
	}

	from, _ := msg.From()

	to := msg.To()
	toRecipients := make([]recipient, 0, len(to))
	for _, r := range to {
		toRecipients = append(toRecipients, toRecipient(r))
	}

	var attachments []fileAttachment
	for _, att := range msg.Attachments() {
		attachments = append(attachments, fileAttachment{
			ODataType:    "#microsoft.graph.fileAttachment",
			Name:         att.Name(),
			ContentType:  att.Type(),
			ContentBytes: att.Content(),
		})
	}

	var headers []messageHeader
	for _, h := range msg.Headers() {
		headers = append(headers, messageHeader{Name: h.Key(), Value: h.Value()})
	}

	return &sendMailRequest{
		Message: sendMailMessage{
			Subject:                msg.Subject(),
			Body:                   body,
			From:                   toRecipient(from),
			ToRecipients:           toRecipients,
			Attachments:            attachments,
			InternetMessageHeaders: headers,
		},
	}
}
