// Package envelope reads the headers and plain text body of an RFC 5322
// message. Attachments are skipped.
package envelope

import (
	"errors"
	"fmt"
	"io"
	"strings"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/k3a/html2text"

	"github.com/danielolaszy/mailglue/internal/logging"
	"github.com/danielolaszy/mailglue/pkg/models"
)

// maxBodySize caps how much of a single part is read.
const maxBodySize = 10 << 20

// Read parses a message from r.
func Read(r io.Reader) (*models.Message, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	defer mr.Close()

	msg := &models.Message{}
	readHeader(&mr.Header, msg)

	body, err := readBody(mr)
	if err != nil {
		return nil, err
	}
	msg.Body = body

	logging.Debug("read message",
		"message_id", msg.MessageID,
		"from", msg.From,
		"recipients", len(msg.Recipients),
		"body_length", len(msg.Body))

	return msg, nil
}

func readHeader(h *mail.Header, msg *models.Message) {
	if subject, err := h.Subject(); err == nil {
		msg.Subject = subject
	} else {
		msg.Subject = h.Get("Subject")
	}

	if from, err := h.AddressList("From"); err == nil && len(from) > 0 {
		msg.From = formatAddress(from[0])
	} else {
		msg.From = strings.TrimSpace(h.Get("From"))
	}

	for _, key := range []string{"To", "Cc", "Bcc"} {
		addrs, err := h.AddressList(key)
		if err != nil {
			logging.Warn("failed to parse recipient header", "header", key, "error", err)
			if raw := strings.TrimSpace(h.Get(key)); raw != "" {
				msg.Recipients = append(msg.Recipients, raw)
			}
			continue
		}
		for _, addr := range addrs {
			msg.Recipients = append(msg.Recipients, formatAddress(addr))
		}
	}

	if id, err := h.MessageID(); err == nil {
		msg.MessageID = id
	}
	if ids, err := h.MsgIDList("In-Reply-To"); err == nil {
		msg.InReplyTo = ids
	}
}

// formatAddress renders addr with its display name decoded, unlike
// mail.Address.String which re-encodes non-ASCII names.
func formatAddress(addr *mail.Address) string {
	if addr.Name == "" {
		return addr.Address
	}
	return addr.Name + " <" + addr.Address + ">"
}

// readBody returns the first inline text/plain part, falling back to the
// first text/html part converted to text.
func readBody(mr *mail.Reader) (string, error) {
	var plain, html *string
	for plain == nil {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read message part: %w", err)
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		mediaType, _, err := header.ContentType()
		if err != nil || mediaType == "" {
			mediaType = "text/plain"
		}
		mediaType = strings.ToLower(mediaType)
		if mediaType != "text/plain" && mediaType != "text/html" {
			continue
		}

		content, err := io.ReadAll(io.LimitReader(part.Body, maxBodySize))
		if err != nil {
			return "", fmt.Errorf("failed to read %s part: %w", mediaType, err)
		}
		s := string(content)
		if mediaType == "text/plain" {
			plain = &s
		} else if html == nil {
			html = &s
		}
	}

	switch {
	case plain != nil:
		return *plain, nil
	case html != nil:
		return html2text.HTML2Text(*html), nil
	default:
		return "", nil
	}
}
