// Package mailer provides the outbound mail-relay connector boundary.
package mailer

import (
	"context"
	"strings"
)

// SendReplyRequest is one outbound reply into an existing mail thread.
type SendReplyRequest struct {
	To       string
	Subject  string
	Body     string
	ThreadID string
}

// SendResult identifies the delivered message at the relay.
type SendResult struct {
	MessageID string
	ThreadID  string
}

// Relay is the mail-relay connector the platform delivers replies through.
type Relay interface {
	SendReply(ctx context.Context, req SendReplyRequest) (*SendResult, error)
}

// FormatOutbound prepares a reply body for the relay, appending the
// organization signature (or host name as fallback) when present.
func FormatOutbound(body, signature, hostName string) string {
	formatted := strings.TrimSpace(body)
	if signature != "" {
		formatted += "\n\n" + signature
	} else if hostName != "" {
		formatted += "\n\n" + hostName
	}
	return formatted
}

// ReplySubject normalizes a thread subject for a reply.
func ReplySubject(subject string) string {
	if strings.HasPrefix(subject, "Re:") {
		return subject
	}
	return "Re: " + subject
}

// NopRelay accepts every send without delivering anything. Used when the relay
// is disabled and in tests.
type NopRelay struct{}

// SendReply records nothing and reports success.
func (NopRelay) SendReply(ctx context.Context, req SendReplyRequest) (*SendResult, error) {
	return &SendResult{MessageID: "", ThreadID: req.ThreadID}, nil
}
