package mailer

import "context"

type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// Transport delivers one message. Send returns the provider message id when
// the provider reports one.
type Transport interface {
	Name() string
	Verify(ctx context.Context) error
	Send(ctx context.Context, msg Message) (string, error)
}
