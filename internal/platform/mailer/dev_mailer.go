package mailer

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/diagnosis/tunisia-tours/pkg/logger"
	"github.com/google/uuid"
)

// DevMailer prints messages instead of sending them.
type DevMailer struct {
	out io.Writer
}

func NewDevMailer(out io.Writer) *DevMailer {
	if out == nil {
		out = os.Stdout
	}
	return &DevMailer{out: out}
}

func (d *DevMailer) Name() string { return "dev" }

func (d *DevMailer) Verify(context.Context) error { return nil }

func (d *DevMailer) Send(ctx context.Context, msg Message) (string, error) {
	id := "dev-" + uuid.NewString()
	logger.InfoContext(ctx, "[DEV MAIL] Booking email",
		"to", msg.To,
		"subject", msg.Subject,
		"message_id", id,
	)

	fmt.Fprintf(d.out, "\n"+
		"-----------------------------------------------------------------\n"+
		"EMAIL (DEV MODE)\n"+
		"-----------------------------------------------------------------\n"+
		"To: %s\n"+
		"Subject: %s\n"+
		"\n"+
		"%s\n"+
		"-----------------------------------------------------------------\n\n",
		msg.To, msg.Subject, msg.Text)

	return id, nil
}

var _ Transport = (*DevMailer)(nil)
