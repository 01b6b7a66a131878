// Command mailcheck verifies the configured mail transport and can send a
// test message to the operator inbox.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/diagnosis/tunisia-tours/internal/platform/mailer"
	"github.com/diagnosis/tunisia-tours/pkg/config"
	"github.com/diagnosis/tunisia-tours/pkg/logger"
)

func main() {
	cfg := config.Load()

	send := flag.Bool("send", false, "send a test message after verifying")
	to := flag.String("to", cfg.Email.OperatorEmail, "test message recipient")
	timeout := flag.Duration("timeout", cfg.Email.NotifyTimeout, "overall timeout")
	flag.Parse()

	transport, err := mailer.New(cfg.Email)
	if err != nil {
		logger.Error("Invalid mail configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := transport.Verify(ctx); err != nil {
		logger.Error("Mail transport verification failed", "transport", transport.Name(), "error", err)
		os.Exit(1)
	}
	logger.Info("Mail transport verified", "transport", transport.Name())

	if !*send {
		return
	}

	id, err := transport.Send(ctx, mailer.Message{
		To:      *to,
		Subject: "Test Email - Tunisia Tours",
		Text:    fmt.Sprintf("Mail transport %s is working. Sent at %s.", transport.Name(), time.Now().Format(time.RFC1123)),
		HTML:    fmt.Sprintf("<p>Mail transport <strong>%s</strong> is working.</p><p>Sent at %s.</p>", transport.Name(), time.Now().Format(time.RFC1123)),
	})
	if err != nil {
		logger.Error("Test email failed", "to", *to, "error", err)
		os.Exit(1)
	}
	logger.Info("Test email sent", "to", *to, "message_id", id)
}
