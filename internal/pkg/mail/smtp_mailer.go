package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"net/smtp"
	"time"

	"github.com/paysync-io/paysync/internal/pkg/config"
	"github.com/paysync-io/paysync/internal/pkg/reconcile"
)

const dialTimeout = 10 * time.Second

// Mailer sends operational emails via SMTP.
type Mailer struct {
	host     string
	port     string
	username string
	password string
	sender   string

	disputeRecipient string
}

// NewMailer builds a mailer from config.
func NewMailer(cfg *config.Config) *Mailer {
	sender := cfg.SMTP.Sender
	if sender == "" {
		sender = "no-reply@localhost"
	}
	return &Mailer{
		host:             cfg.SMTP.Host,
		port:             cfg.SMTP.Port,
		username:         cfg.SMTP.Username,
		password:         cfg.SMTP.Password,
		sender:           sender,
		disputeRecipient: cfg.DisputeNotifyEmail,
	}
}

// Send delivers a single HTML email. The connection honors the caller's
// deadline so a stalled SMTP peer cannot block a webhook request.
func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%s", m.host, m.port)
	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", m.sender, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	if err := m.send(ctx, addr, to, msg); err != nil {
		log.Printf("SMTP send error: %v", err)
		return err
	}
	return nil
}

func (m *Mailer) send(ctx context.Context, addr, to string, msg []byte) error {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(dialTimeout))
	}

	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
			return err
		}
	}
	if m.username != "" && m.password != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", m.username, m.password, m.host)
			if err := client.Auth(auth); err != nil {
				return err
			}
		}
	}

	if err := client.Mail(m.sender); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

// NotifyDispute surfaces a payment dispute to the operator inbox. Disputes
// never change entitlement automatically; a human decides.
func (m *Mailer) NotifyDispute(ctx context.Context, in reconcile.DisputeInput) error {
	if m.disputeRecipient == "" {
		log.Printf("mail: no dispute recipient configured, dropping notification for dispute %s", in.DisputeID)
		return nil
	}

	subject := fmt.Sprintf("Payment dispute %s opened", in.DisputeID)
	body := fmt.Sprintf(
		"<p>A dispute was opened.</p>"+
			"<ul><li>Dispute: %s</li><li>Order: %s</li><li>Subscription: %s</li>"+
			"<li>Amount: %d %s</li><li>Reason: %s</li><li>Opened: %s</li></ul>",
		in.DisputeID, in.OrderID, in.SubscriptionID,
		in.AmountCents, in.Currency, in.Reason, in.OccurredAt.Format("2006-01-02 15:04:05 MST"),
	)
	return m.Send(ctx, m.disputeRecipient, subject, body)
}
