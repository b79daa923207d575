package notification

import (
	"context"
	"fmt"
	"sync"

	"github.com/tulugarseguro/agentes/internal/shared/config"
	"github.com/tulugarseguro/agentes/internal/shared/errors"
	"github.com/wneessen/go-mail"
)

// EmailProvider interface for email providers
type EmailProvider interface {
	Send(ctx context.Context, msg *Message) error
}

// SMTPProvider sends mail through an SMTP relay with STARTTLS and plain auth.
type SMTPProvider struct {
	cfg config.SMTPConfig
}

func NewSMTPProvider(cfg config.SMTPConfig) *SMTPProvider {
	return &SMTPProvider{cfg: cfg}
}

// Send delivers msg. Missing credentials are reported at call time so the
// rest of the service can run without SMTP.
func (p *SMTPProvider) Send(ctx context.Context, msg *Message) error {
	if !p.cfg.Configured() {
		return errors.Configuration("SMTP no configurado")
	}

	m := mail.NewMsg()
	if err := m.From(p.cfg.From); err != nil {
		return errors.Configuration(fmt.Sprintf("invalid SMTP_FROM address: %v", err))
	}
	if err := m.To(msg.To); err != nil {
		return errors.BadRequest(fmt.Sprintf("invalid recipient address: %v", err))
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)

	client, err := mail.NewClient(p.cfg.Host,
		mail.WithPort(p.cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(p.cfg.User),
		mail.WithPassword(p.cfg.Password),
	)
	if err != nil {
		return errors.Configuration(fmt.Sprintf("invalid SMTP settings: %v", err))
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// MockEmailProvider is a mock email provider for testing
type MockEmailProvider struct {
	mu         sync.RWMutex
	sent       []*Message
	failOnSend bool
}

// NewMockEmailProvider creates a new mock email provider
func NewMockEmailProvider() *MockEmailProvider {
	return &MockEmailProvider{}
}

// Send records msg (mock implementation)
func (p *MockEmailProvider) Send(ctx context.Context, msg *Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failOnSend {
		return fmt.Errorf("mock send failure")
	}
	if msg.To == "" {
		return errors.BadRequest("no email address provided")
	}

	p.sent = append(p.sent, msg)
	return nil
}

// SetFailOnSend sets whether Send should fail
func (p *MockEmailProvider) SetFailOnSend(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failOnSend = fail
}

// Sent returns the messages sent so far, oldest first.
func (p *MockEmailProvider) Sent() []*Message {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]*Message(nil), p.sent...)
}
