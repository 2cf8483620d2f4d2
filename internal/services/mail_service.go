package services

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log"

	"pixelnest/internal/config"
	"pixelnest/internal/utils"

	"gopkg.in/gomail.v2"
)

//go:embed templates/*.html
var templateFS embed.FS

var emailTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

var ErrMailDisabled = errors.New("mail service disabled")

// Email is one outgoing message. HTML is the rendered body; a plain-text
// alternative is derived from it when sending.
type Email struct {
	FromName string
	To       string
	ReplyTo  string
	Subject  string
	HTML     string
}

type Mailer interface {
	Send(msg Email) error
}

type MailService struct {
	dialer  *gomail.Dialer
	from    string
	enabled bool
}

func NewMailService(cfg config.SMTPConfig) *MailService {
	enabled := cfg.Enabled()
	if !enabled {
		log.Println("[Mail] disabled: missing SMTP environment variables")
	}

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	// Port 465 is implicit TLS; gomail negotiates STARTTLS on the others.
	d.SSL = cfg.Port == 465

	return &MailService{
		dialer:  d,
		from:    cfg.From,
		enabled: enabled,
	}
}

// Send delivers msg synchronously.
func (s *MailService) Send(msg Email) error {
	if !s.enabled {
		return ErrMailDisabled
	}

	m := gomail.NewMessage()
	if msg.FromName != "" {
		m.SetAddressHeader("From", s.from, msg.FromName)
	} else {
		m.SetHeader("From", s.from)
	}
	m.SetHeader("To", msg.To)
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", utils.HTMLToText(msg.HTML))
	m.AddAlternative("text/html", msg.HTML)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	log.Printf("[Mail] sent to %s: %s", msg.To, msg.Subject)
	return nil
}

func renderTemplate(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.String(), nil
}
