package services

import (
	"context"
	"errors"
	"html/template"
	"log"
	"regexp"
	"strings"
	"time"

	"pixelnest/internal/apperror"
	"pixelnest/internal/metrics"
	"pixelnest/internal/models"
	"pixelnest/internal/store"
	"pixelnest/internal/utils"
)

const (
	minContactNameLen    = 2
	minContactMessageLen = 10
)

var contactEmailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

type ContactInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Subject  string `json:"subject"`
	Message  string `json:"message"`
	SendCopy bool   `json:"sendCopy"`
}

type ContactService struct {
	contacts   store.Contacts
	mailer     Mailer
	adminEmail string
	// dispatch runs the mail step off the request path
	dispatch func(func())
}

func NewContactService(contacts store.Contacts, mailer Mailer, adminEmail string) *ContactService {
	return &ContactService{
		contacts:   contacts,
		mailer:     mailer,
		adminEmail: adminEmail,
		dispatch:   func(f func()) { go f() },
	}
}

func (in *ContactInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Subject = strings.TrimSpace(in.Subject)
	in.Message = strings.TrimSpace(in.Message)

	if in.Name == "" || in.Email == "" || in.Subject == "" || in.Message == "" {
		return apperror.NewValidation("All fields are required")
	}
	if !contactEmailPattern.MatchString(in.Email) {
		return apperror.NewValidation("Please provide a valid email address")
	}
	if utils.CharCount(in.Name) < minContactNameLen {
		return apperror.NewValidation("Name must be at least 2 characters long")
	}
	if utils.CharCount(in.Message) < minContactMessageLen {
		return apperror.NewValidation("Message must be at least 10 characters long")
	}
	return nil
}

// Submit stores the message and returns its id. Notification mails go out
// afterwards and their failures are only logged.
func (s *ContactService) Submit(ctx context.Context, in ContactInput) (uint, error) {
	if err := in.validate(); err != nil {
		return 0, err
	}

	msg := &models.ContactMessage{
		Name:     in.Name,
		Email:    in.Email,
		Subject:  in.Subject,
		Message:  in.Message,
		SendCopy: in.SendCopy,
	}
	if err := s.contacts.Create(ctx, msg); err != nil {
		return 0, apperror.NewInternal("Failed to send message. Please try again later.", err)
	}
	log.Printf("[Contact] message %d saved", msg.ID)

	s.dispatch(func() { s.notify(msg) })
	return msg.ID, nil
}

func (s *ContactService) notify(msg *models.ContactMessage) {
	s.sendAdmin(msg)
	if msg.SendCopy {
		s.sendCopy(msg)
	}
}

func (s *ContactService) sendAdmin(msg *models.ContactMessage) {
	if s.adminEmail == "" {
		log.Printf("[Contact] no admin address configured, skipping notification for message %d", msg.ID)
		return
	}

	body, err := renderTemplate("contact_admin.html", map[string]interface{}{
		"Name":     msg.Name,
		"Email":    msg.Email,
		"Subject":  msg.Subject,
		"Message":  template.HTML(utils.RenderMarkdown(msg.Message)),
		"SendCopy": msg.SendCopy,
		"Received": msg.CreatedAt.Format(time.RFC1123),
	})
	if err != nil {
		log.Printf("[Contact] %v", err)
		return
	}

	s.send("contact_admin", Email{
		FromName: msg.Name + " via Image Gallery",
		To:       s.adminEmail,
		ReplyTo:  msg.Email,
		Subject:  "Contact Form: " + msg.Subject,
		HTML:     body,
	})
}

func (s *ContactService) sendCopy(msg *models.ContactMessage) {
	body, err := renderTemplate("contact_copy.html", map[string]string{
		"Name":    msg.Name,
		"Subject": msg.Subject,
	})
	if err != nil {
		log.Printf("[Contact] %v", err)
		return
	}

	s.send("contact_copy", Email{
		FromName: "Image Gallery",
		To:       msg.Email,
		Subject:  "Message Received - Image Gallery",
		HTML:     body,
	})
}

func (s *ContactService) send(kind string, email Email) {
	err := s.mailer.Send(email)
	if errors.Is(err, ErrMailDisabled) {
		return
	}
	metrics.MailsSent.WithLabelValues(kind, metrics.Outcome(err)).Inc()
	if err != nil {
		log.Printf("[Contact] failed to send %s mail to %s: %v", kind, email.To, err)
	}
}
