package services

import (
	"context"
	"errors"
	"fmt"

	"pixelnest/internal/events"
	"pixelnest/internal/metrics"
)

// Notifier sends the "your post is live" mail. It consumes post-created
// events and is never called from a request path.
type Notifier struct {
	mailer    Mailer
	clientURL string
}

func NewNotifier(mailer Mailer, clientURL string) *Notifier {
	return &Notifier{mailer: mailer, clientURL: clientURL}
}

func (n *Notifier) NotifyPostCreated(_ context.Context, evt events.PostCreated) error {
	if evt.OwnerEmail == "" {
		return fmt.Errorf("post %d: owner has no email", evt.PostID)
	}

	data := map[string]string{
		"Name":      evt.OwnerName,
		"Title":     evt.Title,
		"ClientURL": n.clientURL,
	}
	if n.clientURL != "" {
		data["PostLink"] = fmt.Sprintf("%s/post/%d", n.clientURL, evt.PostID)
	}
	body, err := renderTemplate("post_created.html", data)
	if err != nil {
		return err
	}

	err = n.mailer.Send(Email{
		FromName: "PixelNest",
		To:       evt.OwnerEmail,
		Subject:  "Your new post is live on PixelNest!",
		HTML:     body,
	})
	if errors.Is(err, ErrMailDisabled) {
		return nil
	}
	metrics.MailsSent.WithLabelValues("post_created", metrics.Outcome(err)).Inc()
	return err
}
