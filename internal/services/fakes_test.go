package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"testing"

	"pixelnest/internal/apperror"
	"pixelnest/internal/events"
	"pixelnest/internal/models"
	"pixelnest/internal/store/storetest"
)

type fakeBlobs struct {
	mu        sync.Mutex
	n         int
	objects   map[string]bool
	uploadErr error
	deleteErr map[string]error
	deleted   []string
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: map[string]bool{}, deleteErr: map[string]error{}}
}

func (b *fakeBlobs) Upload(_ context.Context, file ImageFile) (*UploadResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.uploadErr != nil {
		return nil, b.uploadErr
	}
	if _, err := io.ReadAll(file.Reader); err != nil {
		return nil, err
	}
	b.n++
	id := fmt.Sprintf("posts/img-%d%s", b.n, strings.ToLower(path.Ext(file.Filename)))
	b.objects[id] = true
	return &UploadResult{URL: "https://cdn.test/" + id, PublicID: id}, nil
}

func (b *fakeBlobs) Delete(_ context.Context, publicID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.deleteErr[publicID]; err != nil {
		return err
	}
	delete(b.objects, publicID)
	b.deleted = append(b.deleted, publicID)
	return nil
}

func (b *fakeBlobs) has(publicID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.objects[publicID]
}

func (b *fakeBlobs) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []Email
	err  error
}

func (m *fakeMailer) Send(msg Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

func (m *fakeMailer) messages() []Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Email(nil), m.sent...)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.PostCreated
}

func (p *fakePublisher) PublishPostCreated(_ context.Context, evt events.PostCreated) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) published() []events.PostCreated {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.PostCreated(nil), p.events...)
}

var errBlobDown = errors.New("blob store unavailable")

func strp(s string) *string { return &s }

func imageFile(name string) *ImageFile {
	return &ImageFile{
		Filename:    name,
		ContentType: "image/png",
		Size:        4,
		Reader:      strings.NewReader("\x89PNG"),
	}
}

func mustUser(t *testing.T, users *storetest.Users, name, email string) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: email, Password: "hash"}
	if err := users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

func assertErrType(t *testing.T, err error, want apperror.ErrorType) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error of type %d, got nil", want)
	}
	ae, ok := apperror.From(err)
	if !ok {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}
	if ae.Type != want {
		t.Fatalf("expected error type %d, got %d (%v)", want, ae.Type, err)
	}
}
