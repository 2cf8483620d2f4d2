// Package storetest provides in-memory implementations of the store
// interfaces for tests. They follow the same error contract as the gorm
// stores: ErrNotFound, ErrCommentNotFound and ErrDuplicate.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"pixelnest/internal/models"
	"pixelnest/internal/store"
)

// Clock hands out strictly increasing timestamps so ordering by creation
// time is deterministic.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *Clock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type Users struct {
	mu     sync.Mutex
	clock  *Clock
	byID   map[uint]models.User
	nextID uint
	// CreateErr, when set, is returned by Create.
	CreateErr error
}

func NewUsers() *Users {
	return &Users{clock: NewClock(), byID: map[uint]models.User{}}
}

func (s *Users) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return s.CreateErr
	}
	for _, u := range s.byID {
		if u.Email == user.Email {
			return store.ErrDuplicate
		}
	}
	s.nextID++
	user.ID = s.nextID
	user.CreatedAt = s.clock.Next()
	s.byID[user.ID] = *user
	return nil
}

func (s *Users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Users) FindByID(_ context.Context, id uint) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

// Remove deletes a user, which the application itself never does.
func (s *Users) Remove(id uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
}

func (s *Users) get(id uint) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[id]
}

type Contacts struct {
	mu       sync.Mutex
	clock    *Clock
	messages []models.ContactMessage
	// CreateErr, when set, is returned by Create.
	CreateErr error
}

func NewContacts() *Contacts {
	return &Contacts{clock: NewClock()}
}

func (s *Contacts) Create(_ context.Context, msg *models.ContactMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return s.CreateErr
	}
	msg.ID = uint(len(s.messages) + 1)
	msg.CreatedAt = s.clock.Next()
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *Contacts) Messages() []models.ContactMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ContactMessage(nil), s.messages...)
}

type postRow struct {
	post         models.Post
	likes        []models.Like
	comments     []models.Comment
	lastPosition int
}

// Posts keeps each post with its likes and comments. A single mutex
// stands in for the per-post row lock of the database store.
type Posts struct {
	mu          sync.Mutex
	users       *Users
	clock       *Clock
	rows        map[uint]*postRow
	nextPost    uint
	nextComment uint
	// CreateErr, when set, is returned by Create.
	CreateErr error
	// UpdateErr, when set, is returned by UpdateContent.
	UpdateErr error
}

func NewPosts(users *Users) *Posts {
	return &Posts{users: users, clock: NewClock(), rows: map[uint]*postRow{}}
}

// aggregate builds the post the way the gorm store preloads it.
func (s *Posts) aggregate(row *postRow) models.Post {
	p := row.post
	p.Owner = s.users.get(p.CreatedBy)
	p.Likes = make([]models.Like, len(row.likes))
	for i, l := range row.likes {
		l.User = s.users.get(l.UserID)
		p.Likes[i] = l
	}
	p.Comments = s.comments(row)
	p.Populate()
	return p
}

func (s *Posts) comments(row *postRow) []models.Comment {
	out := make([]models.Comment, len(row.comments))
	for i, c := range row.comments {
		c.User = s.users.get(c.UserID)
		c.Populate()
		out[i] = c
	}
	return out
}

func (s *Posts) Create(_ context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return s.CreateErr
	}
	s.nextPost++
	post.ID = s.nextPost
	post.CreatedAt = s.clock.Next()

	stored := *post
	stored.Owner = models.User{}
	stored.Likes = nil
	stored.Comments = nil
	s.rows[post.ID] = &postRow{post: stored}
	return nil
}

func (s *Posts) FindByID(_ context.Context, id uint) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	p := s.aggregate(row)
	return &p, nil
}

func (s *Posts) UpdateContent(_ context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.UpdateErr != nil {
		return s.UpdateErr
	}
	row, ok := s.rows[post.ID]
	if !ok {
		return store.ErrNotFound
	}
	row.post.Title = post.Title
	row.post.Description = post.Description
	row.post.ImageURL = post.ImageURL
	row.post.ImagePublicID = post.ImagePublicID
	return nil
}

func (s *Posts) Delete(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *Posts) list(keep func(models.Post) bool) []models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Post
	for _, row := range s.rows {
		if keep(row.post) {
			out = append(out, s.aggregate(row))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *Posts) ListByOwner(_ context.Context, ownerID uint) ([]models.Post, error) {
	return s.list(func(p models.Post) bool { return p.CreatedBy == ownerID }), nil
}

func (s *Posts) ListAll(_ context.Context) ([]models.Post, error) {
	return s.list(func(models.Post) bool { return true }), nil
}

func (s *Posts) ToggleLike(_ context.Context, postID, userID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[postID]
	if !ok {
		return false, store.ErrNotFound
	}
	for i, l := range row.likes {
		if l.UserID == userID {
			row.likes = append(row.likes[:i], row.likes[i+1:]...)
			return false, nil
		}
	}
	row.likes = append(row.likes, models.Like{PostID: postID, UserID: userID, CreatedAt: s.clock.Next()})
	return true, nil
}

func (s *Posts) ListLikers(_ context.Context, postID uint) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[postID]
	if !ok {
		return nil, store.ErrNotFound
	}
	users := make([]models.User, len(row.likes))
	for i, l := range row.likes {
		users[i] = s.users.get(l.UserID)
	}
	return users, nil
}

func (s *Posts) AddComment(_ context.Context, postID uint, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[postID]
	if !ok {
		return store.ErrNotFound
	}
	s.nextComment++
	row.lastPosition++
	comment.ID = s.nextComment
	comment.PostID = postID
	comment.Position = row.lastPosition
	comment.CreatedAt = s.clock.Next()

	stored := *comment
	stored.User = models.User{}
	row.comments = append(row.comments, stored)
	return nil
}

func (s *Posts) findComment(postID, commentID uint) (*postRow, int, error) {
	row, ok := s.rows[postID]
	if !ok {
		return nil, 0, store.ErrNotFound
	}
	for i, c := range row.comments {
		if c.ID == commentID {
			return row, i, nil
		}
	}
	return nil, 0, store.ErrCommentNotFound
}

func (s *Posts) UpdateComment(_ context.Context, postID, commentID uint, mutate func(*models.Comment) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, i, err := s.findComment(postID, commentID)
	if err != nil {
		return err
	}
	c := row.comments[i]
	if err := mutate(&c); err != nil {
		return err
	}
	row.comments[i].Text = c.Text
	row.comments[i].Status = c.Status
	return nil
}

func (s *Posts) RemoveComment(_ context.Context, postID, commentID uint, authorize func(*models.Comment) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, i, err := s.findComment(postID, commentID)
	if err != nil {
		return err
	}
	c := row.comments[i]
	if err := authorize(&c); err != nil {
		return err
	}
	row.comments = append(row.comments[:i], row.comments[i+1:]...)
	return nil
}

func (s *Posts) ListComments(_ context.Context, postID uint) ([]models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[postID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.comments(row), nil
}

var (
	_ store.Users    = (*Users)(nil)
	_ store.Posts    = (*Posts)(nil)
	_ store.Contacts = (*Contacts)(nil)
)
