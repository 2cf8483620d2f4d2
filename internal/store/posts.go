package store

import (
	"context"
	"errors"
	"pixelnest/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Posts is the post aggregate repository. Every mutation of a post's likes
// or comments runs in a transaction that holds the post row lock, so
// concurrent writers on the same post are serialized by the database.
type Posts interface {
	Create(ctx context.Context, post *models.Post) error
	FindByID(ctx context.Context, id uint) (*models.Post, error)
	UpdateContent(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	ListByOwner(ctx context.Context, ownerID uint) ([]models.Post, error)
	ListAll(ctx context.Context) ([]models.Post, error)

	ToggleLike(ctx context.Context, postID, userID uint) (bool, error)
	ListLikers(ctx context.Context, postID uint) ([]models.User, error)

	AddComment(ctx context.Context, postID uint, comment *models.Comment) error
	UpdateComment(ctx context.Context, postID, commentID uint, mutate func(*models.Comment) error) error
	RemoveComment(ctx context.Context, postID, commentID uint, authorize func(*models.Comment) error) error
	ListComments(ctx context.Context, postID uint) ([]models.Comment, error)
}

type PostStore struct {
	db *gorm.DB
}

func NewPostStore(db *gorm.DB) *PostStore {
	return &PostStore{db: db}
}

// withAggregate preloads everything a post response carries.
func withAggregate(q *gorm.DB) *gorm.DB {
	return q.Preload("Owner").
		Preload("Likes", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Comments.User")
}

// lockPost takes the row lock that serializes mutations of one post.
func lockPost(tx *gorm.DB, postID uint) error {
	var post models.Post
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		First(&post, postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func postExists(tx *gorm.DB, postID uint) error {
	var count int64
	if err := tx.Model(&models.Post{}).Where("id = ?", postID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostStore) Create(ctx context.Context, post *models.Post) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error
}

func (s *PostStore) FindByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := withAggregate(s.db.WithContext(ctx)).First(&post, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	post.Populate()
	return &post, nil
}

// UpdateContent writes the editable columns only; likes and comments are
// never rewritten from an in-memory copy.
func (s *PostStore) UpdateContent(ctx context.Context, post *models.Post) error {
	res := s.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", post.ID).
		Updates(map[string]interface{}{
			"title":           post.Title,
			"description":     post.Description,
			"image_url":       post.ImageURL,
			"image_public_id": post.ImagePublicID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the post with its comments and likes in one transaction.
// The foreign keys cascade as well; the explicit deletes keep the behaviour
// independent of how the schema was created.
func (s *PostStore) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPost(tx, id); err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, id).Error
	})
}

func (s *PostStore) ListByOwner(ctx context.Context, ownerID uint) ([]models.Post, error) {
	var posts []models.Post
	err := withAggregate(s.db.WithContext(ctx)).
		Where("created_by = ?", ownerID).
		Order("created_at DESC, id DESC").
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	populateAll(posts)
	return posts, nil
}

func (s *PostStore) ListAll(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	err := withAggregate(s.db.WithContext(ctx)).
		Order("created_at DESC, id DESC").
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	populateAll(posts)
	return posts, nil
}

func populateAll(posts []models.Post) {
	for i := range posts {
		posts[i].Populate()
	}
}

// ToggleLike removes the like if present, otherwise inserts it, and reports
// whether the user now likes the post.
func (s *PostStore) ToggleLike(ctx context.Context, postID, userID uint) (bool, error) {
	var liked bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPost(tx, postID); err != nil {
			return err
		}

		res := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.Like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			liked = false
			return nil
		}

		liked = true
		return tx.Omit(clause.Associations).Create(&models.Like{PostID: postID, UserID: userID}).Error
	})
	return liked, err
}

func (s *PostStore) ListLikers(ctx context.Context, postID uint) ([]models.User, error) {
	q := s.db.WithContext(ctx)
	if err := postExists(q, postID); err != nil {
		return nil, err
	}

	var likes []models.Like
	err := q.Preload("User").
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&likes).Error
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, len(likes))
	for _, l := range likes {
		users = append(users, l.User)
	}
	return users, nil
}

// AddComment appends the comment at the end of the post's sequence.
func (s *PostStore) AddComment(ctx context.Context, postID uint, comment *models.Comment) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPost(tx, postID); err != nil {
			return err
		}

		var last int
		err := tx.Model(&models.Comment{}).
			Where("post_id = ?", postID).
			Select("COALESCE(MAX(position), 0)").
			Scan(&last).Error
		if err != nil {
			return err
		}

		comment.PostID = postID
		comment.Position = last + 1
		return tx.Omit(clause.Associations).Create(comment).Error
	})
}

func findComment(tx *gorm.DB, postID, commentID uint) (*models.Comment, error) {
	var comment models.Comment
	err := tx.Where("id = ? AND post_id = ?", commentID, postID).First(&comment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCommentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// UpdateComment loads the comment under the post lock, lets mutate change
// it (or reject the change), and persists text and status.
func (s *PostStore) UpdateComment(ctx context.Context, postID, commentID uint, mutate func(*models.Comment) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPost(tx, postID); err != nil {
			return err
		}
		comment, err := findComment(tx, postID, commentID)
		if err != nil {
			return err
		}
		if err := mutate(comment); err != nil {
			return err
		}
		return tx.Model(&models.Comment{}).
			Where("id = ?", comment.ID).
			Updates(map[string]interface{}{
				"text":   comment.Text,
				"status": comment.Status,
			}).Error
	})
}

func (s *PostStore) RemoveComment(ctx context.Context, postID, commentID uint, authorize func(*models.Comment) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPost(tx, postID); err != nil {
			return err
		}
		comment, err := findComment(tx, postID, commentID)
		if err != nil {
			return err
		}
		if err := authorize(comment); err != nil {
			return err
		}
		return tx.Delete(&models.Comment{}, comment.ID).Error
	})
}

func (s *PostStore) ListComments(ctx context.Context, postID uint) ([]models.Comment, error) {
	q := s.db.WithContext(ctx)
	if err := postExists(q, postID); err != nil {
		return nil, err
	}

	var comments []models.Comment
	err := q.Preload("User").
		Where("post_id = ?", postID).
		Order("position ASC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	for i := range comments {
		comments[i].Populate()
	}
	return comments, nil
}
