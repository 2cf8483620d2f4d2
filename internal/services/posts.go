package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"strings"

	"pixelnest/internal/apperror"
	"pixelnest/internal/events"
	"pixelnest/internal/metrics"
	"pixelnest/internal/models"
	"pixelnest/internal/store"
	"pixelnest/internal/utils"
)

const (
	maxTitleLen       = 100
	maxDescriptionLen = 500
	maxCommentLen     = 300
)

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// PostInput carries the text fields of a create or edit request. A nil
// field was not supplied.
type PostInput struct {
	Title       *string
	Description *string
}

type PostService struct {
	posts     store.Posts
	blobs     BlobStore
	publisher events.Publisher
}

func NewPostService(posts store.Posts, blobs BlobStore, publisher events.Publisher) *PostService {
	return &PostService{
		posts:     posts,
		blobs:     blobs,
		publisher: publisher,
	}
}

func checkImageFormat(filename string) error {
	if !allowedImageExts[strings.ToLower(path.Ext(filename))] {
		return apperror.NewUnsupportedFormat("Only jpg, jpeg, png and webp images are allowed")
	}
	return nil
}

// checkText trims *v in place and enforces 1..max characters.
func checkText(v *string, field string, max int) error {
	*v = strings.TrimSpace(*v)
	if *v == "" {
		return apperror.NewValidation(field + " is required")
	}
	if utils.CharCount(*v) > max {
		return apperror.NewValidation(fmt.Sprintf("%s must be at most %d characters", field, max))
	}
	return nil
}

func (in PostInput) validate(requireAll bool) error {
	if in.Title == nil {
		if requireAll {
			return apperror.NewValidation("Title is required")
		}
	} else if err := checkText(in.Title, "Title", maxTitleLen); err != nil {
		return err
	}

	if in.Description == nil {
		if requireAll {
			return apperror.NewValidation("Description is required")
		}
	} else if err := checkText(in.Description, "Description", maxDescriptionLen); err != nil {
		return err
	}
	return nil
}

// mapStoreErr converts repository errors into the service error taxonomy.
// Errors already classified (e.g. returned from a store callback) pass through.
func mapStoreErr(err error, action string) error {
	if _, ok := apperror.From(err); ok {
		return err
	}
	switch {
	case errors.Is(err, store.ErrCommentNotFound):
		return apperror.NewNotFound("Comment not found")
	case errors.Is(err, store.ErrNotFound):
		return apperror.NewNotFound("Post not found")
	default:
		return apperror.NewInternal(action, err)
	}
}

func (s *PostService) upload(ctx context.Context, image *ImageFile) (*UploadResult, error) {
	res, err := s.blobs.Upload(ctx, *image)
	metrics.BlobOperations.WithLabelValues("upload", metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, apperror.NewUpstream("Failed to upload image", err)
	}
	return res, nil
}

func (s *PostService) deleteBlob(ctx context.Context, publicID string) error {
	err := s.blobs.Delete(ctx, publicID)
	metrics.BlobOperations.WithLabelValues("delete", metrics.Outcome(err)).Inc()
	return err
}

// Create validates the input, uploads the image and persists the post.
// The post-created event is published after the post is stored and does
// not affect the result.
func (s *PostService) Create(ctx context.Context, owner *models.User, input PostInput, image *ImageFile) (*models.Post, error) {
	if err := input.validate(true); err != nil {
		return nil, err
	}
	if image == nil {
		return nil, apperror.NewValidation("Image is required")
	}
	if err := checkImageFormat(image.Filename); err != nil {
		return nil, err
	}

	uploaded, err := s.upload(ctx, image)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:         *input.Title,
		Description:   *input.Description,
		ImageURL:      uploaded.URL,
		ImagePublicID: uploaded.PublicID,
		CreatedBy:     owner.ID,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		if derr := s.deleteBlob(ctx, uploaded.PublicID); derr != nil {
			log.Printf("[Posts] failed to remove orphaned image %s: %v", uploaded.PublicID, derr)
		}
		return nil, apperror.NewInternal("Failed to create post", err)
	}
	post.Owner = *owner
	post.Populate()
	metrics.PostsCreated.Inc()

	s.publisher.PublishPostCreated(ctx, events.PostCreated{
		PostID:     post.ID,
		Title:      post.Title,
		ImageURL:   post.ImageURL,
		OwnerID:    owner.ID,
		OwnerName:  owner.Name,
		OwnerEmail: owner.Email,
		CreatedAt:  post.CreatedAt,
	})
	return post, nil
}

// loadOwned fetches a post and checks that userID owns it.
func (s *PostService) loadOwned(ctx context.Context, postID, userID uint, action string) (*models.Post, error) {
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, mapStoreErr(err, "Failed to load post")
	}
	if post.CreatedBy != userID {
		return nil, apperror.NewForbidden("You are not allowed to " + action + " this post")
	}
	return post, nil
}

// Edit replaces the supplied fields. A new image is uploaded before the old
// one is deleted, and the stored reference changes only after both succeed.
func (s *PostService) Edit(ctx context.Context, postID, editorID uint, input PostInput, image *ImageFile) (*models.Post, error) {
	post, err := s.loadOwned(ctx, postID, editorID, "edit")
	if err != nil {
		return nil, err
	}
	if err := input.validate(false); err != nil {
		return nil, err
	}

	var uploaded *UploadResult
	if image != nil {
		if err := checkImageFormat(image.Filename); err != nil {
			return nil, err
		}
		uploaded, err = s.upload(ctx, image)
		if err != nil {
			return nil, err
		}
		if err := s.deleteBlob(ctx, post.ImagePublicID); err != nil {
			if derr := s.deleteBlob(ctx, uploaded.PublicID); derr != nil {
				log.Printf("[Posts] failed to remove replacement image %s: %v", uploaded.PublicID, derr)
			}
			return nil, apperror.NewUpstream("Failed to replace image", err)
		}
		post.ImageURL = uploaded.URL
		post.ImagePublicID = uploaded.PublicID
	}

	if input.Title != nil {
		post.Title = *input.Title
	}
	if input.Description != nil {
		post.Description = *input.Description
	}

	if err := s.posts.UpdateContent(ctx, post); err != nil {
		if uploaded != nil {
			// The old image is already gone; the stored post now points at it.
			log.Printf("[Posts] update of post %d failed after image replacement: %v", post.ID, err)
			if derr := s.deleteBlob(ctx, uploaded.PublicID); derr != nil {
				log.Printf("[Posts] failed to remove replacement image %s: %v", uploaded.PublicID, derr)
			}
		}
		return nil, mapStoreErr(err, "Failed to update post")
	}
	return post, nil
}

// Delete removes the image (best effort) and then the post with its
// comments and likes.
func (s *PostService) Delete(ctx context.Context, postID, requesterID uint) error {
	post, err := s.loadOwned(ctx, postID, requesterID, "delete")
	if err != nil {
		return err
	}

	if err := s.deleteBlob(ctx, post.ImagePublicID); err != nil {
		log.Printf("[Posts] failed to delete image %s of post %d: %v", post.ImagePublicID, post.ID, err)
	}

	if err := s.posts.Delete(ctx, post.ID); err != nil {
		return mapStoreErr(err, "Failed to delete post")
	}
	return nil
}

// Get returns the post and whether requesterID owns it.
func (s *PostService) Get(ctx context.Context, postID, requesterID uint) (*models.Post, bool, error) {
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, false, mapStoreErr(err, "Failed to load post")
	}
	return post, post.CreatedBy == requesterID, nil
}

func (s *PostService) ListMine(ctx context.Context, ownerID uint) ([]models.Post, error) {
	posts, err := s.posts.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, mapStoreErr(err, "Failed to list posts")
	}
	return posts, nil
}

func (s *PostService) ListAll(ctx context.Context) ([]models.Post, error) {
	posts, err := s.posts.ListAll(ctx)
	if err != nil {
		return nil, mapStoreErr(err, "Failed to list posts")
	}
	return posts, nil
}

// ToggleLike flips userID's like on the post and reports the new state.
func (s *PostService) ToggleLike(ctx context.Context, postID, userID uint) (bool, error) {
	liked, err := s.posts.ToggleLike(ctx, postID, userID)
	if err != nil {
		return false, mapStoreErr(err, "Failed to toggle like")
	}
	if liked {
		metrics.LikeToggles.WithLabelValues("liked").Inc()
	} else {
		metrics.LikeToggles.WithLabelValues("unliked").Inc()
	}
	return liked, nil
}

func (s *PostService) ListLikers(ctx context.Context, postID uint) ([]models.UserSummary, error) {
	users, err := s.posts.ListLikers(ctx, postID)
	if err != nil {
		return nil, mapStoreErr(err, "Failed to list likes")
	}
	likers := make([]models.UserSummary, len(users))
	for i, u := range users {
		likers[i] = u.Summary()
	}
	return likers, nil
}

func (s *PostService) AddComment(ctx context.Context, postID uint, author *models.User, text string) (*models.Comment, error) {
	if err := checkText(&text, "Comment text", maxCommentLen); err != nil {
		return nil, err
	}

	comment := &models.Comment{UserID: author.ID, Text: text}
	if err := s.posts.AddComment(ctx, postID, comment); err != nil {
		return nil, mapStoreErr(err, "Failed to add comment")
	}
	comment.User = *author
	comment.Populate()
	return comment, nil
}

// EditComment replaces the text of editorID's own comment and marks it edited.
func (s *PostService) EditComment(ctx context.Context, postID, commentID, editorID uint, text string) (*models.Comment, error) {
	if err := checkText(&text, "Comment text", maxCommentLen); err != nil {
		return nil, err
	}

	var edited models.Comment
	err := s.posts.UpdateComment(ctx, postID, commentID, func(c *models.Comment) error {
		if c.UserID != editorID {
			return apperror.NewForbidden("You can only edit your own comments")
		}
		c.Text = text
		c.Status = models.CommentStatusEdited
		edited = *c
		return nil
	})
	if err != nil {
		return nil, mapStoreErr(err, "Failed to edit comment")
	}
	return &edited, nil
}

func (s *PostService) DeleteComment(ctx context.Context, postID, commentID, requesterID uint) error {
	err := s.posts.RemoveComment(ctx, postID, commentID, func(c *models.Comment) error {
		if c.UserID != requesterID {
			return apperror.NewForbidden("You can only delete your own comments")
		}
		return nil
	})
	if err != nil {
		return mapStoreErr(err, "Failed to delete comment")
	}
	return nil
}

func (s *PostService) ListComments(ctx context.Context, postID uint) ([]models.Comment, error) {
	comments, err := s.posts.ListComments(ctx, postID)
	if err != nil {
		return nil, mapStoreErr(err, "Failed to list comments")
	}
	return comments, nil
}
