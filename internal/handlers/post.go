package handlers

import (
	"net/http"

	"pixelnest/internal/services"

	"github.com/gin-gonic/gin"
)

// PostHandler serves posts and their like and comment sub-resources.
type PostHandler struct {
	posts *services.PostService
}

func NewPostHandler(posts *services.PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

func (h *PostHandler) Create(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}

	image, file, err := imageFromForm(c, "imageFile")
	if err != nil {
		respondError(c, err)
		return
	}
	if file != nil {
		defer file.Close()
	}

	input := services.PostInput{
		Title:       formValue(c, "title"),
		Description: formValue(c, "description"),
	}
	post, err := h.posts.Create(c.Request.Context(), user, input, image)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "Post created successfully", gin.H{"post": post})
}

func (h *PostHandler) Edit(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	postID, err := pathID(c, "id", "Post")
	if err != nil {
		respondError(c, err)
		return
	}

	image, file, err := imageFromForm(c, "imageFile")
	if err != nil {
		respondError(c, err)
		return
	}
	if file != nil {
		defer file.Close()
	}

	input := services.PostInput{
		Title:       optionalFormValue(c, "title"),
		Description: optionalFormValue(c, "description"),
	}
	post, err := h.posts.Edit(c.Request.Context(), postID, user.ID, input, image)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Post updated successfully", gin.H{"post": post})
}

func (h *PostHandler) Delete(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	postID, err := pathID(c, "id", "Post")
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.posts.Delete(c.Request.Context(), postID, user.ID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Post deleted successfully", nil)
}

func (h *PostHandler) Get(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	postID, err := pathID(c, "id", "Post")
	if err != nil {
		respondError(c, err)
		return
	}

	post, isOwner, err := h.posts.Get(c.Request.Context(), postID, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Post fetched successfully", gin.H{
		"post":    post,
		"isOwner": isOwner,
	})
}

func (h *PostHandler) ListMine(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}

	posts, err := h.posts.ListMine(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Posts fetched successfully", gin.H{"posts": posts})
}

func (h *PostHandler) ListAll(c *gin.Context) {
	posts, err := h.posts.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Posts fetched successfully", gin.H{"posts": posts})
}
