package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *PostHandler) ToggleLike(c *gin.Context) {
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

	liked, err := h.posts.ToggleLike(c.Request.Context(), postID, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Post unliked"
	if liked {
		message = "Post liked"
	}
	respondOK(c, http.StatusOK, message, gin.H{"liked": liked})
}

func (h *PostHandler) ListLikers(c *gin.Context) {
	postID, err := pathID(c, "id", "Post")
	if err != nil {
		respondError(c, err)
		return
	}

	users, err := h.posts.ListLikers(c.Request.Context(), postID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Likes fetched successfully", gin.H{"users": users})
}
