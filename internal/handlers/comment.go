package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// commentRequest reads the body from "comment"; "text" is accepted too.
type commentRequest struct {
	Comment string `json:"comment"`
	Text    string `json:"text"`
}

func (r commentRequest) body() string {
	if r.Comment != "" {
		return r.Comment
	}
	return r.Text
}

func (h *PostHandler) AddComment(c *gin.Context) {
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
	var req commentRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	comment, err := h.posts.AddComment(c.Request.Context(), postID, user, req.body())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "Comment added successfully", gin.H{"comment": comment})
}

// commentPath parses the :id/:commentId pair.
func commentPath(c *gin.Context) (uint, uint, error) {
	postID, err := pathID(c, "id", "Post")
	if err != nil {
		return 0, 0, err
	}
	commentID, err := pathID(c, "commentId", "Comment")
	if err != nil {
		return 0, 0, err
	}
	return postID, commentID, nil
}

func (h *PostHandler) EditComment(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	postID, commentID, err := commentPath(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var req commentRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	comment, err := h.posts.EditComment(c.Request.Context(), postID, commentID, user.ID, req.body())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Comment updated successfully", gin.H{"comment": comment})
}

func (h *PostHandler) DeleteComment(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	postID, commentID, err := commentPath(c)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.posts.DeleteComment(c.Request.Context(), postID, commentID, user.ID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Comment deleted successfully", nil)
}

// ListComments is public.
func (h *PostHandler) ListComments(c *gin.Context) {
	postID, err := pathID(c, "id", "Post")
	if err != nil {
		respondError(c, err)
		return
	}

	comments, err := h.posts.ListComments(c.Request.Context(), postID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Comments fetched successfully", gin.H{"comments": comments})
}
