package handlers

import (
	"net/http"

	"pixelnest/internal/services"

	"github.com/gin-gonic/gin"
)

type ContactHandler struct {
	contact *services.ContactService
}

func NewContactHandler(contact *services.ContactService) *ContactHandler {
	return &ContactHandler{contact: contact}
}

func (h *ContactHandler) Submit(c *gin.Context) {
	var req services.ContactInput
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	id, err := h.contact.Submit(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Message sent successfully! We'll get back to you soon.", gin.H{"id": id})
}
