package handlers

import (
	"errors"
	"log"
	"mime/multipart"
	"net/http"
	"strings"

	"pixelnest/internal/apperror"
	"pixelnest/internal/middleware"
	"pixelnest/internal/models"
	"pixelnest/internal/services"
	"pixelnest/internal/utils"

	"github.com/gin-gonic/gin"
)

// respondOK writes the success envelope merged with data.
func respondOK(c *gin.Context, status int, message string, data gin.H) {
	body := gin.H{"success": true, "message": message}
	for k, v := range data {
		body[k] = v
	}
	c.JSON(status, body)
}

// respondError maps err onto the error envelope. Unclassified errors become
// 500s whose detail is only shown in debug mode.
func respondError(c *gin.Context, err error) {
	ae, ok := apperror.From(err)
	if !ok {
		ae = apperror.NewInternal("Internal server error", err)
	}

	status := ae.StatusCode()
	detail := ae.Message
	if status >= http.StatusInternalServerError {
		log.Printf("[HTTP] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		if gin.IsDebugging() && ae.Err != nil {
			detail = ae.Err.Error()
		}
	}

	c.JSON(status, gin.H{
		"success": false,
		"message": ae.Message,
		"error":   detail,
	})
}

func bindJSON(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apperror.NewValidation("Invalid request body")
	}
	return nil
}

// pathID parses a numeric path parameter. Malformed ids are reported as
// missing resources.
func pathID(c *gin.Context, name, resource string) (uint, error) {
	id, ok := utils.ParseID(c.Param(name))
	if !ok {
		return 0, apperror.NewNotFound(resource + " not found")
	}
	return id, nil
}

func currentUser(c *gin.Context) (*models.User, error) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return nil, apperror.NewUnauthorized("Authentication required", nil)
	}
	return user, nil
}

// formValue returns the form field, or nil when it was not sent.
func formValue(c *gin.Context, key string) *string {
	v, ok := c.GetPostForm(key)
	if !ok {
		return nil
	}
	return &v
}

// optionalFormValue is formValue that also treats a blank field as absent.
func optionalFormValue(c *gin.Context, key string) *string {
	v := formValue(c, key)
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	return v
}

// imageFromForm opens the uploaded image, if any. The caller closes the
// returned file.
func imageFromForm(c *gin.Context, key string) (*services.ImageFile, multipart.File, error) {
	fh, err := c.FormFile(key)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, apperror.NewValidation("Invalid image upload")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, nil, apperror.NewInternal("Failed to read uploaded image", err)
	}
	return &services.ImageFile{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Reader:      f,
	}, f, nil
}
