package handlers

import (
	"net/http"
	"time"

	"pixelnest/internal/apperror"
	"pixelnest/internal/middleware"
	"pixelnest/internal/services"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	auth           *services.AuthService
	cookieLifetime time.Duration
	secureCookie   bool
}

// NewAuthHandler builds the auth endpoints. secureCookie marks the session
// cookie Secure and SameSite=None so a separately hosted client can send it.
func NewAuthHandler(auth *services.AuthService, cookieLifetime time.Duration, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		auth:           auth,
		cookieLifetime: cookieLifetime,
		secureCookie:   secureCookie,
	}
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) setTokenCookie(c *gin.Context, token string, maxAge int) {
	if h.secureCookie {
		c.SetSameSite(http.SameSiteNoneMode)
	} else {
		c.SetSameSite(http.SameSiteLaxMode)
	}
	c.SetCookie(middleware.TokenCookie, token, maxAge, "/", "", h.secureCookie, true)
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	user, err := h.auth.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "User registered successfully", gin.H{"user": user})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	token, user, err := h.auth.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		// an unknown email is a failed login, not a missing resource
		if ae, ok := apperror.From(err); ok && ae.Type == apperror.NotFound {
			err = apperror.New(apperror.InvalidCredential, ae.Message, nil)
		}
		respondError(c, err)
		return
	}

	h.setTokenCookie(c, token, int(h.cookieLifetime.Seconds()))
	respondOK(c, http.StatusOK, "Login successful", gin.H{
		"token": token,
		"user":  user,
	})
}

// Logout expires the cookie. The token itself stays valid until it expires.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.setTokenCookie(c, "", -1)
	respondOK(c, http.StatusOK, "Logged out successfully", nil)
}

func (h *AuthHandler) Profile(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "User profile fetched successfully", gin.H{"user": user})
}
