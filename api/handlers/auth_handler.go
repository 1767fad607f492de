// api/handlers/auth_handler.go
package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Annany2002/nebula-workspace/api/middleware"
	"github.com/Annany2002/nebula-workspace/api/models"
	"github.com/Annany2002/nebula-workspace/config"
	"github.com/Annany2002/nebula-workspace/internal/auth"
	"github.com/Annany2002/nebula-workspace/internal/logger"
	"github.com/Annany2002/nebula-workspace/internal/storage"
)

var (
	customLog = logger.NewLogger()
)

// AuthHandler holds dependencies for authentication handlers.
type AuthHandler struct {
	DB  *sql.DB
	Cfg *config.Config
}

// NewAuthHandler creates a new AuthHandler with dependencies.
func NewAuthHandler(db *sql.DB, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		DB:  db,
		Cfg: cfg,
	}
}

// Signup handles user registration requests.
func (h *AuthHandler) Signup(c *gin.Context) {
	log := logger.FromContext(c.Request.Context(), customLog)

	var req models.SignupRequest
	if !bindJSON(c, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}

	userID, err := storage.CreateUser(c.Request.Context(), h.DB, uuid.NewString(), strings.TrimSpace(req.Username), email, hashedPassword)
	if err != nil {
		log.Warnf("Handler: Failed to create user %s: %v", email, err)
		_ = c.Error(err)
		return
	}

	log.Infof("Handler: Registered user %s", userID)
	c.JSON(http.StatusCreated, gin.H{"user_id": userID, "message": "User registered successfully"})
}

// Login handles user login requests and issues JWT on success.
func (h *AuthHandler) Login(c *gin.Context) {
	log := logger.FromContext(c.Request.Context(), customLog)

	var req models.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := storage.FindUserByEmail(c.Request.Context(), h.DB, email)
	if err != nil {
		log.Warnf("Handler: Login failed for email %s: %v", email, err)
		if errors.Is(err, storage.ErrUserNotFound) {
			err = storage.ErrInvalidCredentials
		}
		_ = c.Error(err)
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		log.Warnf("Handler: Login failed for email %s: invalid password", email)
		_ = c.Error(storage.ErrInvalidCredentials)
		return
	}

	tokenString, err := auth.GenerateJWT(user.UserId, h.Cfg.JWTSecret, h.Cfg.JWTExpiration)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, models.LoginResponse{Message: "Logged in successfully", User: *user, Token: tokenString})
}

// Me returns the authenticated user's account.
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := storage.FindUserByUserId(c.Request.Context(), h.DB, currentUser(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// currentUser returns the id AuthMiddleware stored on the context.
func currentUser(c *gin.Context) string {
	return c.GetString(middleware.UserIDKey)
}

// bindJSON binds the request body into obj, attaching a bind error on failure.
func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		logger.FromContext(c.Request.Context(), customLog).Warnf("Handler: Binding error on %s: %v", c.FullPath(), err)
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return false
	}
	return true
}
