package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"study-habit-api/internal/auth"
	"study-habit-api/internal/cache"
	"study-habit-api/internal/models"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RegisterRequest represents the sign-up payload
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"full_name"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token   string `json:"token"`
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// UpdateProfileRequest carries the editable profile fields
type UpdateProfileRequest struct {
	FullName  *string `json:"full_name"`
	AvatarURL *string `json:"avatar_url"`
}

// Register handles POST /api/register
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var count int64
	if err := h.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		dbError(c, err, "", "Failed to check email")
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.WithError(err).Error("hash password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	user := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(req.FullName),
	}
	if err := h.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
			return
		}
		dbError(c, err, "", "Failed to create user")
		return
	}

	h.respondWithToken(c, http.StatusCreated, user, "Registration successful")
}

// Login handles POST /api/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request. Email and password are required.",
		})
		return
	}

	var user models.User
	err := h.db.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error
	if err == nil {
		err = auth.CheckPassword(user.PasswordHash, req.Password)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": auth.ErrInvalidCredentials.Error()})
			return
		}
		dbError(c, err, "", "Failed to log in")
		return
	}

	h.respondWithToken(c, http.StatusOK, user, "Login successful")
}

func (h *Handler) respondWithToken(c *gin.Context, status int, user models.User, message string) {
	token, err := h.tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		log.WithError(err).Error("generate token")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate token",
		})
		return
	}

	c.JSON(status, LoginResponse{
		Token:   token,
		UserID:  user.ID,
		Email:   user.Email,
		Message: message,
	})
}

// GetProfile handles GET /api/profile
func (h *Handler) GetProfile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	key := cache.MakeKey(userID, cache.Profile, nil)
	user, err := cache.Fetch(c.Request.Context(), h.cache, key, cache.ListTTL, func(ctx context.Context) (models.User, error) {
		var u models.User
		err := h.db.WithContext(ctx).Where("id = ?", userID).First(&u).Error
		return u, err
	})
	if err != nil {
		dbError(c, err, "Profile not found", "Failed to fetch profile")
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateProfile handles PUT /api/profile. Profile changes are account-level,
// so every cached result for the user is dropped.
func (h *Handler) UpdateProfile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.db.Where("id = ?", userID).First(&user).Error; err != nil {
		dbError(c, err, "Profile not found", "Failed to fetch profile")
		return
	}
	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*req.AvatarURL)
	}
	if err := h.db.Save(&user).Error; err != nil {
		dbError(c, err, "Profile not found", "Failed to update profile")
		return
	}

	removed := h.cache.ClearForPrefix(userID)
	log.WithFields(log.Fields{"user": userID, "removed": removed}).Debug("profile updated, user cache cleared")

	c.JSON(http.StatusOK, user)
}
