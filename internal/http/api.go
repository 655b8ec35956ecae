package http

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"accountd/internal/domain"
	"accountd/internal/repository"
	"accountd/internal/service"
	"accountd/internal/storage"
	"accountd/internal/token"
)

const avatarURLTTL = 15 * time.Minute

// Handler wires HTTP routes to domain services.
type Handler struct {
	auth      service.AuthService
	users     repository.UserRepository
	storage   storage.Service
	issuer    token.Issuer
	bucket    string
	keyPrefix string
}

func NewHandler(auth service.AuthService, users repository.UserRepository, store storage.Service, issuer token.Issuer, bucket, keyPrefix string) *Handler {
	return &Handler{
		auth:      auth,
		users:     users,
		storage:   store,
		issuer:    issuer,
		bucket:    bucket,
		keyPrefix: keyPrefix,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/sign-up", h.signUp)
			auth.POST("/sign-in", h.signIn)
			auth.POST("/send-validation-email", h.sendValidationEmail)
			auth.POST("/validate-email", h.validateEmail)
			auth.GET("/exists", h.userExists)
			auth.POST("/change-password", h.changePassword)
			auth.POST("/forgot-password", h.forgotPassword)
			auth.POST("/change-forgotten-password", h.changeForgottenPassword)
		}

		profile := api.Group("/profile", h.authRequired())
		{
			profile.POST("/avatar", h.uploadAvatar)
			profile.GET("/avatar", h.avatarURL)
		}

		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

const claimsKey = "authClaims"

// authRequired parses the bearer token and stores its claims in the request context.
func (h *Handler) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := h.issuer.Parse(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

type signUpRequest struct {
	Email          string `json:"email" binding:"required,email"`
	Username       string `json:"username" binding:"required,min=5,max=50"`
	FirstName      string `json:"first_name" binding:"required"`
	MiddleName     string `json:"middle_name"`
	LastName       string `json:"last_name" binding:"required"`
	Address        string `json:"address"`
	PhoneNumber    string `json:"phone_number"`
	Password       string `json:"password" binding:"required,min=8"`
	NewsSubscribed bool   `json:"news_subscribed"`
}

type signInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type validateEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
	Pin   int    `json:"pin" binding:"required"`
}

type changePasswordRequest struct {
	Username    string `json:"username" binding:"required"`
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

type forgotPasswordRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Pin      int    `json:"pin"`
	Password string `json:"password" binding:"required,min=8"`
}

func (h *Handler) signUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	jwt, err := h.auth.SignUp(c.Request.Context(), service.SignUpRequest{
		Email:          req.Email,
		Username:       req.Username,
		FirstName:      req.FirstName,
		MiddleName:     req.MiddleName,
		LastName:       req.LastName,
		Address:        req.Address,
		PhoneNumber:    req.PhoneNumber,
		Password:       req.Password,
		NewsSubscribed: req.NewsSubscribed,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": jwt})
}

func (h *Handler) signIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	jwt, err := h.auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": jwt})
}

func (h *Handler) sendValidationEmail(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.auth.SendValidationEmail(c.Request.Context(), req.Email); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) validateEmail(c *gin.Context) {
	var req validateEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.auth.ValidateEmail(c.Request.Context(), req.Email, req.Pin); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) userExists(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}

	exists, err := h.auth.UserExists(c.Request.Context(), email)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": exists})
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.auth.ChangePassword(c.Request.Context(), req.Username, req.OldPassword, req.NewPassword)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (h *Handler) forgotPassword(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.auth.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) changeForgottenPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.auth.ChangeForgottenPassword(c.Request.Context(), req.Email, req.Pin, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (h *Handler) uploadAvatar(c *gin.Context) {
	if h.storage == nil || h.bucket == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage service not configured"})
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	key := h.keyPrefix + "/" + uuid.NewString() + strings.ToLower(filepath.Ext(fileHeader.Filename))
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := h.storage.PutObject(c.Request.Context(), h.bucket, key, contentType, file); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	oldKey := user.AvatarKey
	user.AvatarKey = key
	if _, err := h.users.Save(c.Request.Context(), user); err != nil {
		h.fail(c, err)
		return
	}

	var warnings []string
	if oldKey != "" {
		if err := h.storage.DeleteObject(c.Request.Context(), h.bucket, oldKey); err != nil {
			warnings = append(warnings, "delete previous avatar: "+err.Error())
		}
	}

	resp := gin.H{"avatar_key": key}
	if len(warnings) > 0 {
		resp["warnings"] = warnings
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) avatarURL(c *gin.Context) {
	if h.storage == nil || h.bucket == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage service not configured"})
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	if user.AvatarKey == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no avatar set"})
		return
	}

	url, err := h.storage.GetObjectURL(c.Request.Context(), h.bucket, user.AvatarKey, avatarURLTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *Handler) currentUser(c *gin.Context) (*domain.User, bool) {
	value, exists := c.Get(claimsKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token claims"})
		return nil, false
	}
	claims := value.(*token.Claims)

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token subject"})
		return nil, false
	}

	user, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return user, true
}

// fail maps the domain error taxonomy to HTTP status codes.
func (h *Handler) fail(c *gin.Context, err error) {
	c.JSON(statusForError(err), gin.H{"error": err.Error()})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrChallengeNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrEmailAlreadyExists),
		errors.Is(err, domain.ErrUsernameAlreadyExists),
		errors.Is(err, domain.ErrInvalidPin):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidPassword):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrAccountNotConfirmed):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
