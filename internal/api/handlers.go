package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fileforge/internal/auth"
	"fileforge/internal/jobs"
	"fileforge/internal/models"
	"fileforge/internal/storage"
	"fileforge/internal/store"
)

// Handler contains the HTTP handlers.
type Handler struct {
	dispatcher *jobs.Dispatcher
	status     *jobs.StatusService
	history    *jobs.HistoryService
	cleanup    *jobs.CleanupService
	store      store.Store
	storage    *storage.Storage
	auth       *auth.Service
	limits     uploadLimits
	retention  int
	log        zerolog.Logger
}

// NewHandler creates the API handler set.
func NewHandler(
	dispatcher *jobs.Dispatcher,
	status *jobs.StatusService,
	history *jobs.HistoryService,
	cleanup *jobs.CleanupService,
	s store.Store,
	files *storage.Storage,
	authService *auth.Service,
	maxUploadBytes int64,
	maxUploadFiles int,
	retentionDays int,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		status:     status,
		history:    history,
		cleanup:    cleanup,
		store:      s,
		storage:    files,
		auth:       authService,
		limits:     uploadLimits{maxBytes: maxUploadBytes, maxFiles: maxUploadFiles},
		retention:  retentionDays,
		log:        log,
	}
}

// dispatchRequest runs the shared intake-then-dispatch flow for the four
// operation endpoints.
func (h *Handler) dispatchRequest(c *gin.Context, opts jobs.Options) {
	if err := opts.Validate(); err != nil {
		respondError(c, err)
		return
	}
	inputs, err := intakeFiles(c, h.storage, h.limits)
	if err != nil {
		respondError(c, err)
		return
	}
	receipt, err := h.dispatcher.Dispatch(c.Request.Context(), currentUserID(c), inputs, opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "files queued for processing",
		"batchId": receipt.BatchID,
		"jobs":    receipt.Jobs,
	})
}

// Convert queues uploaded files for format conversion.
func (h *Handler) Convert(c *gin.Context) {
	h.dispatchRequest(c, jobs.ConversionOptions{
		TargetFormat: c.PostForm("targetFormat"),
	})
}

// Compress queues uploaded files for compression.
func (h *Handler) Compress(c *gin.Context) {
	h.dispatchRequest(c, jobs.CompressionOptions{
		Level:           postFormOr(c, "compressionLevel", "medium"),
		PreserveQuality: postFormBool(c, "preserveQuality", true),
		RemoveMetadata:  postFormBool(c, "removeMetadata", false),
	})
}

// ExtractText queues uploaded files for text extraction.
func (h *Handler) ExtractText(c *gin.Context) {
	h.dispatchRequest(c, jobs.ExtractionOptions{
		Mode:            postFormOr(c, "extractionMode", "auto"),
		IncludeMetadata: postFormBool(c, "includeMetadata", true),
		Language:        postFormOr(c, "language", "auto"),
	})
}

// ExtractArchive queues uploaded archives for extraction.
func (h *Handler) ExtractArchive(c *gin.Context) {
	h.dispatchRequest(c, jobs.ArchiveOptions{
		ExtractPath:       c.PostForm("extractPath"),
		OverwriteExisting: postFormBool(c, "overwriteExisting", false),
	})
}

// GetJobStatus returns the current snapshot of one job.
func (h *Handler) GetJobStatus(c *gin.Context) {
	snapshot, err := h.status.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": snapshot})
}

// ListHistory returns the caller's processing history.
func (h *Handler) ListHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := store.HistoryFilter{
		UserID:        currentUserID(c),
		OperationType: models.OperationType(c.Query("operation")),
		Status:        models.Status(c.Query("status")),
		Limit:         limit,
		Offset:        offset,
	}
	records, err := h.history.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"history": records,
			"total":   len(records),
			"limit":   limit,
			"offset":  offset,
		},
	})
}

// HistoryStats returns aggregate counters over the user's history.
func (h *Handler) HistoryStats(c *gin.Context) {
	stats, err := h.history.Stats(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": stats})
}

// GetHistory returns one history record.
func (h *Handler) GetHistory(c *gin.Context) {
	record, err := h.history.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if record.UserID != "" && record.UserID != currentUserID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "history record not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": record})
}

// DeleteHistory removes one history record with its files.
func (h *Handler) DeleteHistory(c *gin.Context) {
	record, err := h.history.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if record.UserID != "" && record.UserID != currentUserID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "history record not found"})
		return
	}
	if err := h.history.Delete(c.Request.Context(), record.ID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "history record deleted"})
}

// CleanupHistory deletes the caller's completed records older than the
// requested number of days.
func (h *Handler) CleanupHistory(c *gin.Context) {
	days := h.retention
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a non-negative integer"})
			return
		}
		days = parsed
	}
	deleted, err := h.cleanup.RunRetention(c.Request.Context(), days, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "cleanup completed",
		"deleted": deleted,
		"days":    days,
	})
}

type signupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Signup registers a new user and returns a token.
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username, email and password are required"})
		return
	}
	if len(req.Password) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 8 characters"})
		return
	}
	email := strings.ToLower(req.Email)
	if _, err := h.store.GetUserByEmail(c.Request.Context(), email); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}
	if _, err := h.store.GetUserByUsername(c.Request.Context(), req.Username); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	user := &models.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := h.store.CreateUser(c.Request.Context(), user); err != nil {
		respondError(c, err)
		return
	}
	token, err := h.auth.IssueToken(user.ID, user.Username)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "token": token, "user": user})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates a user and returns a token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}
	user, err := h.store.GetUserByEmail(c.Request.Context(), strings.ToLower(req.Email))
	if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	token, err := h.auth.IssueToken(user.ID, user.Username)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": token, "user": user})
}

// Logout acknowledges the request. Tokens are stateless, the client
// discards its copy.
func (h *Handler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logout successful"})
}

// Me returns the authenticated user.
func (h *Handler) Me(c *gin.Context) {
	user, err := h.store.GetUserByID(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func postFormOr(c *gin.Context, key, fallback string) string {
	if v := c.PostForm(key); v != "" {
		return v
	}
	return fallback
}

func postFormBool(c *gin.Context, key string, fallback bool) bool {
	v := c.PostForm(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// respondError maps service errors to HTTP statuses.
func respondError(c *gin.Context, err error) {
	var verr *jobs.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
