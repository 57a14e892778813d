package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stagelive/queue-service/internal/domain"
	"github.com/stagelive/queue-service/internal/service"
	"github.com/stagelive/queue-service/pkg/jwt"
	"github.com/stagelive/queue-service/pkg/log"
	"github.com/stagelive/queue-service/pkg/middleware"
	"github.com/stagelive/queue-service/pkg/response"
)

// Handler handles HTTP requests for the performance queue.
type Handler struct {
	queueService   service.QueueService
	authMiddleware *middleware.AuthMiddleware
	tokens         *jwt.Manager
}

// NewHandler creates a new HTTP handler.
func NewHandler(queueService service.QueueService, authMiddleware *middleware.AuthMiddleware, tokens *jwt.Manager) *Handler {
	return &Handler{
		queueService:   queueService,
		authMiddleware: authMiddleware,
		tokens:         tokens,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		rooms := api.Group("/rooms/:room")
		{
			// Public routes
			rooms.GET("/queue", h.GetQueue)
			rooms.GET("/queue/live", h.GetActiveUser)

			// Participant routes
			auth := h.authMiddleware.RequireAuth()
			rooms.POST("/queue", auth, h.JoinQueue)
			rooms.DELETE("/queue", auth, h.LeaveQueue)
			rooms.POST("/queue/ready", auth, h.MarkReady)
			rooms.POST("/queue/start", auth, h.StartPerformance)
			rooms.POST("/queue/end", auth, h.EndPerformance)

			// Moderator routes
			mod := h.authMiddleware.RequireRole(middleware.RoleModerator)
			rooms.POST("/queue/users/:user_id/call", auth, mod, h.CallUp)
			rooms.DELETE("/queue/users/:user_id", auth, mod, h.RemoveUser)
			rooms.GET("/queue/history", auth, mod, h.GetHistory)
		}
	}
}

func roomParam(c *gin.Context) (domain.RoomType, bool) {
	roomType, err := domain.ParseRoomType(c.Param("room"))
	if err != nil {
		response.BadRequest(c, err.Error())
		return "", false
	}
	return roomType, true
}

// respondError maps queue errors to HTTP responses. State conflicts and
// missing entries are expected outcomes: the client re-reads the queue and
// decides whether to retry.
func respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrUnknownRoom):
		response.NotFound(c, "unknown room")
	case errors.Is(err, domain.ErrEntryConflict):
		response.Conflict(c, err.Error())
	case domain.IsStateConflict(err):
		response.Conflict(c, err.Error())
	case errors.Is(err, domain.ErrEntryNotFound):
		response.NotFound(c, "queue entry not found")
	case errors.Is(err, domain.ErrStoreUnavailable):
		response.ServiceUnavailable(c, "queue store unavailable, retry later")
	default:
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg(fallback)
		response.InternalError(c, fallback)
	}
}

// JoinQueue puts the caller at the tail of the room's waiting line.
func (h *Handler) JoinQueue(c *gin.Context) {
	ctx := c.Request.Context()

	roomType, ok := roomParam(c)
	if !ok {
		return
	}

	userID := middleware.GetUserID(c)
	stageName := middleware.GetStageName(c)
	if userID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	entry, err := h.queueService.Join(ctx, roomType, userID, stageName)
	if err != nil {
		respondError(c, err, "failed to join queue")
		return
	}

	response.Created(c, entry)
}

// LeaveQueue removes the caller's queued entry.
func (h *Handler) LeaveQueue(c *gin.Context) {
	ctx := c.Request.Context()

	roomType, ok := roomParam(c)
	if !ok {
		return
	}

	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	if err := h.queueService.Leave(ctx, roomType, userID); err != nil {
		respondError(c, err, "failed to leave queue")
		return
	}

	response.Success(c, gin.H{"message": "left queue"})
}

// CallUp summons a queued participant to the stage.
func (h *Handler) CallUp(c *gin.Context) {
	ctx := c.Request.Context()

	roomType, ok := roomParam(c)
	if !ok {
		return
	}

	userID := c.Param("user_id")
	if err := h.queueService.CallUp(ctx, roomType, userID); err != nil {
		respondError(c, err, "failed to call up user")
		return
	}

	response.Success(c, gin.H{"message": "user called up"})
}

// MarkReady confirms the caller is present and set up to go live.
func (h *Handler) MarkReady(c *gin.Context) {
	ctx := c.Request.Context()

	roomType, ok := roomParam(c)
	if !ok {
		return
	}

	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	if err := h.queueService.MarkReady(ctx, roomType, userID); err != nil {
		respondError(c, err, "failed to mark ready")
		return
	}

	response.Success(c, gin.H{"message": "marked ready"})
}

// StartPerformance grants the caller the live slot and mints the
// video-transport join credential.
func (h *Handler) StartPerformance(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	roomType, ok := roomParam(c)
	if !ok {
		return
	}

	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	entry, err := h.queueService.StartPerformance(ctx, roomType, userID)
	if err != nil {
		respondError(c, err, "failed to start performance")
		return
	}

	token, expiresAt, err := h.tokens.GenerateStageToken(userID, entry.RoomID)
	if err != nil {
		// The live slot is already granted; surface the credential failure
		// so the client can retry minting without losing its slot.
		l.Error().Err(err).Str(log.FieldRoomID, entry.RoomID).Msg("failed to mint stage credential")
		response.InternalError(c, "failed to mint stage credential")
		return
	}

	response.Success(c, gin.H{
		"entry": entry,
		"stage_credential": domain.StageCredential{
			Token:     token,
			ExpiresAt: expiresAt,
		},
	})
}

// EndPerformance releases the caller's live (or ready) slot.
func (h *Handler) EndPerformance(c *gin.Context) {
	ctx := c.Request.Context()

	roomType, ok := roomParam(c)
	if !ok {
		return
	}

	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	if err := h.queueService.EndPerformance(ctx, roomType, userID); err != nil {
		respondError(c, err, "failed to end performance")
		return
	}

	response.Success(c, gin.H{"message": "performance ended"})
}

// RemoveUser force-removes a participant from the queue.
func (h *Handler) RemoveUser(c *gin.Context) {
	ctx := c.Request.Context()

	roomType, ok := roomParam(c)
	if !ok {
		return
	}

	userID := c.Param("user_id")
	if err := h.queueService.RemoveUser(ctx, roomType, userID); err != nil {
		respondError(c, err, "failed to remove user")
		return
	}

	response.Success(c, gin.H{"message": "user removed"})
}

// GetQueue returns the room's waiting line in call-up order.
func (h *Handler) GetQueue(c *gin.Context) {
	ctx := c.Request.Context()

	roomType, ok := roomParam(c)
	if !ok {
		return
	}

	queue, err := h.queueService.GetQueue(ctx, roomType)
	if err != nil {
		respondError(c, err, "failed to get queue")
		return
	}

	response.Success(c, gin.H{"queue": queue})
}

// GetActiveUser returns the room's live entry, or null when the stage is empty.
func (h *Handler) GetActiveUser(c *gin.Context) {
	ctx := c.Request.Context()

	roomType, ok := roomParam(c)
	if !ok {
		return
	}

	live, err := h.queueService.GetActiveUser(ctx, roomType)
	if err != nil {
		respondError(c, err, "failed to get active user")
		return
	}

	response.Success(c, gin.H{"live": live})
}

// GetHistory returns recently finished entries for moderation review.
func (h *Handler) GetHistory(c *gin.Context) {
	ctx := c.Request.Context()

	roomType, ok := roomParam(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	history, err := h.queueService.GetHistory(ctx, roomType, limit)
	if err != nil {
		respondError(c, err, "failed to get history")
		return
	}

	response.Success(c, gin.H{"history": history})
}
