package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/photolab/backend/internal/infrastructure/logger"
	"github.com/photolab/backend/internal/infrastructure/roes"
	"github.com/photolab/backend/internal/interfaces/http/dto"
	"github.com/photolab/backend/internal/interfaces/http/middleware"
)

// ROESChannel is the server side of the ROES script channel.
// Sessions belong to the studio that first used them.
type ROESChannel interface {
	Deliver(owner uuid.UUID, e roes.Event) error
	Pending(owner uuid.UUID, session string) ([]roes.Event, error)
}

// ROESHandler bridges the embedded ROES script and the event bus
type ROESHandler struct {
	BaseHandler
	bus ROESChannel
}

// NewROESHandler creates a new ROESHandler
func NewROESHandler(bus ROESChannel) *ROESHandler {
	return &ROESHandler{bus: bus}
}

// PushEvent handles POST /api/v1/roes/events. The script reports events such
// as roes:cart-captured; they are handed to whoever waits on the session.
func (h *ROESHandler) PushEvent(c *gin.Context) {
	studioID, err := getStudioID(c)
	if err != nil {
		h.Unauthorized(c, "Studio could not be determined")
		return
	}

	var req dto.ROESEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	err = h.bus.Deliver(studioID, roes.Event{
		Name:    req.Name,
		Session: req.Session,
		Payload: req.Payload,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	logger.GetGinLogger(c).Debug("ROES event received",
		zap.String("event", req.Name),
		zap.String("session", req.Session),
	)
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(nil))
}

// PendingEvents handles GET /api/v1/roes/events/pending?session=.
// Returned events are removed from the queue. The first poll of a new
// session binds it to the caller's studio.
func (h *ROESHandler) PendingEvents(c *gin.Context) {
	studioID, err := getStudioID(c)
	if err != nil {
		h.Unauthorized(c, "Studio could not be determined")
		return
	}
	session := c.Query("session")
	if session == "" {
		h.BadRequest(c, "session is required")
		return
	}
	events, err := h.bus.Pending(studioID, session)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, events)
}
