// README: Pick-up request handlers: create/edit, accept/reject, delete and reads.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"pickmeup/internal/modules/pickup"
	"pickmeup/internal/types"
)

type RequestService interface {
	CreateOrEditRequest(ctx context.Context, p pickup.EditParams) (types.ID, error)
	SetStatus(ctx context.Context, p pickup.StatusParams) error
	DeleteRequest(ctx context.Context, requestID, userID types.ID) error
	GetRequest(ctx context.Context, id types.ID) (*pickup.Request, error)
	ListRequests(ctx context.Context, p pickup.ListParams) (*pickup.ListResult, error)
}

type RequestHandler struct {
	requests RequestService
	log      logrus.FieldLogger
}

func NewRequestHandler(svc RequestService, log logrus.FieldLogger) *RequestHandler {
	return &RequestHandler{requests: svc, log: log.WithField("handler", "request")}
}

// Create handles POST /api/travels/:id/requests.
func (h *RequestHandler) Create(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	travelID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body requestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeBindError(c, err)
		return
	}
	id, err := h.requests.CreateOrEditRequest(c.Request.Context(), pickup.EditParams{
		UserID:  userID,
		Request: pickup.Request{TravelID: travelID, Location: body.Location.toLocation()},
	})
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"id": id, "status": types.RequestPending})
}

// Update handles PUT /api/requests/:id; only the pick-up point can change.
func (h *RequestHandler) Update(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body requestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeBindError(c, err)
		return
	}
	existing, err := h.requests.GetRequest(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	_, err = h.requests.CreateOrEditRequest(c.Request.Context(), pickup.EditParams{
		UserID:  userID,
		Request: pickup.Request{ID: id, TravelID: existing.TravelID, Location: body.Location.toLocation()},
	})
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"id": id})
}

func (h *RequestHandler) SetStatus(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body statusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeBindError(c, err)
		return
	}
	err := h.requests.SetStatus(c.Request.Context(), pickup.StatusParams{RequestID: id, UserID: userID, Status: body.Status})
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"id": id, "status": body.Status})
}

func (h *RequestHandler) Delete(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.requests.DeleteRequest(c.Request.Context(), id, userID); err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RequestHandler) Get(c *gin.Context) {
	if _, ok := callerID(c); !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := h.requests.GetRequest(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, toRequestJSON(r))
}

type listRequestsQuery struct {
	TravelID int64 `form:"travel_id" binding:"omitempty,min=1"`
	UserID   int64 `form:"user_id" binding:"omitempty,min=1"`
}

func (h *RequestHandler) List(c *gin.Context) {
	if _, ok := callerID(c); !ok {
		return
	}
	var q listRequestsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeBindError(c, err)
		return
	}
	res, err := h.requests.ListRequests(c.Request.Context(), pickup.ListParams{TravelID: types.ID(q.TravelID), UserID: types.ID(q.UserID)})
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, toRequestListJSON(res))
}
