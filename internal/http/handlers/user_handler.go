// README: Caller profile and push device registration.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"pickmeup/internal/modules/user"
	"pickmeup/internal/types"
)

type UserService interface {
	Get(ctx context.Context, id types.ID) (*user.User, error)
	RegisterDevice(ctx context.Context, id types.ID, token string) error
}

type UserHandler struct {
	users UserService
	log   logrus.FieldLogger
}

func NewUserHandler(svc UserService, log logrus.FieldLogger) *UserHandler {
	return &UserHandler{users: svc, log: log.WithField("handler", "user")}
}

type meJSON struct {
	ID         types.ID `json:"id"`
	Email      string   `json:"email"`
	FirstName  string   `json:"first_name"`
	LastName   string   `json:"last_name"`
	Nominative string   `json:"nominative"`
	HasDevice  bool     `json:"has_device"`
}

func (h *UserHandler) Me(c *gin.Context) {
	id, ok := callerID(c)
	if !ok {
		return
	}
	u, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, meJSON{
		ID:         u.ID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Nominative: u.Nominative(),
		HasDevice:  u.DeviceToken != "",
	})
}

type deviceBody struct {
	Token string `json:"token" binding:"notblank"`
}

func (h *UserHandler) RegisterDevice(c *gin.Context) {
	id, ok := callerID(c)
	if !ok {
		return
	}
	var body deviceBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeBindError(c, err)
		return
	}
	if err := h.users.RegisterDevice(c.Request.Context(), id, body.Token); err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
