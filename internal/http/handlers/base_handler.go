// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"pickmeup/internal/http/middleware"
	"pickmeup/internal/types"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeBindError reports malformed bodies and failed binding tags as 400.
func writeBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		writeJSON(c, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: fields})
		return
	}
	writeError(c, http.StatusBadRequest, "invalid request")
}

// writeServiceError maps error kinds to status codes. Infrastructure
// failures are logged and hidden behind a generic 500.
func writeServiceError(c *gin.Context, log logrus.FieldLogger, err error) {
	switch types.KindOf(err) {
	case types.KindInvalidArgument:
		writeError(c, http.StatusBadRequest, err.Error())
	case types.KindNotFound:
		writeError(c, http.StatusNotFound, err.Error())
	case types.KindUnauthorized, types.KindForbidden:
		writeError(c, http.StatusForbidden, err.Error())
	case types.KindDomain:
		writeError(c, http.StatusConflict, err.Error())
	default:
		_ = c.Error(err)
		log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// pathID parses a positive numeric path parameter.
func pathID(c *gin.Context, name string) (types.ID, bool) {
	id := types.ParseID(c.Param(name))
	if !id.Valid() {
		writeError(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func callerID(c *gin.Context) (types.ID, bool) {
	id := middleware.CallerID(c)
	if !id.Valid() {
		writeError(c, http.StatusUnauthorized, "unknown caller")
		return 0, false
	}
	return id, true
}
