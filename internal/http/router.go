// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"pickmeup/internal/http/handlers"
	"pickmeup/internal/http/middleware"
	"pickmeup/internal/infra"
)

type RouterDeps struct {
	Travels  handlers.TravelService
	Requests handlers.RequestService
	Users    interface {
		handlers.UserService
		middleware.UserResolver
	}
	Verifier infra.TokenVerifier
	Log      logrus.FieldLogger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	handlers.RegisterValidators()

	r := gin.New()
	r.Use(middleware.Recovery(deps.Log), middleware.Logging(deps.Log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api", middleware.Auth(deps.Verifier, deps.Users))

	userHandler := handlers.NewUserHandler(deps.Users, deps.Log)
	api.GET("/me", userHandler.Me)
	api.PUT("/me/device", userHandler.RegisterDevice)

	travelHandler := handlers.NewTravelHandler(deps.Travels, deps.Log)
	api.GET("/travels", travelHandler.List)
	api.POST("/travels", travelHandler.Create)
	api.GET("/travels/:id", travelHandler.Get)
	api.PUT("/travels/:id", travelHandler.Update)
	api.DELETE("/travels/:id", travelHandler.Delete)

	requestHandler := handlers.NewRequestHandler(deps.Requests, deps.Log)
	api.POST("/travels/:id/requests", requestHandler.Create)
	api.GET("/requests", requestHandler.List)
	api.GET("/requests/:id", requestHandler.Get)
	api.PUT("/requests/:id", requestHandler.Update)
	api.POST("/requests/:id/status", requestHandler.SetStatus)
	api.DELETE("/requests/:id", requestHandler.Delete)

	return r
}
