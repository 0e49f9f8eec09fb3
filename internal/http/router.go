package api

import (
	stdhttp "net/http"

	intconfig "transferbook/internal/config"
	h "transferbook/internal/http/handlers"
	"transferbook/internal/http/middleware"
	"transferbook/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Deps struct {
	Sessions *services.SessionService
	Auth     middleware.SessionAuth
	Logger   *zap.Logger
}

func NewRouter(env intconfig.Env, deps Deps) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	origins := env.AllowedOrigins()

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(log), gin.Recovery(), middleware.CORS(origins))

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Warn("failed to set trusted proxies", zap.Error(err))
	}
	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	sh := h.SessionHandler{
		Sessions: deps.Sessions,
		Auth:     deps.Auth,
		Log:      log,
		Upgrader: h.NewUpgrader(origins),
	}

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/routes", h.Routes)
		api.GET("/search", sh.Search)

		api.POST("/sessions", sh.Create)

		s := api.Group("/sessions/:id", deps.Auth.RequireSession(), sh.LoadSession())
		s.GET("", sh.Get)
		s.DELETE("", sh.Delete)
		s.GET("/ws", sh.Stream)

		s.PUT("/pickup", sh.SetPickup)
		s.PUT("/dropoff", sh.SetDropoff)
		s.POST("/stops", sh.AddStop)
		s.PUT("/stops/:index", sh.UpdateStop)
		s.DELETE("/stops/:index", sh.RemoveStop)
		s.PUT("/schedule", sh.SetSchedule)
		s.PUT("/passengers", sh.SetPassengers)
		s.PUT("/vehicle", sh.SelectVehicle)

		s.POST("/validate", sh.ValidateField)
		s.DELETE("/errors/:field", sh.ClearFieldError)

		s.POST("/next", sh.Next)
		s.POST("/goto", sh.GoTo)
		s.POST("/dismiss-success", sh.DismissSuccess)
		s.POST("/fare", sh.EstimateFare)
		s.POST("/booking", sh.CreateBooking)
		s.POST("/reset", sh.Reset)

		s.GET("/search/:field", sh.FieldState)
		s.POST("/search/:field", sh.QueryField)
		s.DELETE("/search/:field", sh.ClearField)
		s.POST("/search/:field/select", sh.SelectSuggestion)

		s.GET("/receipt", sh.Receipt)
		s.GET("/confirmation.pdf", sh.ConfirmationPDF)
		s.GET("/invoice.pdf", sh.InvoicePDF)
	}

	h.SetRouter(r)
	return r
}
