package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Leganyst/consultation-calendar/internal/config"
)

// NewRouter собирает gin-движок: recovery, access-лог, CORS и маршруты
// календарного контроллера.
func NewRouter(cfg *config.Config, ctrl *CalendarController, log *zap.Logger) *gin.Engine {
	if !cfg.IsLocal() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(log), CORS())

	ctrl.RegisterRoutes(router)
	return router
}
