package http

import (
	"github.com/gin-gonic/gin"
	"github.com/richardliu001/pix-settlement/internal/config"
	"go.uber.org/zap"
)

func NewRouter(svc Services, rl config.RateLimitConfig, log *zap.SugaredLogger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware(log))
	if rl.RPS > 0 {
		r.Use(RateLimitMiddleware(rl.RPS, rl.Burst))
	}
	RegisterHandlers(r, svc, log)
	return r
}
