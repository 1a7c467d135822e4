package server

import (
	"sui-signer/internal/handler"
	"sui-signer/pkg/monitor"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewHTTPRouter 初始化并返回一个 Gin Engine
func NewHTTPRouter(apdu *handler.APDUHandler, version string) *gin.Engine {
	monitor.Init()

	r := gin.New()
	r.Use(gin.Recovery(), monitor.PrometheusMiddleware())

	r.GET("/health", handler.Health(version))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/apdu", apdu.Exchange)

	return r
}
