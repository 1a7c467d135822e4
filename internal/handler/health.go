package handler

import (
	"sui-signer/internal/handler/response"

	"github.com/gin-gonic/gin"
)

// Health 返回服务状态
func Health(version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, gin.H{
			"status":  "UP",
			"version": version,
			"service": "sui-signer",
		})
	}
}
