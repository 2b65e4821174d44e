package http

import "github.com/gin-gonic/gin"

// Register attaches project routes to the given router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("", h.list)
	rg.POST("", h.create)
	rg.POST("/refresh", h.refresh)
	rg.PUT("/current", h.setCurrent)
	rg.PATCH("/filters", h.setFilters)
	rg.DELETE("/error", h.clearError)
	rg.PATCH("/:id", h.update)
	rg.POST("/:id/archive", h.archive)
	rg.DELETE("/:id", h.delete)
}
