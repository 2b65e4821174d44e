package http

import "github.com/gin-gonic/gin"

// Register mounts the auth routes. throttle guards the credential endpoints.
func (h *Handler) Register(rg *gin.RouterGroup, throttle gin.HandlerFunc) {
	rg.GET("/state", h.GetState)
	rg.POST("/sign-in", throttle, h.SignIn)
	rg.POST("/sign-up", throttle, h.SignUp)
	rg.POST("/sign-out", h.SignOut)
	rg.PATCH("/profile", h.UpdateProfile)
	rg.DELETE("/error", h.ClearError)
}
