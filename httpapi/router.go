package httpapi

import (
	"courier/auth"

	"github.com/gin-gonic/gin"
)

// NewRouter mounts the API. Auth endpoints are public; everything else
// sits behind RequireSession.
func NewRouter(h *Handlers, tokens *auth.TokenManager) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", h.Register)
	authGroup.POST("/login", h.Login)
	authGroup.GET("/verify-email/:token", h.VerifyEmail)

	secured := api.Group("")
	secured.Use(RequireSession(tokens))

	secured.GET("/users/search", h.SearchAccounts)
	secured.PATCH("/users/me", h.UpdateProfile)
	secured.DELETE("/users/me", h.DeactivateAccount)

	secured.POST("/conversations", h.CreateConversation)
	secured.GET("/conversations", h.ListConversations)
	secured.GET("/conversations/:id", h.GetConversation)
	secured.DELETE("/conversations/:id", h.DeleteConversation)
	secured.POST("/conversations/:id/messages", h.SendMessage)
	secured.GET("/conversations/:id/messages", h.ListMessages)

	secured.PATCH("/messages/:id", h.UpdateMessage)
	secured.DELETE("/messages/:id", h.DeleteMessage)

	return r
}
