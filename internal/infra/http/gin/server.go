package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"skillswap/internal/infra/config"
	"skillswap/internal/infra/obs"
)

type AuthHTTP interface {
	Register(c *gin.Context)
	Login(c *gin.Context)
	Me(c *gin.Context)
	UpdateMe(c *gin.Context)
}

type ListingHTTP interface {
	Create(c *gin.Context)
	Search(c *gin.Context)
	Delete(c *gin.Context)
}

type SwapHTTP interface {
	Propose(c *gin.Context)
	List(c *gin.Context)
	Get(c *gin.Context)
	Accept(c *gin.Context)
	Reject(c *gin.Context)
	Cancel(c *gin.Context)
	Rate(c *gin.Context)
}

type ChatHTTP interface {
	ListMine(c *gin.Context)
	Get(c *gin.Context)
	ListMessages(c *gin.Context)
	PostMessage(c *gin.Context)
}

type MeetingHTTP interface {
	Create(c *gin.Context)
	List(c *gin.Context)
	Start(c *gin.Context)
	Join(c *gin.Context)
	End(c *gin.Context)
	Cancel(c *gin.Context)
}

type NotificationHTTP interface {
	List(c *gin.Context)
	MarkRead(c *gin.Context)
	MarkAllRead(c *gin.Context)
}

type UserHTTP interface {
	Ratings(c *gin.Context)
	Dashboard(c *gin.Context)
}

type AdminHTTP interface {
	CompleteSwap(c *gin.Context)
	PurgeSwap(c *gin.Context)
	BanUser(c *gin.Context)
	UnbanUser(c *gin.Context)
	Dashboard(c *gin.Context)
}

type Handlers struct {
	Auth           AuthHTTP
	Listings       ListingHTTP
	Swaps          SwapHTTP
	Chats          ChatHTTP
	Meetings       MeetingHTTP
	Notifications  NotificationHTTP
	Users          UserHTTP
	Admin          AdminHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter wires middleware and every route under /api/v1.
func NewRouter(obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(obsMW.RequestID())
	router.Use(obsMW.Recovery())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Auth != nil {
		api.POST("/auth/register", h.Auth.Register)
		api.POST("/auth/login", h.Auth.Login)
		api.GET("/auth/me", h.Auth.Me)
		api.PATCH("/auth/me", h.Auth.UpdateMe)
	}
	if h.Listings != nil {
		api.POST("/listings", h.Listings.Create)
		api.GET("/listings", h.Listings.Search)
		api.DELETE("/listings/:id", h.Listings.Delete)
	}
	if h.Swaps != nil {
		swaps := api.Group("/swaps")
		swaps.POST("", h.Swaps.Propose)
		swaps.GET("", h.Swaps.List)
		swaps.GET("/:id", h.Swaps.Get)
		swaps.POST("/:id/accept", h.Swaps.Accept)
		swaps.POST("/:id/reject", h.Swaps.Reject)
		swaps.POST("/:id/cancel", h.Swaps.Cancel)
		swaps.POST("/:id/ratings", h.Swaps.Rate)
	}
	if h.Chats != nil {
		chats := api.Group("/chats")
		chats.GET("", h.Chats.ListMine)
		chats.GET("/:id", h.Chats.Get)
		chats.GET("/:id/messages", h.Chats.ListMessages)
		chats.POST("/:id/messages", h.Chats.PostMessage)
	}
	if h.Meetings != nil {
		api.POST("/chats/:id/meetings", h.Meetings.Create)
		api.GET("/chats/:id/meetings", h.Meetings.List)
		meetings := api.Group("/meetings")
		meetings.POST("/:id/start", h.Meetings.Start)
		meetings.POST("/:id/join", h.Meetings.Join)
		meetings.POST("/:id/end", h.Meetings.End)
		meetings.POST("/:id/cancel", h.Meetings.Cancel)
	}
	if h.Notifications != nil {
		notifications := api.Group("/notifications")
		notifications.GET("", h.Notifications.List)
		notifications.POST("/read-all", h.Notifications.MarkAllRead)
		notifications.POST("/:id/read", h.Notifications.MarkRead)
	}
	if h.Users != nil {
		api.GET("/dashboard", h.Users.Dashboard)
		api.GET("/users/:id/ratings", h.Users.Ratings)
	}
	if h.Admin != nil {
		admin := api.Group("/admin")
		admin.GET("/dashboard", h.Admin.Dashboard)
		admin.POST("/swaps/:id/complete", h.Admin.CompleteSwap)
		admin.DELETE("/swaps/:id", h.Admin.PurgeSwap)
		admin.POST("/users/:id/ban", h.Admin.BanUser)
		admin.POST("/users/:id/unban", h.Admin.UnbanUser)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
