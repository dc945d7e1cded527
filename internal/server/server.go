package server

import (
	"context"
	"net/http"
	"time"

	"fitnexo/internal/access"
	"fitnexo/internal/auth"
	"fitnexo/internal/config"
	"fitnexo/internal/gateway"
	"fitnexo/internal/gym"
	"fitnexo/internal/membership"
	"fitnexo/internal/payment"
	"fitnexo/internal/reminder"

	"github.com/gin-gonic/gin"
)

// Handlers groups the HTTP handlers the router exposes.
type Handlers struct {
	Gyms         *gym.Handler
	Memberships  *membership.Handler
	Payments     *payment.Handler
	PaymentLinks *gateway.LinkHandler
	Webhooks     *gateway.WebhookHandler
	Access       *access.Handler
	Reminders    *reminder.Handler
	Emails       EmailQueue
	Checks       map[string]Check
}

type Server struct {
	router *gin.Engine
	http   *http.Server
	config *config.Config
}

func New(cfg *config.Config, h Handlers) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(corsMiddleware())

	router.GET("/health", Health(h.Checks))
	router.GET("/metrics", Metrics())
	SetupSwagger(router)

	webhooks := router.Group("/webhooks")
	webhooks.Use(RateLimitMiddleware(cfg.WebhookRateRPS, cfg.WebhookRateBurst))
	{
		webhooks.POST("/mercadopago", h.Webhooks.MercadoPago)
		webhooks.POST("/stripe", h.Webhooks.Stripe)
	}

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	staff := router.Group("/")
	staff.Use(authMiddleware, auth.RequireRole(auth.RoleStaff, auth.RoleAdmin))
	{
		staff.GET("/gym", h.Gyms.GetGym)
		staff.GET("/plans", h.Gyms.ListPlans)
		staff.GET("/members", h.Gyms.FindMember)

		staff.POST("/memberships", h.Memberships.Open)
		staff.GET("/memberships/expiring", h.Memberships.ListExpiring)
		staff.GET("/memberships/expired", h.Memberships.ListExpired)
		staff.GET("/memberships/:membershipID", h.Memberships.Get)
		staff.POST("/memberships/:membershipID/renew", h.Memberships.Renew)
		staff.GET("/members/:memberID/status", h.Memberships.Status)
		staff.GET("/members/:memberID/qr", h.Access.IssueQR)

		staff.POST("/payments", h.Payments.Create)
		staff.POST("/payments/gateway/link", h.PaymentLinks.Create)
		staff.GET("/payments/:paymentID", h.Payments.Get)

		staff.POST("/access/check-in", h.Access.CheckIn)
		staff.POST("/access/qr", h.Access.CheckInQR)
		staff.GET("/access/inside", h.Access.Inside)
		staff.POST("/access/:recordID/check-out", h.Access.CheckOut)
	}

	admin := router.Group("/")
	admin.Use(authMiddleware, auth.RequireRole(auth.RoleAdmin))
	{
		admin.POST("/plans", h.Gyms.CreatePlan)
		admin.DELETE("/payments/:paymentID", h.Payments.Cancel)
		admin.POST("/admin/notifications/expiring", h.Reminders.SendExpiring)
		admin.GET("/admin/emails/queue", EmailQueueLength(h.Emails))
		admin.POST("/admin/test-email", TestEmail(h.Emails))
	}

	return &Server{
		router: router,
		config: cfg,
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
