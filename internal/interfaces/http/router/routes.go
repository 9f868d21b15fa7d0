package router

import (
	"github.com/gin-gonic/gin"

	"github.com/photolab/backend/internal/infrastructure/auth"
	"github.com/photolab/backend/internal/interfaces/http/handler"
	"github.com/photolab/backend/internal/interfaces/http/middleware"
)

// Handlers are the endpoints served by the API
type Handlers struct {
	System    *handler.SystemHandler
	Auth      *handler.AuthHandler
	Checkout  *handler.CheckoutHandler
	Orders    *handler.OrderHandler
	Providers *handler.ProviderAdminHandler
	ROES      *handler.ROESHandler
}

// Guards is the middleware placed in front of the API routes.
// Authenticate runs first for every /api route; Authenticated runs right
// after it; Checkout only guards the checkout endpoint.
type Guards struct {
	Authenticate  gin.HandlerFunc
	Authenticated []gin.HandlerFunc
	Checkout      []gin.HandlerFunc
}

// Mount registers the health probes and every API route on the engine
func Mount(engine *gin.Engine, h Handlers, g Guards, opts ...RouterOption) *Router {
	engine.GET("/health", h.System.Health)
	engine.GET("/ready", h.System.Ready)

	r := NewRouter(engine, opts...)
	engine.GET(r.Prefix()+"/health", h.System.Health)
	engine.GET(r.Prefix()+"/system/info", h.System.GetSystemInfo)

	if g.Authenticate != nil {
		r.Use(g.Authenticate)
	}
	r.Use(g.Authenticated...)

	requireAdmin := middleware.RequireRole(auth.RoleAdmin)

	authRoutes := NewDomainGroup("auth", "/auth")
	authRoutes.GET("/me", h.Auth.GetSession)
	authRoutes.POST("/logout", h.Auth.Logout)
	r.Register(authRoutes)

	checkoutRoutes := NewDomainGroup("checkout", "/checkout")
	checkoutRoutes.Use(g.Checkout...)
	checkoutRoutes.POST("", h.Checkout.ProcessCheckout)
	r.Register(checkoutRoutes)

	orderRoutes := NewDomainGroup("orders", "/orders")
	orderRoutes.GET("", requireAdmin, h.Orders.ListOrders)
	orderRoutes.GET("/:id", requireAdmin, h.Orders.GetOrder)
	orderRoutes.POST("/:id/fulfill", requireAdmin, h.Orders.MarkFulfilled)
	orderRoutes.POST("/:id/cancel", requireAdmin, h.Orders.Cancel)
	r.Register(orderRoutes)

	adminRoutes := NewDomainGroup("admin", "/admin").Use(requireAdmin)
	adminRoutes.GET("/providers", h.Providers.ListProviders)
	adminRoutes.PUT("/providers/:provider", h.Providers.UpdateProvider)
	adminRoutes.POST("/providers/:provider/test", h.Providers.TestConnection)
	adminRoutes.GET("/submissions", h.Orders.ListSubmissions)
	r.Register(adminRoutes)

	roesRoutes := NewDomainGroup("roes", "/roes")
	roesRoutes.POST("/events", h.ROES.PushEvent)
	roesRoutes.GET("/events/pending", h.ROES.PendingEvents)
	r.Register(roesRoutes)

	r.Setup()
	return r
}
