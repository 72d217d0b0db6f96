package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"accommodation-backend/controllers"
	"accommodation-backend/middleware"
)

func parseCorsOrigins(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{"*"}
	}

	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// SetupRouter wires the controllers onto a gin engine. metrics is served at
// /metrics; a nil gatherer falls back to the default registry.
func SetupRouter(
	ac *controllers.AllocationController,
	pc *controllers.PoolController,
	corsOrigins string,
	metrics prometheus.Gatherer,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger())

	origins := parseCorsOrigins(corsOrigins)
	allowCredentials := true
	for _, origin := range origins {
		if origin == "*" {
			allowCredentials = false
			break
		}
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", middleware.TenantHeader, middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: allowCredentials,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if metrics == nil {
		metrics = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics, promhttp.HandlerOpts{})))

	api := r.Group("/api", middleware.Tenant())
	{
		events := api.Group("/events/:eventId")
		{
			events.POST("/allocations", ac.CreateAllocation)
			events.GET("/allocations", ac.ListEventAllocations)
			events.GET("/capacity", ac.GetRemainingCapacity)
			events.POST("/refresh", ac.RefreshEventBooking)
			events.POST("/assign", ac.AssignPending)
			events.POST("/reconcile", ac.ReconcileEvent)

			events.GET("/vendor-pool", pc.GetEventVendorPool)
			events.PUT("/vendor-pool", pc.UpsertEventVendorPool)
			events.DELETE("/vendor-pool", pc.DeleteEventVendorPool)
		}

		allocations := api.Group("/allocations")
		{
			allocations.GET("/:id", ac.GetAllocation)
			allocations.POST("/:id/cancel", ac.CancelAllocation)
			allocations.POST("/:id/check-in", ac.CheckIn)
			allocations.DELETE("/:id", ac.PurgeAllocation)
		}

		vendors := api.Group("/vendors")
		{
			vendors.POST("", pc.CreateVendor)
			vendors.GET("", pc.ListVendors)
		}

		guesthouses := api.Group("/guesthouses")
		{
			guesthouses.POST("", pc.CreateGuestHouse)
			guesthouses.GET("", pc.ListGuestHouses)
			guesthouses.POST("/:id/rooms", pc.CreateRoom)
			guesthouses.GET("/:id/rooms", pc.ListRooms)
		}

		api.DELETE("/rooms/:id", pc.DeleteRoom)
	}

	return r
}
