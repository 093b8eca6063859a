package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handlers 路由依赖的全部处理器
type Handlers struct {
	Supermarkets *SupermarketHandler
	Products     *ProductHandler
	Prices       *PriceHandler
	Clusters     *ClusterHandler
	Sync         *SyncHandler
	DB           *gorm.DB
}

// NewRouter gin 引擎：CORS、pprof 与业务路由
func NewRouter(allowedOrigins []string, h *Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if len(allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = allowedOrigins
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	// 注册ppof 方便调试和监测性能问题
	pprof.Register(r)

	RegisterRoutes(r, h)
	return r
}

// RegisterRoutes 注册业务路由
func RegisterRoutes(r gin.IRouter, h *Handlers) {
	r.GET("/health", h.health)

	// 抓取数据拉取
	r.POST("/sync/retailer/:slug", h.Sync.SyncRetailerHandler)
	r.POST("/sync/all", h.Sync.SyncAllHandler)

	g := r.Group("/api")
	g.POST("/ingest/:slug", h.Sync.IngestHandler)

	g.GET("/supermarkets", h.Supermarkets.ListSupermarkets)
	g.GET("/supermarkets/:id", h.Supermarkets.GetSupermarket)
	g.PATCH("/supermarkets/:id", h.Supermarkets.UpdateSupermarket)
	g.GET("/supermarkets/:id/stats", h.Supermarkets.GetStats)
	g.GET("/supermarkets/:id/runs", h.Sync.ListRuns)

	g.GET("/products", h.Products.ListProducts)
	g.GET("/products/search", h.Products.SearchProducts)
	g.GET("/products/:id", h.Products.GetProduct)
	g.DELETE("/products/:id", h.Products.DeleteProduct)
	g.GET("/products/:id/history", h.Products.GetHistory)

	g.GET("/prices/compare", h.Prices.Compare)
	g.GET("/prices/offers", h.Prices.Offers)
	g.GET("/prices/history/:product_id", h.Prices.History)
	g.PATCH("/prices/:id", h.Prices.UpdatePrice)

	g.GET("/clusters", h.Clusters.ListClusters)
	g.GET("/clusters/:id", h.Clusters.GetCluster)
	g.POST("/clusters/match/:product_id", h.Clusters.MatchProduct)
}

// health 检查数据库连通性
func (h *Handlers) health(c *gin.Context) {
	status := gin.H{"status": "ok", "time": time.Now().UTC()}
	if h.DB != nil {
		sqlDB, err := h.DB.DB()
		if err == nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
	}
	c.JSON(http.StatusOK, status)
}
