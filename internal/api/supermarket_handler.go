package api

import (
	"net/http"
	"strconv"

	"PriceSync/internal/model"
	"PriceSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SupermarketHandler 超市查询与管理接口
type SupermarketHandler struct {
	retailers  *service.RetailerService
	comparison *service.ComparisonService
	logger     *logrus.Logger
}

func NewSupermarketHandler(retailers *service.RetailerService, comparison *service.ComparisonService, logger *logrus.Logger) *SupermarketHandler {
	return &SupermarketHandler{retailers: retailers, comparison: comparison, logger: logger}
}

// ListSupermarkets 超市列表
// GET /api/supermarkets?active=true&chain_group=Cencosud
func (h *SupermarketHandler) ListSupermarkets(c *gin.Context) {
	var (
		list []*model.Supermarket
		err  error
	)
	if group := c.Query("chain_group"); group != "" {
		list, err = h.retailers.ListByChainGroup(c.Request.Context(), group)
	} else {
		list, err = h.retailers.List(c.Request.Context(), c.DefaultQuery("active", "true") == "true")
	}
	if err != nil {
		respondError(c, h.logger, "ListSupermarkets", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": list, "total": len(list)})
}

// GetSupermarket 超市详情，:id 可以是数字 id 或 slug
// GET /api/supermarkets/:id
func (h *SupermarketHandler) GetSupermarket(c *gin.Context) {
	sm, err := h.lookup(c)
	if err != nil {
		respondError(c, h.logger, "GetSupermarket", err)
		return
	}
	c.JSON(http.StatusOK, sm)
}

// GetStats 超市当前价统计
// GET /api/supermarkets/:id/stats
func (h *SupermarketHandler) GetStats(c *gin.Context) {
	sm, err := h.lookup(c)
	if err != nil {
		respondError(c, h.logger, "GetStats", err)
		return
	}
	stats, err := h.comparison.StatsByRetailer(c.Request.Context(), sm.ID)
	if err != nil {
		respondError(c, h.logger, "GetStats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// UpdateSupermarket 修改超市信息
// PATCH /api/supermarkets/:id
func (h *SupermarketHandler) UpdateSupermarket(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var patch model.SupermarketPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err.Error())
		return
	}
	sm, err := h.retailers.Update(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, h.logger, "UpdateSupermarket", err)
		return
	}
	c.JSON(http.StatusOK, sm)
}

func (h *SupermarketHandler) lookup(c *gin.Context) (*model.Supermarket, error) {
	key := c.Param("id")
	if id, err := strconv.ParseUint(key, 10, 64); err == nil {
		return h.retailers.Get(c.Request.Context(), id)
	}
	return h.retailers.GetBySlug(c.Request.Context(), key)
}
