package api

import (
	"net/http"
	"strings"

	"PriceSync/internal/repository"
	"PriceSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ProductHandler 商品查询接口
type ProductHandler struct {
	catalog *service.CatalogService
	ledger  *service.LedgerService
	logger  *logrus.Logger
}

func NewProductHandler(catalog *service.CatalogService, ledger *service.LedgerService, logger *logrus.Logger) *ProductHandler {
	return &ProductHandler{catalog: catalog, ledger: ledger, logger: logger}
}

// ListProducts 商品列表
// GET /api/products?supermarket_id=1&category=Lacteos&brand=Colun&is_available=true&limit=20&offset=0
func (h *ProductHandler) ListProducts(c *gin.Context) {
	smID, ok := queryID(c, "supermarket_id")
	if !ok {
		return
	}
	limit, offset := pageParams(c)
	filter := repository.ProductFilter{
		SupermarketID: smID,
		Category:      strings.TrimSpace(c.Query("category")),
		Brand:         strings.TrimSpace(c.Query("brand")),
		AvailableOnly: c.Query("is_available") == "true",
	}

	page, err := h.catalog.List(c.Request.Context(), filter, limit, offset)
	if err != nil {
		respondError(c, h.logger, "ListProducts", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// SearchProducts 按名称搜索
// GET /api/products/search?q=leche&supermarket_id=1
func (h *ProductHandler) SearchProducts(c *gin.Context) {
	smID, ok := queryID(c, "supermarket_id")
	if !ok {
		return
	}
	limit, offset := pageParams(c)
	page, err := h.catalog.Search(c.Request.Context(), c.Query("q"), smID, limit, offset)
	if err != nil {
		respondError(c, h.logger, "SearchProducts", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetProduct 商品详情（含超市与当前价格）
// GET /api/products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "GetProduct", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// GetHistory 价格历史，新的在前
// GET /api/products/:id/history?limit=30&offset=0
func (h *ProductHandler) GetHistory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	limit, offset := pageParams(c)
	list, err := h.ledger.History(c.Request.Context(), id, limit, offset)
	if err != nil {
		respondError(c, h.logger, "GetHistory", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"productId": id, "items": list})
}

// DeleteProduct 删除商品及其价格与聚类关系
// DELETE /api/products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, "DeleteProduct", err)
		return
	}
	c.Status(http.StatusNoContent)
}
