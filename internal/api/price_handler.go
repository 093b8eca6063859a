package api

import (
	"net/http"

	"PriceSync/internal/model"
	"PriceSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// PriceHandler 比价、优惠与价格修正接口
type PriceHandler struct {
	comparison *service.ComparisonService
	ledger     *service.LedgerService
	logger     *logrus.Logger
}

func NewPriceHandler(comparison *service.ComparisonService, ledger *service.LedgerService, logger *logrus.Logger) *PriceHandler {
	return &PriceHandler{comparison: comparison, ledger: ledger, logger: logger}
}

// Compare 聚类内跨超市比价
// GET /api/prices/compare?master_product_id=1
func (h *PriceHandler) Compare(c *gin.Context) {
	id, ok := queryID(c, "master_product_id")
	if !ok {
		return
	}
	if id == 0 {
		badRequest(c, "master_product_id is required")
		return
	}
	result, err := h.comparison.Compare(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "Compare", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Offers 当前优惠，按折扣降序
// GET /api/prices/offers?supermarket_id=1&limit=20&offset=0
func (h *PriceHandler) Offers(c *gin.Context) {
	smID, ok := queryID(c, "supermarket_id")
	if !ok {
		return
	}
	limit, offset := pageParams(c)
	page, err := h.comparison.Offers(c.Request.Context(), smID, limit, offset)
	if err != nil {
		respondError(c, h.logger, "Offers", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// History 价格历史
// GET /api/prices/history/:product_id
func (h *PriceHandler) History(c *gin.Context) {
	id, ok := pathID(c, "product_id")
	if !ok {
		return
	}
	limit, offset := pageParams(c)
	list, err := h.ledger.History(c.Request.Context(), id, limit, offset)
	if err != nil {
		respondError(c, h.logger, "History", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"productId": id, "items": list})
}

// UpdatePrice 修正某条价格，不改变当前价归属
// PATCH /api/prices/:id
func (h *PriceHandler) UpdatePrice(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var patch model.PricePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err.Error())
		return
	}
	price, err := h.ledger.UpdateCurrent(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, h.logger, "UpdatePrice", err)
		return
	}
	c.JSON(http.StatusOK, price)
}
