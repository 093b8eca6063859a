package api

import (
	"net/http"

	"PriceSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ClusterHandler 同款聚类浏览接口
type ClusterHandler struct {
	matcher *service.MatcherService
	logger  *logrus.Logger
}

func NewClusterHandler(matcher *service.MatcherService, logger *logrus.Logger) *ClusterHandler {
	return &ClusterHandler{matcher: matcher, logger: logger}
}

// ListClusters 聚类列表，按成员数降序
// GET /api/clusters?limit=20&offset=0
func (h *ClusterHandler) ListClusters(c *gin.Context) {
	limit, offset := pageParams(c)
	page, err := h.matcher.Clusters(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, h.logger, "ListClusters", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetCluster 聚类成员
// GET /api/clusters/:id
func (h *ClusterHandler) GetCluster(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	detail, err := h.matcher.Cluster(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "GetCluster", err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// MatchProduct 手动触发单个商品匹配
// POST /api/clusters/match/:product_id
func (h *ClusterHandler) MatchProduct(c *gin.Context) {
	id, ok := pathID(c, "product_id")
	if !ok {
		return
	}
	res, err := h.matcher.MatchProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "MatchProduct", err)
		return
	}
	c.JSON(http.StatusOK, res)
}
