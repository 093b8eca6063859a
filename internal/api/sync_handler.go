package api

import (
	"fmt"
	"net/http"
	"strconv"

	"PriceSync/internal/model"
	"PriceSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// 单次推送的最大记录数
const maxIngestBatch = 5000

type SyncHandler struct {
	syncService *service.FeedSyncService
	ingestion   *service.IngestionService
	retailers   *service.RetailerService
	logger      *logrus.Logger
}

func NewSyncHandler(syncService *service.FeedSyncService, ingestion *service.IngestionService, retailers *service.RetailerService, logger *logrus.Logger) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
		ingestion:   ingestion,
		retailers:   retailers,
		logger:      logger,
	}
}

// SyncRetailerHandler 拉取指定超市的数据源并入库
// @Summary 同步超市商品价格
// @Param slug path string true "超市 slug（jumbo/lider/...）"
// @Success 200 {object} service.BatchReport
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /sync/retailer/{slug} [post]
func (h *SyncHandler) SyncRetailerHandler(c *gin.Context) {
	slug := c.Param("slug")
	report, err := h.syncService.SyncRetailer(c.Request.Context(), slug)
	if err != nil {
		h.logger.Errorf("同步%s失败: %v", slug, err)
		respondError(c, h.logger, "SyncRetailer", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("%s同步成功", slug),
		"report":  report,
	})
}

// SyncAllHandler 并发同步所有配置了数据源的超市，部分失败时返回 207
// @Router /sync/all [post]
func (h *SyncHandler) SyncAllHandler(c *gin.Context) {
	reports, err := h.syncService.SyncAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusMultiStatus, gin.H{"reports": reports, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// IngestHandler 抓取器推送一批商品记录
// @Param slug path string true "超市 slug"
// @Param body body []model.ScrapedProduct true "商品记录数组"
// @Router /api/ingest/{slug} [post]
func (h *SyncHandler) IngestHandler(c *gin.Context) {
	slug := c.Param("slug")
	var records []*model.ScrapedProduct
	if err := c.ShouldBindJSON(&records); err != nil {
		badRequest(c, err.Error())
		return
	}
	if len(records) == 0 {
		badRequest(c, "body must be a non-empty array")
		return
	}
	if len(records) > maxIngestBatch {
		badRequest(c, fmt.Sprintf("at most %d records per request", maxIngestBatch))
		return
	}

	report, err := h.ingestion.IngestBatch(c.Request.Context(), slug, records, service.SourceAPI)
	if err != nil {
		respondError(c, h.logger, "Ingest", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ListRuns 超市最近的入库批次
// GET /api/supermarkets/:id/runs?limit=20
func (h *SyncHandler) ListRuns(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, err := h.retailers.Get(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, "ListRuns", err)
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	runs, err := h.ingestion.Runs(c.Request.Context(), id, limit)
	if err != nil {
		respondError(c, h.logger, "ListRuns", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": runs})
}
