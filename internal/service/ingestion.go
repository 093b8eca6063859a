package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"PriceSync/internal/config"
	"PriceSync/internal/interfaces"
	"PriceSync/internal/model"
	"PriceSync/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// 入库来源
const (
	SourceAPI  = "api"
	SourceFeed = "feed"
)

// IngestionService 入库协调：校验 -> 规范化 -> 商品 upsert -> 记录价格（同一事务）-> 提交后投递匹配
type IngestionService struct {
	store      *repository.Store
	catalog    *CatalogService
	ledger     *LedgerService
	dispatcher interfaces.MatchDispatcher
	logger     *logrus.Logger
	retry      conflictRetry
}

func NewIngestionService(store *repository.Store, catalog *CatalogService, ledger *LedgerService, dispatcher interfaces.MatchDispatcher, logger *logrus.Logger, cfg *config.Config) *IngestionService {
	return &IngestionService{
		store:      store,
		catalog:    catalog,
		ledger:     ledger,
		dispatcher: dispatcher,
		logger:     logger,
		retry:      newConflictRetry(cfg.Ingest),
	}
}

// IngestResult 单条记录入库结果
type IngestResult struct {
	ProductID     uint64 `json:"productId"`
	PriceID       uint64 `json:"priceId"`
	SupermarketID uint64 `json:"supermarketId"`
	Created       bool   `json:"created"`
}

// ValidateRecord 名称必填，价格规则同 ValidateObservation
func ValidateRecord(rec *model.ScrapedProduct) error {
	ve := &model.ValidationError{}
	if rec == nil {
		ve.Add("record", "must not be empty")
		return ve
	}
	if strings.TrimSpace(rec.Supermarket) == "" {
		ve.Add("supermarket", "must not be empty")
	}
	if strings.TrimSpace(rec.Name) == "" {
		ve.Add("name", "must not be empty")
	}
	if err := ValidateObservation(rec.Observation()); err != nil {
		var pe *model.ValidationError
		if errors.As(err, &pe) {
			ve.Fields = append(ve.Fields, pe.Fields...)
		}
	}
	return ve.OrNil()
}

// NormalizeRecord 去除首尾空白，空字符串视为未提供
func NormalizeRecord(rec *model.ScrapedProduct) *model.ScrapedProduct {
	out := *rec
	out.Supermarket = strings.TrimSpace(rec.Supermarket)
	out.Name = strings.Join(strings.Fields(rec.Name), " ")
	for _, f := range []**string{
		&out.ExternalID, &out.Description, &out.Brand, &out.Category, &out.Subcategory,
		&out.Unit, &out.UnitSize, &out.ImageURL, &out.ProductURL, &out.Barcode, &out.OfferDescription,
	} {
		*f = trimOptional(*f)
	}
	out.Currency = strings.ToUpper(strings.TrimSpace(rec.Currency))
	return &out
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// Ingest 处理单条记录；匹配失败不影响已提交的商品和价格
func (s *IngestionService) Ingest(ctx context.Context, rec *model.ScrapedProduct) (*IngestResult, error) {
	if err := ValidateRecord(rec); err != nil {
		return nil, err
	}
	rec = NormalizeRecord(rec)

	sm, err := s.store.Supermarkets.GetBySlug(ctx, rec.Supermarket)
	if err != nil {
		return nil, fmt.Errorf("查询超市失败: %w", err)
	}
	if sm == nil {
		return nil, &model.ValidationError{Fields: []model.FieldError{{Field: "supermarket", Message: "unknown retailer " + rec.Supermarket}}}
	}

	var result *IngestResult
	err = s.retry.do(ctx, func() error {
		return s.store.InTx(ctx, func(tx *repository.Store) error {
			product, created, err := s.catalog.upsertIn(ctx, tx, sm.ID, rec.ExternalID, rec.Attributes())
			if err != nil {
				return err
			}
			price, err := s.ledger.recordIn(ctx, tx, product.ID, rec.Observation())
			if err != nil {
				return err
			}
			result = &IngestResult{ProductID: product.ID, PriceID: price.ID, SupermarketID: sm.ID, Created: created}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if s.dispatcher != nil {
		if err := s.dispatcher.Dispatch(ctx, result.ProductID); err != nil {
			s.logger.WithError(err).WithField("product_id", result.ProductID).Warn("投递匹配任务失败，商品暂不聚类")
		}
	}
	return result, nil
}

// RecordError 批量入库中单条失败
type RecordError struct {
	Index   int                `json:"index"`
	Name    string             `json:"name,omitempty"`
	Message string             `json:"message"`
	Fields  []model.FieldError `json:"fields,omitempty"`
}

// BatchReport 批量入库结果
type BatchReport struct {
	Run    *model.ScrapeRun `json:"run"`
	Errors []RecordError    `json:"errors"`
}

// IngestBatch 批量入库，逐条独立提交；ctx 取消时在记录之间停止
func (s *IngestionService) IngestBatch(ctx context.Context, slug string, records []*model.ScrapedProduct, source string) (*BatchReport, error) {
	sm, err := s.store.Supermarkets.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("查询超市失败: %w", err)
	}
	if sm == nil {
		return nil, fmt.Errorf("超市 %s: %w", slug, model.ErrNotFound)
	}

	run := &model.ScrapeRun{
		RunUUID:       uuid.NewString(),
		SupermarketID: sm.ID,
		Source:        source,
		Received:      len(records),
		StartedAt:     time.Now().UTC(),
	}
	if err := s.store.Runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("创建入库批次失败: %w", err)
	}

	report := &BatchReport{Run: run, Errors: []RecordError{}}
	var abortErr error
	for i, rec := range records {
		if ctx.Err() != nil {
			abortErr = ctx.Err()
			break
		}
		if rec != nil && rec.Supermarket == "" {
			rec.Supermarket = slug
		}
		if rec != nil && rec.Supermarket != slug {
			run.Rejected++
			report.Errors = append(report.Errors, RecordError{Index: i, Name: rec.Name, Message: "record belongs to another retailer: " + rec.Supermarket})
			continue
		}

		res, err := s.Ingest(ctx, rec)
		switch {
		case err == nil && res.Created:
			run.Created++
		case err == nil:
			run.Updated++
		default:
			re := RecordError{Index: i, Message: err.Error()}
			if rec != nil {
				re.Name = rec.Name
			}
			var ve *model.ValidationError
			if errors.As(err, &ve) {
				run.Rejected++
				re.Fields = ve.Fields
			} else {
				run.Failed++
				s.logger.WithError(err).WithFields(logrus.Fields{"slug": slug, "index": i}).Warn("记录入库失败")
			}
			report.Errors = append(report.Errors, re)
		}
	}

	finished := time.Now().UTC()
	run.FinishedAt = &finished
	if abortErr != nil {
		msg := abortErr.Error()
		run.Error = &msg
	}
	// 批次统计使用独立 ctx，取消后仍记录进度
	if err := s.store.Runs.Save(context.WithoutCancel(ctx), run); err != nil {
		s.logger.WithError(err).WithField("run", run.RunUUID).Warn("保存入库批次失败")
	}

	s.logger.WithFields(logrus.Fields{
		"slug":     slug,
		"run":      run.RunUUID,
		"received": run.Received,
		"created":  run.Created,
		"updated":  run.Updated,
		"rejected": run.Rejected,
		"failed":   run.Failed,
	}).Info("批量入库完成")
	return report, abortErr
}

// Runs 超市最近的入库批次
func (s *IngestionService) Runs(ctx context.Context, supermarketID uint64, limit int) ([]*model.ScrapeRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.store.Runs.ListBySupermarket(ctx, supermarketID, limit)
}
