package service

import (
	"context"
	"fmt"
	"strings"

	"PriceSync/internal/config"
	"PriceSync/internal/model"
	"PriceSync/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// LedgerService 价格版本管理：每个商品至多一条当前价
type LedgerService struct {
	store    *repository.Store
	logger   *logrus.Logger
	retry    conflictRetry
	currency string
	pager    Pager
}

func NewLedgerService(store *repository.Store, logger *logrus.Logger, cfg *config.Config) *LedgerService {
	currency := cfg.Ingest.DefaultCurrency
	if currency == "" {
		currency = "CLP"
	}
	return &LedgerService{
		store:    store,
		logger:   logger,
		retry:    newConflictRetry(cfg.Ingest),
		currency: currency,
		pager:    NewPager(cfg.Pagination),
	}
}

// ValidateObservation 原价必须为正，优惠价不得高于原价
func ValidateObservation(obs model.PriceObservation) error {
	ve := &model.ValidationError{}
	if !obs.NormalPrice.IsPositive() {
		ve.Add("normalPrice", "must be greater than 0")
	}
	if obs.OfferPrice.Valid {
		if obs.OfferPrice.Decimal.IsNegative() {
			ve.Add("offerPrice", "must not be negative")
		} else if obs.OfferPrice.Decimal.GreaterThan(obs.NormalPrice) {
			ve.Add("offerPrice", "must not exceed normalPrice")
		}
	}
	if obs.PricePerUnit.Valid && obs.PricePerUnit.Decimal.IsNegative() {
		ve.Add("pricePerUnit", "must not be negative")
	}
	if obs.Currency != "" && len(obs.Currency) != 3 {
		ve.Add("currency", "must be a 3-letter code")
	}
	return ve.OrNil()
}

// CalculateDiscount 折扣百分比 = round2((原价-优惠价)/原价*100)
func CalculateDiscount(normal decimal.Decimal, offer decimal.NullDecimal) decimal.NullDecimal {
	if !offer.Valid || !normal.IsPositive() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(round2(normal.Sub(offer.Decimal).Div(normal).Mul(hundred)))
}

// RecordPrice 记录新的价格观测：旧当前价失效、写入新当前价并追加历史，在同一事务内完成
func (s *LedgerService) RecordPrice(ctx context.Context, productID uint64, obs model.PriceObservation) (*model.Price, error) {
	if err := ValidateObservation(obs); err != nil {
		return nil, err
	}
	var price *model.Price
	err := s.retry.do(ctx, func() error {
		return s.store.InTx(ctx, func(tx *repository.Store) error {
			// 锁住商品行，串行化同一商品的价格写入
			p, err := tx.Products.GetByID(ctx, productID, true)
			if err != nil {
				return fmt.Errorf("查询商品失败: %w", err)
			}
			if p == nil {
				return fmt.Errorf("商品 %d: %w", productID, model.ErrNotFound)
			}
			price, err = s.recordIn(ctx, tx, productID, obs)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return price, nil
}

// recordIn 调用方需已持有商品行锁
func (s *LedgerService) recordIn(ctx context.Context, tx *repository.Store, productID uint64, obs model.PriceObservation) (*model.Price, error) {
	currency := strings.ToUpper(strings.TrimSpace(obs.Currency))
	if currency == "" {
		currency = s.currency
	}
	at := orNow(obs.ObservedAt)

	price := &model.Price{
		ProductID:          productID,
		NormalPrice:        round2(obs.NormalPrice),
		OfferPrice:         nullRound2(obs.OfferPrice),
		DiscountPercentage: CalculateDiscount(obs.NormalPrice, obs.OfferPrice),
		HasOffer:           obs.OfferPrice.Valid,
		OfferDescription:   obs.OfferDescription,
		PricePerUnit:       nullRound2(obs.PricePerUnit),
		Currency:           currency,
		IsCurrent:          true,
		EffectiveDate:      at,
	}

	if err := tx.Prices.RetireCurrent(ctx, productID); err != nil {
		return nil, fmt.Errorf("旧价格失效失败: %w", err)
	}
	if err := tx.Prices.Create(ctx, price); err != nil {
		return nil, fmt.Errorf("写入价格失败: %w", err)
	}
	if err := tx.Prices.AppendHistory(ctx, &model.PriceHistory{
		ProductID:          productID,
		PriceID:            price.ID,
		NormalPrice:        price.NormalPrice,
		OfferPrice:         price.OfferPrice,
		EffectivePrice:     price.EffectivePrice(),
		HasOffer:           price.HasOffer,
		DiscountPercentage: price.DiscountPercentage,
		RecordedAt:         at,
	}); err != nil {
		return nil, fmt.Errorf("写入价格历史失败: %w", err)
	}
	return price, nil
}

// CurrentPrice 当前价，没有时返回 (nil, nil)
func (s *LedgerService) CurrentPrice(ctx context.Context, productID uint64) (*model.Price, error) {
	p, err := s.store.Prices.GetCurrent(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("查询当前价格失败: %w", err)
	}
	return p, nil
}

// History 价格历史，按时间倒序
func (s *LedgerService) History(ctx context.Context, productID uint64, limit, offset int) ([]*model.PriceHistory, error) {
	if limit <= 0 {
		limit = s.pager.HistoryLimit
	}
	limit, offset = s.pager.Clamp(limit, offset)
	list, err := s.store.Prices.History(ctx, productID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("查询价格历史失败: %w", err)
	}
	if list == nil {
		list = []*model.PriceHistory{}
	}
	return list, nil
}

// UpdateCurrent 管理端修正某条价格，重新计算折扣，不触发当前价切换
func (s *LedgerService) UpdateCurrent(ctx context.Context, priceID uint64, patch model.PricePatch) (*model.Price, error) {
	var updated *model.Price
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		p, err := tx.Prices.GetByID(ctx, priceID)
		if err != nil {
			return fmt.Errorf("查询价格失败: %w", err)
		}
		if p == nil {
			return fmt.Errorf("价格 %d: %w", priceID, model.ErrNotFound)
		}

		obs := model.PriceObservation{
			NormalPrice:      p.NormalPrice,
			OfferPrice:       p.OfferPrice,
			OfferDescription: p.OfferDescription,
			PricePerUnit:     p.PricePerUnit,
		}
		if patch.NormalPrice != nil {
			obs.NormalPrice = *patch.NormalPrice
		}
		if patch.ClearOffer && (patch.OfferPrice != nil || patch.OfferDescription != nil) {
			return &model.ValidationError{Fields: []model.FieldError{{Field: "clearOffer", Message: "cannot be combined with offerPrice or offerDescription"}}}
		}
		if patch.ClearOffer {
			obs.OfferPrice = decimal.NullDecimal{}
			obs.OfferDescription = nil
		}
		if patch.OfferPrice != nil {
			obs.OfferPrice = decimal.NewNullDecimal(*patch.OfferPrice)
		}
		if patch.OfferDescription != nil {
			obs.OfferDescription = patch.OfferDescription
		}
		if patch.PricePerUnit != nil {
			obs.PricePerUnit = decimal.NewNullDecimal(*patch.PricePerUnit)
		}
		if err := ValidateObservation(obs); err != nil {
			return err
		}

		p.NormalPrice = round2(obs.NormalPrice)
		p.OfferPrice = nullRound2(obs.OfferPrice)
		p.DiscountPercentage = CalculateDiscount(obs.NormalPrice, obs.OfferPrice)
		p.HasOffer = obs.OfferPrice.Valid
		p.OfferDescription = obs.OfferDescription
		p.PricePerUnit = nullRound2(obs.PricePerUnit)
		if err := tx.Prices.UpdateFields(ctx, p.ID, map[string]interface{}{
			"normal_price":        p.NormalPrice,
			"offer_price":         p.OfferPrice,
			"discount_percentage": p.DiscountPercentage,
			"has_offer":           p.HasOffer,
			"offer_description":   p.OfferDescription,
			"price_per_unit":      p.PricePerUnit,
		}); err != nil {
			return fmt.Errorf("更新价格失败: %w", err)
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
