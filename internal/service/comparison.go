package service

import (
	"context"
	"fmt"
	"time"

	"PriceSync/internal/config"
	"PriceSync/internal/model"
	"PriceSync/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ComparisonService 聚类内跨超市比价、优惠列表与超市统计
type ComparisonService struct {
	store  *repository.Store
	logger *logrus.Logger
	pager  Pager
}

func NewComparisonService(store *repository.Store, logger *logrus.Logger, cfg *config.Config) *ComparisonService {
	return &ComparisonService{store: store, logger: logger, pager: NewPager(cfg.Pagination)}
}

// RetailerRef 超市摘要
type RetailerRef struct {
	ID         uint64  `json:"id"`
	Name       string  `json:"name"`
	Slug       string  `json:"slug"`
	ChainGroup *string `json:"chainGroup,omitempty"`
}

// ComparisonEntry 聚类成员的一条报价
type ComparisonEntry struct {
	ProductID          uint64              `json:"productId"`
	ProductName        string              `json:"productName"`
	Brand              *string             `json:"brand,omitempty"`
	Unit               *string             `json:"unit,omitempty"`
	UnitSize           *string             `json:"unitSize,omitempty"`
	ImageURL           *string             `json:"imageUrl,omitempty"`
	ProductURL         *string             `json:"productUrl,omitempty"`
	Supermarket        RetailerRef         `json:"supermarket"`
	NormalPrice        decimal.Decimal     `json:"normalPrice"`
	OfferPrice         decimal.NullDecimal `json:"offerPrice"`
	EffectivePrice     decimal.Decimal     `json:"effectivePrice"`
	HasOffer           bool                `json:"hasOffer"`
	DiscountPercentage decimal.NullDecimal `json:"discountPercentage"`
	PricePerUnit       decimal.NullDecimal `json:"pricePerUnit"`
	OfferDescription   *string             `json:"offerDescription,omitempty"`
	EffectiveDate      time.Time           `json:"effectiveDate"`
	SimilarityScore    float64             `json:"similarityScore"`
	SavingsVsBest      decimal.Decimal     `json:"savingsVsBest"` // 与最低价的差额
	IsBestDeal         bool                `json:"isBestDeal"`
}

// ComparisonResult 比价结果，按实付价升序
type ComparisonResult struct {
	MasterProductID uint64             `json:"masterProductId"`
	Entries         []*ComparisonEntry `json:"entries"`
	BestDeal        *ComparisonEntry   `json:"bestDeal,omitempty"`
	MaxSavings      decimal.Decimal    `json:"maxSavings"` // 最高价与最低价之差
}

// Compare 聚类内所有在售且超市启用的成员当前价，按实付价升序；聚类不存在时返回空结果
func (s *ComparisonService) Compare(ctx context.Context, masterProductID uint64) (*ComparisonResult, error) {
	rows, err := s.store.Prices.ComparisonRows(ctx, masterProductID)
	if err != nil {
		return nil, fmt.Errorf("查询比价数据失败: %w", err)
	}
	result := &ComparisonResult{
		MasterProductID: masterProductID,
		Entries:         make([]*ComparisonEntry, 0, len(rows)),
		MaxSavings:      decimal.Zero,
	}
	if len(rows) == 0 {
		return result, nil
	}

	best := rows[0].EffectivePrice
	for _, r := range rows {
		result.Entries = append(result.Entries, &ComparisonEntry{
			ProductID:   r.ProductID,
			ProductName: r.ProductName,
			Brand:       r.Brand,
			Unit:        r.Unit,
			UnitSize:    r.UnitSize,
			ImageURL:    r.ImageURL,
			ProductURL:  r.ProductURL,
			Supermarket: RetailerRef{
				ID:         r.SupermarketID,
				Name:       r.SupermarketName,
				Slug:       r.SupermarketSlug,
				ChainGroup: r.ChainGroup,
			},
			NormalPrice:        r.NormalPrice,
			OfferPrice:         r.OfferPrice,
			EffectivePrice:     r.EffectivePrice,
			HasOffer:           r.HasOffer,
			DiscountPercentage: r.DiscountPercentage,
			PricePerUnit:       r.PricePerUnit,
			OfferDescription:   r.OfferDescription,
			EffectiveDate:      r.EffectiveDate,
			SimilarityScore:    r.SimilarityScore,
			SavingsVsBest:      round2(r.EffectivePrice.Sub(best)),
			IsBestDeal:         r.EffectivePrice.Equal(best),
		})
	}
	result.BestDeal = result.Entries[0]
	result.MaxSavings = round2(rows[len(rows)-1].EffectivePrice.Sub(best))
	return result, nil
}

// Offer 优惠条目
type Offer struct {
	PriceID            uint64              `json:"priceId"`
	ProductID          uint64              `json:"productId"`
	ProductName        string              `json:"productName"`
	Brand              *string             `json:"brand,omitempty"`
	Category           *string             `json:"category,omitempty"`
	ImageURL           *string             `json:"imageUrl,omitempty"`
	Supermarket        RetailerRef         `json:"supermarket"`
	NormalPrice        decimal.Decimal     `json:"normalPrice"`
	OfferPrice         decimal.NullDecimal `json:"offerPrice"`
	DiscountPercentage decimal.NullDecimal `json:"discountPercentage"`
	OfferDescription   *string             `json:"offerDescription,omitempty"`
	EffectiveDate      time.Time           `json:"effectiveDate"`
}

// Offers 当前在售商品的优惠，按折扣降序；supermarketID 为 0 表示全部超市
func (s *ComparisonService) Offers(ctx context.Context, supermarketID uint64, limit, offset int) (*Page[*Offer], error) {
	limit, offset = s.pager.Clamp(limit, offset)
	rows, total, err := s.store.Prices.ListOffers(ctx, supermarketID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("查询优惠失败: %w", err)
	}
	items := make([]*Offer, 0, len(rows))
	for _, r := range rows {
		items = append(items, &Offer{
			PriceID:     r.PriceID,
			ProductID:   r.ProductID,
			ProductName: r.ProductName,
			Brand:       r.Brand,
			Category:    r.Category,
			ImageURL:    r.ImageURL,
			Supermarket: RetailerRef{
				ID:   r.SupermarketID,
				Name: r.SupermarketName,
				Slug: r.SupermarketSlug,
			},
			NormalPrice:        r.NormalPrice,
			OfferPrice:         r.OfferPrice,
			DiscountPercentage: r.DiscountPercentage,
			OfferDescription:   r.OfferDescription,
			EffectiveDate:      r.EffectiveDate,
		})
	}
	return newPage(items, total, limit, offset), nil
}

// RetailerStats 超市当前价统计
type RetailerStats struct {
	SupermarketID      uint64              `json:"supermarketId"`
	TotalProducts      int64               `json:"totalProducts"`
	ProductsWithOffers int64               `json:"productsWithOffers"`
	AvgPrice           decimal.NullDecimal `json:"avgPrice"`
	MinPrice           decimal.NullDecimal `json:"minPrice"`
	MaxPrice           decimal.NullDecimal `json:"maxPrice"`
	AvgDiscount        decimal.NullDecimal `json:"avgDiscount"`
}

// StatsByRetailer 超市当前价的数量、均价、最低最高价及平均折扣
func (s *ComparisonService) StatsByRetailer(ctx context.Context, supermarketID uint64) (*RetailerStats, error) {
	sm, err := s.store.Supermarkets.GetByID(ctx, supermarketID)
	if err != nil {
		return nil, fmt.Errorf("查询超市失败: %w", err)
	}
	if sm == nil {
		return nil, fmt.Errorf("超市 %d: %w", supermarketID, model.ErrNotFound)
	}
	row, err := s.store.Prices.StatsBySupermarket(ctx, supermarketID)
	if err != nil {
		return nil, fmt.Errorf("统计超市价格失败: %w", err)
	}
	return &RetailerStats{
		SupermarketID:      supermarketID,
		TotalProducts:      row.TotalProducts,
		ProductsWithOffers: row.ProductsWithOffers,
		AvgPrice:           nullRound2(row.AvgPrice),
		MinPrice:           nullRound2(row.MinPrice),
		MaxPrice:           nullRound2(row.MaxPrice),
		AvgDiscount:        nullRound2(row.AvgDiscount),
	}, nil
}
