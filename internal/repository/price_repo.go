package repository

import (
	"context"
	"time"

	"PriceSync/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PriceRepository 价格与价格历史仓储
type PriceRepository interface {
	// RetireCurrent 将商品当前价置为历史
	RetireCurrent(ctx context.Context, productID uint64) error
	Create(ctx context.Context, p *model.Price) error
	AppendHistory(ctx context.Context, h *model.PriceHistory) error
	GetByID(ctx context.Context, id uint64) (*model.Price, error)
	GetCurrent(ctx context.Context, productID uint64) (*model.Price, error)
	GetCurrentByProducts(ctx context.Context, productIDs []uint64) (map[uint64]*model.Price, error)
	UpdateFields(ctx context.Context, id uint64, fields map[string]interface{}) error
	History(ctx context.Context, productID uint64, limit, offset int) ([]*model.PriceHistory, error)
	ListOffers(ctx context.Context, supermarketID uint64, limit, offset int) ([]*OfferRow, int64, error)
	ComparisonRows(ctx context.Context, masterProductID uint64) ([]*ComparisonRow, error)
	StatsBySupermarket(ctx context.Context, supermarketID uint64) (*PriceStatsRow, error)
}

// ComparisonRow 聚类成员的当前报价
type ComparisonRow struct {
	ProductID          uint64
	ProductName        string
	Brand              *string
	Unit               *string
	UnitSize           *string
	ImageURL           *string
	ProductURL         *string
	SupermarketID      uint64
	SupermarketName    string
	SupermarketSlug    string
	ChainGroup         *string
	NormalPrice        decimal.Decimal
	OfferPrice         decimal.NullDecimal
	EffectivePrice     decimal.Decimal
	HasOffer           bool
	DiscountPercentage decimal.NullDecimal
	PricePerUnit       decimal.NullDecimal
	OfferDescription   *string
	EffectiveDate      time.Time
	SimilarityScore    float64
}

// OfferRow 优惠列表行
type OfferRow struct {
	PriceID            uint64
	ProductID          uint64
	ProductName        string
	Brand              *string
	Category           *string
	ImageURL           *string
	SupermarketID      uint64
	SupermarketName    string
	SupermarketSlug    string
	NormalPrice        decimal.Decimal
	OfferPrice         decimal.NullDecimal
	DiscountPercentage decimal.NullDecimal
	OfferDescription   *string
	EffectiveDate      time.Time
}

// PriceStatsRow 单个超市在售商品当前价聚合
type PriceStatsRow struct {
	TotalProducts      int64
	ProductsWithOffers int64
	AvgPrice           decimal.NullDecimal
	MinPrice           decimal.NullDecimal
	MaxPrice           decimal.NullDecimal
	AvgDiscount        decimal.NullDecimal
}

type priceRepository struct {
	db *gorm.DB
}

func NewPriceRepository(db *gorm.DB) PriceRepository {
	return &priceRepository{db: db}
}

func (r *priceRepository) RetireCurrent(ctx context.Context, productID uint64) error {
	return r.db.WithContext(ctx).Model(&model.Price{}).
		Where("product_id = ? AND is_current = ?", productID, true).
		Update("is_current", false).Error
}

func (r *priceRepository) Create(ctx context.Context, p *model.Price) error {
	return translate(r.db.WithContext(ctx).Create(p).Error, "price")
}

func (r *priceRepository) AppendHistory(ctx context.Context, h *model.PriceHistory) error {
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *priceRepository) GetByID(ctx context.Context, id uint64) (*model.Price, error) {
	return firstOrNil[model.Price](r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *priceRepository) GetCurrent(ctx context.Context, productID uint64) (*model.Price, error) {
	return firstOrNil[model.Price](r.db.WithContext(ctx).
		Where("product_id = ? AND is_current = ?", productID, true))
}

func (r *priceRepository) GetCurrentByProducts(ctx context.Context, productIDs []uint64) (map[uint64]*model.Price, error) {
	out := make(map[uint64]*model.Price, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	var list []*model.Price
	if err := r.db.WithContext(ctx).
		Where("product_id IN ? AND is_current = ?", productIDs, true).
		Find(&list).Error; err != nil {
		return nil, err
	}
	for _, p := range list {
		out[p.ProductID] = p
	}
	return out, nil
}

func (r *priceRepository) UpdateFields(ctx context.Context, id uint64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Price{}).Where("id = ?", id).Updates(fields).Error
}

func (r *priceRepository) History(ctx context.Context, productID uint64, limit, offset int) ([]*model.PriceHistory, error) {
	var list []*model.PriceHistory
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("recorded_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *priceRepository) ListOffers(ctx context.Context, supermarketID uint64, limit, offset int) ([]*OfferRow, int64, error) {
	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Table("prices AS pr").
			Joins("JOIN products p ON p.id = pr.product_id").
			Joins("JOIN supermarkets s ON s.id = p.supermarket_id").
			Where("pr.is_current = ? AND pr.has_offer = ? AND p.is_available = ?", true, true, true)
		if supermarketID != 0 {
			q = q.Where("p.supermarket_id = ?", supermarketID)
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []*OfferRow
	if err := base().Select(`pr.id AS price_id, p.id AS product_id, p.name AS product_name, p.brand, p.category, p.image_url,
			s.id AS supermarket_id, s.name AS supermarket_name, s.slug AS supermarket_slug,
			pr.normal_price, pr.offer_price, pr.discount_percentage, pr.offer_description, pr.effective_date`).
		Order("pr.discount_percentage DESC, pr.id ASC").
		Offset(offset).Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *priceRepository) ComparisonRows(ctx context.Context, masterProductID uint64) ([]*ComparisonRow, error) {
	var rows []*ComparisonRow
	err := r.db.WithContext(ctx).Table("product_matches AS pm").
		Select(`p.id AS product_id, p.name AS product_name, p.brand, p.unit, p.unit_size, p.image_url, p.product_url,
			s.id AS supermarket_id, s.name AS supermarket_name, s.slug AS supermarket_slug, s.chain_group,
			pr.normal_price, pr.offer_price, COALESCE(pr.offer_price, pr.normal_price) AS effective_price,
			pr.has_offer, pr.discount_percentage, pr.price_per_unit, pr.offer_description, pr.effective_date,
			pm.similarity_score`).
		Joins("JOIN products p ON p.id = pm.matched_product_id").
		Joins("JOIN supermarkets s ON s.id = p.supermarket_id").
		Joins("JOIN prices pr ON pr.product_id = p.id AND pr.is_current = ?", true).
		Where("pm.master_product_id = ? AND p.is_available = ? AND s.is_active = ?", masterProductID, true, true).
		Order("effective_price ASC, p.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *priceRepository) StatsBySupermarket(ctx context.Context, supermarketID uint64) (*PriceStatsRow, error) {
	var row PriceStatsRow
	err := r.db.WithContext(ctx).Table("products AS p").
		Select(`COUNT(*) AS total_products,
			COALESCE(SUM(CASE WHEN pr.has_offer THEN 1 ELSE 0 END), 0) AS products_with_offers,
			AVG(COALESCE(pr.offer_price, pr.normal_price)) AS avg_price,
			MIN(COALESCE(pr.offer_price, pr.normal_price)) AS min_price,
			MAX(COALESCE(pr.offer_price, pr.normal_price)) AS max_price,
			AVG(CASE WHEN pr.has_offer THEN pr.discount_percentage END) AS avg_discount`).
		Joins("JOIN prices pr ON pr.product_id = p.id AND pr.is_current = ?", true).
		Where("p.supermarket_id = ? AND p.is_available = ?", supermarketID, true).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}
