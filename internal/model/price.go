package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Price 商品的价格观测，每个商品至多一条 is_current=true
type Price struct {
	ID                 uint64              `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ProductID          uint64              `gorm:"column:product_id;not null;index;uniqueIndex:uq_prices_current,where:is_current = true" json:"productId"`
	NormalPrice        decimal.Decimal     `gorm:"column:normal_price;type:numeric(12,2);not null" json:"normalPrice"`
	OfferPrice         decimal.NullDecimal `gorm:"column:offer_price;type:numeric(12,2)" json:"offerPrice"`
	DiscountPercentage decimal.NullDecimal `gorm:"column:discount_percentage;type:numeric(5,2)" json:"discountPercentage"`
	HasOffer           bool                `gorm:"column:has_offer;type:boolean;not null" json:"hasOffer"`
	OfferDescription   *string             `gorm:"column:offer_description;type:varchar(512)" json:"offerDescription,omitempty"`
	PricePerUnit       decimal.NullDecimal `gorm:"column:price_per_unit;type:numeric(12,2)" json:"pricePerUnit"`
	Currency           string              `gorm:"column:currency;type:varchar(3);not null" json:"currency"`
	IsCurrent          bool                `gorm:"column:is_current;type:boolean;not null;index" json:"isCurrent"`
	EffectiveDate      time.Time           `gorm:"column:effective_date;not null;index" json:"effectiveDate"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (Price) TableName() string { return "prices" }

// EffectivePrice 有优惠价时取优惠价，否则取原价
func (p *Price) EffectivePrice() decimal.Decimal {
	if p.OfferPrice.Valid {
		return p.OfferPrice.Decimal
	}
	return p.NormalPrice
}

// PriceHistory 价格变化时间线，与 prices 在同一事务内追加
type PriceHistory struct {
	ID                 uint64              `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ProductID          uint64              `gorm:"column:product_id;not null;index:idx_history_product_time,priority:1" json:"productId"`
	PriceID            uint64              `gorm:"column:price_id;not null" json:"priceId"`
	NormalPrice        decimal.Decimal     `gorm:"column:normal_price;type:numeric(12,2);not null" json:"normalPrice"`
	OfferPrice         decimal.NullDecimal `gorm:"column:offer_price;type:numeric(12,2)" json:"offerPrice"`
	EffectivePrice     decimal.Decimal     `gorm:"column:effective_price;type:numeric(12,2);not null" json:"effectivePrice"`
	HasOffer           bool                `gorm:"column:has_offer;type:boolean;not null" json:"hasOffer"`
	DiscountPercentage decimal.NullDecimal `gorm:"column:discount_percentage;type:numeric(5,2)" json:"discountPercentage"`
	RecordedAt         time.Time           `gorm:"column:recorded_at;not null;index:idx_history_product_time,priority:2" json:"recordedAt"`
}

func (PriceHistory) TableName() string { return "price_history" }

// PriceObservation 一次价格观测的输入
type PriceObservation struct {
	NormalPrice      decimal.Decimal
	OfferPrice       decimal.NullDecimal
	OfferDescription *string
	PricePerUnit     decimal.NullDecimal
	Currency         string
	ObservedAt       time.Time
}

// PricePatch 管理端修正当前价格，nil 表示不修改；ClearOffer 撤销优惠价及其描述
type PricePatch struct {
	NormalPrice      *decimal.Decimal `json:"normalPrice"`
	OfferPrice       *decimal.Decimal `json:"offerPrice"`
	OfferDescription *string          `json:"offerDescription"`
	PricePerUnit     *decimal.Decimal `json:"pricePerUnit"`
	ClearOffer       bool             `json:"clearOffer"`
}
