package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScrapedProduct 抓取/推送的原始商品记录
type ScrapedProduct struct {
	Supermarket      string              `json:"supermarket"` // 超市 slug
	ExternalID       *string             `json:"externalId,omitempty"`
	Name             string              `json:"name"`
	Description      *string             `json:"description,omitempty"`
	Brand            *string             `json:"brand,omitempty"`
	Category         *string             `json:"category,omitempty"`
	Subcategory      *string             `json:"subcategory,omitempty"`
	Unit             *string             `json:"unit,omitempty"`
	UnitSize         *string             `json:"unitSize,omitempty"`
	ImageURL         *string             `json:"imageUrl,omitempty"`
	Images           []string            `json:"images,omitempty"`
	ProductURL       *string             `json:"productUrl,omitempty"`
	Barcode          *string             `json:"barcode,omitempty"`
	NormalPrice      decimal.Decimal     `json:"normalPrice"`
	OfferPrice       decimal.NullDecimal `json:"offerPrice"`
	OfferDescription *string             `json:"offerDescription,omitempty"`
	PricePerUnit     decimal.NullDecimal `json:"pricePerUnit"`
	Currency         string              `json:"currency,omitempty"`
	IsAvailable      *bool               `json:"isAvailable,omitempty"`
	ScrapedAt        *time.Time          `json:"scrapedAt,omitempty"`
}

// Attributes 提取商品属性部分
func (s *ScrapedProduct) Attributes() ProductAttributes {
	name := s.Name
	attrs := ProductAttributes{
		Name:        &name,
		Description: s.Description,
		Brand:       s.Brand,
		Category:    s.Category,
		Subcategory: s.Subcategory,
		Unit:        s.Unit,
		UnitSize:    s.UnitSize,
		ImageURL:    s.ImageURL,
		Images:      s.Images,
		ProductURL:  s.ProductURL,
		Barcode:     s.Barcode,
		IsAvailable: s.IsAvailable,
	}
	if s.ScrapedAt != nil {
		attrs.ScrapedAt = *s.ScrapedAt
	}
	return attrs
}

// Observation 提取价格观测部分
func (s *ScrapedProduct) Observation() PriceObservation {
	obs := PriceObservation{
		NormalPrice:      s.NormalPrice,
		OfferPrice:       s.OfferPrice,
		OfferDescription: s.OfferDescription,
		PricePerUnit:     s.PricePerUnit,
		Currency:         s.Currency,
	}
	if s.ScrapedAt != nil {
		obs.ObservedAt = *s.ScrapedAt
	}
	return obs
}
