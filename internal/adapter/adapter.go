package adapter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"PriceSync/internal/config"
	"PriceSync/internal/interfaces"
	"PriceSync/internal/model"
	"PriceSync/internal/utils/textnorm"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Factory 数据源适配器工厂函数签名
// 入参：超市 slug、数据源配置、日志实例
type Factory func(slug string, cfg *config.FeedConfig, logger *logrus.Logger) (interfaces.FeedAdapter, error)

// DefaultFactories 内置数据源类型
func DefaultFactories() map[string]Factory {
	return map[string]Factory{
		"file": NewJSONFileAdapter,
		"http": NewHTTPJSONAdapter,
	}
}

// rawItem 数据源中的原始商品，价格可能是数字或 "$1.990" 形式的文本
type rawItem struct {
	ExternalID       flexString      `json:"externalId"`
	Name             string          `json:"name"`
	Description      *string         `json:"description"`
	Brand            *string         `json:"brand"`
	Category         *string         `json:"category"`
	Subcategory      *string         `json:"subcategory"`
	Unit             *string         `json:"unit"`
	UnitSize         flexString      `json:"unitSize"`
	ImageURL         *string         `json:"imageUrl"`
	Images           []string        `json:"images"`
	ProductURL       *string         `json:"productUrl"`
	Barcode          flexString      `json:"barcode"`
	NormalPrice      json.RawMessage `json:"normalPrice"`
	OfferPrice       json.RawMessage `json:"offerPrice"`
	OfferDescription *string         `json:"offerDescription"`
	PricePerUnit     json.RawMessage `json:"pricePerUnit"`
	Currency         string          `json:"currency"`
	IsAvailable      *bool           `json:"isAvailable"`
	ScrapedAt        *time.Time      `json:"scrapedAt"`
}

// flexString 兼容字符串与数字
type flexString struct {
	Value *string
}

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		f.Value = nil
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		f.Value = &s
		return nil
	}
	s := string(b)
	f.Value = &s
	return nil
}

// parsePrice 空值返回 Valid=false
func parsePrice(raw json.RawMessage) (decimal.NullDecimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return decimal.NullDecimal{}, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.NullDecimal{}, err
		}
		if strings.TrimSpace(s) == "" {
			return decimal.NullDecimal{}, nil
		}
		d, err := textnorm.ParsePriceText(s)
		if err != nil {
			return decimal.NullDecimal{}, err
		}
		return decimal.NewNullDecimal(d), nil
	}
	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("解析价格失败 %s: %w", raw, err)
	}
	return decimal.NewNullDecimal(d), nil
}

// toScraped 原始记录转换为入库记录；价格无法解析的记录跳过并记录日志
func toScraped(slug string, items []rawItem, logger *logrus.Logger) []*model.ScrapedProduct {
	out := make([]*model.ScrapedProduct, 0, len(items))
	for i, it := range items {
		normal, err := parsePrice(it.NormalPrice)
		if err == nil && !normal.Valid {
			err = fmt.Errorf("缺少 normalPrice")
		}
		if err != nil {
			logger.WithError(err).WithFields(logrus.Fields{"slug": slug, "index": i, "name": it.Name}).Warn("原价解析失败，跳过该记录")
			continue
		}
		offer, err := parsePrice(it.OfferPrice)
		if err != nil {
			logger.WithError(err).WithFields(logrus.Fields{"slug": slug, "index": i}).Warn("优惠价解析失败，按无优惠处理")
			offer = decimal.NullDecimal{}
		}
		ppu, err := parsePrice(it.PricePerUnit)
		if err != nil {
			ppu = decimal.NullDecimal{}
		}
		out = append(out, &model.ScrapedProduct{
			Supermarket:      slug,
			ExternalID:       it.ExternalID.Value,
			Name:             it.Name,
			Description:      it.Description,
			Brand:            it.Brand,
			Category:         it.Category,
			Subcategory:      it.Subcategory,
			Unit:             it.Unit,
			UnitSize:         it.UnitSize.Value,
			ImageURL:         it.ImageURL,
			Images:           it.Images,
			ProductURL:       it.ProductURL,
			Barcode:          it.Barcode.Value,
			NormalPrice:      normal.Decimal,
			OfferPrice:       offer,
			OfferDescription: it.OfferDescription,
			PricePerUnit:     ppu,
			Currency:         it.Currency,
			IsAvailable:      it.IsAvailable,
			ScrapedAt:        it.ScrapedAt,
		})
	}
	return out
}

// feedPage 分页数据源的响应格式；也接受顶层数组
type feedPage struct {
	Items []rawItem `json:"items"`
	Next  string    `json:"next"`
}

// decodeFeed 解析数组或 {"items": [...], "next": "..."}
func decodeFeed(body []byte) (*feedPage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return &feedPage{}, nil
	}
	if body[0] == '[' {
		var items []rawItem
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("解析数据源失败: %w", err)
		}
		return &feedPage{Items: items}, nil
	}
	var page feedPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("解析数据源失败: %w", err)
	}
	return &page, nil
}
