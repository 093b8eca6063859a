package model

import (
	"time"

	"gorm.io/datatypes"
)

// Product 某个超市上架的商品
// 身份：(supermarket_id, external_id)；无 external_id 时退化为 (supermarket_id, name)
type Product struct {
	ID             uint64         `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	SupermarketID  uint64         `gorm:"column:supermarket_id;not null;index;uniqueIndex:uq_products_external,priority:1;uniqueIndex:uq_products_name,priority:1,where:external_id IS NULL" json:"supermarketId"`
	ExternalID     *string        `gorm:"column:external_id;type:varchar(128);uniqueIndex:uq_products_external,priority:2" json:"externalId,omitempty"`
	Name           string         `gorm:"column:name;type:varchar(512);not null;uniqueIndex:uq_products_name,priority:2,where:external_id IS NULL" json:"name"`
	NormalizedName string         `gorm:"column:normalized_name;type:varchar(512);not null;index" json:"normalizedName"`
	Description    *string        `gorm:"column:description;type:text" json:"description,omitempty"`
	Brand          *string        `gorm:"column:brand;type:varchar(128)" json:"brand,omitempty"`
	Category       *string        `gorm:"column:category;type:varchar(128);index" json:"category,omitempty"`
	Subcategory    *string        `gorm:"column:subcategory;type:varchar(128)" json:"subcategory,omitempty"`
	Unit           *string        `gorm:"column:unit;type:varchar(32)" json:"unit,omitempty"`
	UnitSize       *string        `gorm:"column:unit_size;type:varchar(32)" json:"unitSize,omitempty"`
	ImageURL       *string        `gorm:"column:image_url;type:varchar(1024)" json:"imageUrl,omitempty"`
	Images         datatypes.JSON `gorm:"column:images;type:jsonb" json:"images,omitempty"` // 附加图片列表
	ProductURL     *string        `gorm:"column:product_url;type:varchar(1024)" json:"productUrl,omitempty"`
	Barcode        *string        `gorm:"column:barcode;type:varchar(64);index" json:"barcode,omitempty"`
	IsAvailable    bool           `gorm:"column:is_available;type:boolean;not null" json:"isAvailable"`
	LastScrapedAt  time.Time      `gorm:"column:last_scraped_at;not null" json:"lastScrapedAt"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (Product) TableName() string { return "products" }

// ProductField 可合并的商品属性名
type ProductField string

const (
	FieldName        ProductField = "name"
	FieldDescription ProductField = "description"
	FieldBrand       ProductField = "brand"
	FieldCategory    ProductField = "category"
	FieldSubcategory ProductField = "subcategory"
	FieldUnit        ProductField = "unit"
	FieldUnitSize    ProductField = "unitSize"
	FieldImageURL    ProductField = "imageUrl"
	FieldImages      ProductField = "images"
	FieldProductURL  ProductField = "productUrl"
	FieldBarcode     ProductField = "barcode"
	FieldAvailable   ProductField = "isAvailable"
)

// FieldSet 本次抓取中出现的字段
type FieldSet map[ProductField]bool

// ProductAttributes 一次抓取携带的商品属性，nil 表示本次未提供
type ProductAttributes struct {
	Name        *string
	Description *string
	Brand       *string
	Category    *string
	Subcategory *string
	Unit        *string
	UnitSize    *string
	ImageURL    *string
	Images      []string
	ProductURL  *string
	Barcode     *string
	IsAvailable *bool
	ScrapedAt   time.Time
}

// Presence 根据非空字段生成 FieldSet
func (a ProductAttributes) Presence() FieldSet {
	fs := FieldSet{}
	set := func(f ProductField, ok bool) {
		if ok {
			fs[f] = true
		}
	}
	set(FieldName, a.Name != nil)
	set(FieldDescription, a.Description != nil)
	set(FieldBrand, a.Brand != nil)
	set(FieldCategory, a.Category != nil)
	set(FieldSubcategory, a.Subcategory != nil)
	set(FieldUnit, a.Unit != nil)
	set(FieldUnitSize, a.UnitSize != nil)
	set(FieldImageURL, a.ImageURL != nil)
	set(FieldImages, a.Images != nil)
	set(FieldProductURL, a.ProductURL != nil)
	set(FieldBarcode, a.Barcode != nil)
	set(FieldAvailable, a.IsAvailable != nil)
	return fs
}

// ProductWithPrice 商品及其当前价格
type ProductWithPrice struct {
	Product
	Supermarket  *Supermarket `json:"supermarket,omitempty"`
	CurrentPrice *Price       `json:"currentPrice,omitempty"`
}
