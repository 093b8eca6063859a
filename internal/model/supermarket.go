package model

import "time"

// DefaultLocation 未配置时的默认城市
const DefaultLocation = "Temuco"

// Supermarket 超市（零售商），slug 创建时由名称生成且之后不变
type Supermarket struct {
	ID         uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name       string    `gorm:"column:name;type:varchar(128);not null" json:"name"`
	Slug       string    `gorm:"column:slug;type:varchar(128);not null;uniqueIndex" json:"slug"`
	WebsiteURL *string   `gorm:"column:website_url;type:varchar(512)" json:"websiteUrl,omitempty"`
	LogoURL    *string   `gorm:"column:logo_url;type:varchar(512)" json:"logoUrl,omitempty"`
	ChainGroup *string   `gorm:"column:chain_group;type:varchar(128);index" json:"chainGroup,omitempty"` // 所属集团，如 Cencosud
	Location   string    `gorm:"column:location;type:varchar(128);not null" json:"location"`
	IsActive   bool      `gorm:"column:is_active;type:boolean;not null" json:"isActive"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (Supermarket) TableName() string { return "supermarkets" }

// SupermarketPatch 超市可修改字段，nil 表示不修改
type SupermarketPatch struct {
	Name       *string `json:"name"`
	WebsiteURL *string `json:"websiteUrl"`
	LogoURL    *string `json:"logoUrl"`
	ChainGroup *string `json:"chainGroup"`
	Location   *string `json:"location"`
	IsActive   *bool   `json:"isActive"`

	RegenerateSlug bool `json:"regenerateSlug"` // 为 true 时按新名称重新生成 slug
}
