package model

import "time"

// ProductMatch 跨超市同款商品聚类成员
// master_product_id 为聚类代表商品的 id；每个商品至多属于一个聚类
type ProductMatch struct {
	ID               uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	MasterProductID  uint64    `gorm:"column:master_product_id;not null;index" json:"masterProductId"`
	MatchedProductID uint64    `gorm:"column:matched_product_id;not null;uniqueIndex" json:"matchedProductId"`
	SimilarityScore  float64   `gorm:"column:similarity_score;type:numeric(5,4);not null" json:"similarityScore"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (ProductMatch) TableName() string { return "product_matches" }

// SimilarProduct 相似度查询结果
type SimilarProduct struct {
	ProductID      uint64  `json:"productId"`
	SupermarketID  uint64  `json:"supermarketId"`
	Name           string  `json:"name"`
	NormalizedName string  `json:"normalizedName"`
	Score          float64 `json:"score"`
}

// Cluster 聚类概要
type Cluster struct {
	MasterProductID uint64 `json:"masterProductId"`
	Name            string `json:"name"`
	Members         int64  `json:"members"`
}
