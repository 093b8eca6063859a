package model

import "time"

// ScrapeRun 一次批量入库的执行记录
type ScrapeRun struct {
	ID            uint64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	RunUUID       string     `gorm:"column:run_uuid;type:varchar(64);not null;uniqueIndex" json:"runUuid"`
	SupermarketID uint64     `gorm:"column:supermarket_id;not null;index" json:"supermarketId"`
	Source        string     `gorm:"column:source;type:varchar(16);not null" json:"source"` // api / feed
	Received      int        `gorm:"column:received;not null" json:"received"`
	Created       int        `gorm:"column:created;not null" json:"created"`
	Updated       int        `gorm:"column:updated;not null" json:"updated"`
	Rejected      int        `gorm:"column:rejected;not null" json:"rejected"`
	Failed        int        `gorm:"column:failed;not null" json:"failed"`
	StartedAt     time.Time  `gorm:"column:started_at;not null" json:"startedAt"`
	FinishedAt    *time.Time `gorm:"column:finished_at" json:"finishedAt,omitempty"`
	Error         *string    `gorm:"column:error;type:text" json:"error,omitempty"`
}

func (ScrapeRun) TableName() string { return "scrape_runs" }
