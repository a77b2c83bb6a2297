package model

import (
	"time"

	"gorm.io/gorm"
)

// 在庫品目。AvailableQuantityは台帳から導出できる値のキャッシュ。
type StockItem struct {
	ID                int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ModelName         string         `gorm:"type:varchar(255);not null;index" json:"modelName"`
	CategoryID        int64          `gorm:"not null;index" json:"categoryId"`
	InitialQuantity   int64          `gorm:"not null" json:"initialQuantity"`
	AvailableQuantity int64          `gorm:"not null" json:"availableQuantity"`
	Date              time.Time      `gorm:"not null" json:"date"`
	CreatedAt         time.Time      `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time      `gorm:"not null;autoUpdateTime" json:"updatedAt"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

// 0 <= available <= initial
func (s StockItem) WithinBounds() bool {
	return s.AvailableQuantity >= 0 && s.AvailableQuantity <= s.InitialQuantity
}
