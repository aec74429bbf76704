package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dekorekillian57-star/spendo/pkg/enums"
)

// Package is a purchasable catalog entry (bundle, airtime, subscription...).
type Package struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Type        enums.PackageType `gorm:"column:type;type:package_type;not null"`
	Name        string            `gorm:"column:name;not null"`
	Price       decimal.Decimal   `gorm:"column:price;type:numeric(10,2);not null"`
	Network     *string           `gorm:"column:network"`
	Description *string           `gorm:"column:description"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (Package) TableName() string { return "packages" }
