package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Record struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Label     string         `gorm:"column:label" json:"label"`
	Metadata  datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

func (Record) TableName() string {
	return "record"
}
