package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ObjectTypeRecord is the only object type shipped with the service.
// The column exists so that sets created against different member
// tables can never be combined by accident.
const ObjectTypeRecord = "record"

type RecordSet struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string         `gorm:"column:name" json:"name"`
	Description string         `gorm:"column:description" json:"description"`
	ObjectType  string         `gorm:"column:object_type;not null;default:'record';index" json:"object_type"`
	// Stored count of active members. Mutations are incremental and
	// applied with members in memory, so this avoids a database count
	// on every read.
	Count      int            `gorm:"column:count;not null;default:0" json:"count"`
	SessionKey string         `gorm:"column:session_key;index" json:"-"`
	Metadata   datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	CreatedAt  time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null" json:"modified_at"`
}

func (RecordSet) TableName() string {
	return "record_set"
}
