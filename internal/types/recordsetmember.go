package types

import (
	"time"

	"github.com/google/uuid"
)

// Membership edge states. A single tagged state instead of independent
// added/removed flags keeps the removed+added combination
// unrepresentable.
const (
	// MemberActive is a settled membership edge.
	MemberActive = "active"
	// MemberPendingAdd marks an edge introduced after the initial
	// population and not yet acknowledged.
	MemberPendingAdd = "pending_add"
	// MemberPendingRemove marks an edge excised from the logical set
	// but retained for audit until purged.
	MemberPendingRemove = "pending_remove"
)

type RecordSetMember struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	RecordSetID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_record_set_member_edge" json:"record_set_id"`
	RecordSet   *RecordSet `gorm:"constraint:OnDelete:CASCADE;foreignKey:RecordSetID;references:ID" json:"record_set,omitempty"`
	RecordID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_record_set_member_edge" json:"record_id"`
	Record      *Record    `gorm:"constraint:OnDelete:CASCADE;foreignKey:RecordID;references:ID" json:"record,omitempty"`
	State       string     `gorm:"column:state;not null;default:'active';index" json:"state"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

func (RecordSetMember) TableName() string {
	return "record_set_member"
}

// Active reports whether the edge counts toward the logical set.
func (m *RecordSetMember) Active() bool {
	return m.State != MemberPendingRemove
}
