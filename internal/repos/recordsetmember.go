package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/objectset-backend/internal/logger"
	"github.com/yungbote/objectset-backend/internal/types"
)

type RecordSetMemberRepo interface {
	Create(ctx context.Context, tx *gorm.DB, members []*types.RecordSetMember) ([]*types.RecordSetMember, error)
	GetBySetID(ctx context.Context, tx *gorm.DB, setID uuid.UUID, includeRemoved bool) ([]*types.RecordSetMember, error)
	GetBySetAndRecordIDs(ctx context.Context, tx *gorm.DB, setID uuid.UUID, recordIDs []uuid.UUID) ([]*types.RecordSetMember, error)
	UpdateStateByIDs(ctx context.Context, tx *gorm.DB, memberIDs []uuid.UUID, state string) error
	FullDeleteByIDs(ctx context.Context, tx *gorm.DB, memberIDs []uuid.UUID) error
	FullDeleteBySetID(ctx context.Context, tx *gorm.DB, setID uuid.UUID) error
	FullDeleteRemovedBySetID(ctx context.Context, tx *gorm.DB, setID uuid.UUID) (int64, error)
	FullDeleteRemoved(ctx context.Context, tx *gorm.DB) (int64, error)
	CountRemoved(ctx context.Context, tx *gorm.DB) (int64, error)
}

type recordSetMemberRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecordSetMemberRepo(db *gorm.DB, baseLog *logger.Logger) RecordSetMemberRepo {
	repoLog := baseLog.With("repo", "RecordSetMemberRepo")
	return &recordSetMemberRepo{db: db, log: repoLog}
}

func (r *recordSetMemberRepo) Create(ctx context.Context, tx *gorm.DB, members []*types.RecordSetMember) ([]*types.RecordSetMember, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(members) == 0 {
		return []*types.RecordSetMember{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// GetBySetID returns the set's membership rows in creation order.
// Rows in pending_remove state are excluded unless includeRemoved is
// set.
func (r *recordSetMemberRepo) GetBySetID(ctx context.Context, tx *gorm.DB, setID uuid.UUID, includeRemoved bool) ([]*types.RecordSetMember, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	query := transaction.WithContext(ctx).
		Where("record_set_id = ?", setID).
		Order("created_at ASC")
	if !includeRemoved {
		query = query.Where("state <> ?", types.MemberPendingRemove)
	}

	var results []*types.RecordSetMember
	if err := query.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *recordSetMemberRepo) GetBySetAndRecordIDs(ctx context.Context, tx *gorm.DB, setID uuid.UUID, recordIDs []uuid.UUID) ([]*types.RecordSetMember, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.RecordSetMember
	if len(recordIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("record_set_id = ? AND record_id IN ?", setID, recordIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *recordSetMemberRepo) UpdateStateByIDs(ctx context.Context, tx *gorm.DB, memberIDs []uuid.UUID, state string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(memberIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Model(&types.RecordSetMember{}).
		Where("id IN ?", memberIDs).
		Updates(map[string]interface{}{
			"state":      state,
			"updated_at": time.Now(),
		}).Error; err != nil {
		return err
	}
	return nil
}

func (r *recordSetMemberRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, memberIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(memberIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", memberIDs).
		Delete(&types.RecordSetMember{}).Error; err != nil {
		return err
	}
	return nil
}

func (r *recordSetMemberRepo) FullDeleteBySetID(ctx context.Context, tx *gorm.DB, setID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Where("record_set_id = ?", setID).
		Delete(&types.RecordSetMember{}).Error; err != nil {
		return err
	}
	return nil
}

func (r *recordSetMemberRepo) FullDeleteRemovedBySetID(ctx context.Context, tx *gorm.DB, setID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	result := transaction.WithContext(ctx).
		Where("record_set_id = ? AND state = ?", setID, types.MemberPendingRemove).
		Delete(&types.RecordSetMember{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// CountRemoved reports how many rows across all sets are flagged
// pending_remove and would go away on the next purge.
func (r *recordSetMemberRepo) CountRemoved(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.RecordSetMember{}).
		Where("state = ?", types.MemberPendingRemove).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *recordSetMemberRepo) FullDeleteRemoved(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	result := transaction.WithContext(ctx).
		Where("state = ?", types.MemberPendingRemove).
		Delete(&types.RecordSetMember{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
