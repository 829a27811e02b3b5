package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/objectset-backend/internal/logger"
	"github.com/yungbote/objectset-backend/internal/types"
)

type RecordRepo interface {
	Create(ctx context.Context, tx *gorm.DB, records []*types.Record) ([]*types.Record, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, recordIDs []uuid.UUID) ([]*types.Record, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.Record, error)
	FullDeleteByIDs(ctx context.Context, tx *gorm.DB, recordIDs []uuid.UUID) error
}

type recordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecordRepo(db *gorm.DB, baseLog *logger.Logger) RecordRepo {
	repoLog := baseLog.With("repo", "RecordRepo")
	return &recordRepo{db: db, log: repoLog}
}

func (r *recordRepo) Create(ctx context.Context, tx *gorm.DB, records []*types.Record) ([]*types.Record, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(records) == 0 {
		return []*types.Record{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *recordRepo) GetByIDs(ctx context.Context, tx *gorm.DB, recordIDs []uuid.UUID) ([]*types.Record, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Record
	if len(recordIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", recordIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *recordRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.Record, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Record
	if err := transaction.WithContext(ctx).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *recordRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, recordIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(recordIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", recordIDs).
		Delete(&types.Record{}).Error; err != nil {
		return err
	}
	return nil
}
