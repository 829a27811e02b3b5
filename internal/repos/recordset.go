package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/objectset-backend/internal/apperrors"
	"github.com/yungbote/objectset-backend/internal/logger"
	"github.com/yungbote/objectset-backend/internal/types"
)

type RecordSetRepo interface {
	Create(ctx context.Context, tx *gorm.DB, sets []*types.RecordSet) ([]*types.RecordSet, error)
	GetByID(ctx context.Context, tx *gorm.DB, setID uuid.UUID) (*types.RecordSet, error)
	List(ctx context.Context, tx *gorm.DB, sessionKey string) ([]*types.RecordSet, error)
	UpdateCount(ctx context.Context, tx *gorm.DB, setID uuid.UUID, count int) error
	FullDeleteByID(ctx context.Context, tx *gorm.DB, setID uuid.UUID) error
}

type recordSetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecordSetRepo(db *gorm.DB, baseLog *logger.Logger) RecordSetRepo {
	repoLog := baseLog.With("repo", "RecordSetRepo")
	return &recordSetRepo{db: db, log: repoLog}
}

func (r *recordSetRepo) Create(ctx context.Context, tx *gorm.DB, sets []*types.RecordSet) ([]*types.RecordSet, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(sets) == 0 {
		return []*types.RecordSet{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&sets).Error; err != nil {
		return nil, err
	}
	return sets, nil
}

func (r *recordSetRepo) GetByID(ctx context.Context, tx *gorm.DB, setID uuid.UUID) (*types.RecordSet, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.RecordSet
	if err := transaction.WithContext(ctx).
		Where("id = ?", setID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

// List returns unscoped sets plus, when a session key is given, the
// sets stamped with it. Sets scoped to other sessions never surface.
func (r *recordSetRepo) List(ctx context.Context, tx *gorm.DB, sessionKey string) ([]*types.RecordSet, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	query := transaction.WithContext(ctx).Order("created_at ASC")
	if sessionKey != "" {
		query = query.Where("session_key = '' OR session_key = ?", sessionKey)
	} else {
		query = query.Where("session_key = ''")
	}

	var results []*types.RecordSet
	if err := query.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *recordSetRepo) UpdateCount(ctx context.Context, tx *gorm.DB, setID uuid.UUID, count int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Model(&types.RecordSet{}).
		Where("id = ?", setID).
		Updates(map[string]interface{}{
			"count":      count,
			"updated_at": time.Now(),
		}).Error; err != nil {
		return err
	}
	return nil
}

func (r *recordSetRepo) FullDeleteByID(ctx context.Context, tx *gorm.DB, setID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Where("id = ?", setID).
		Delete(&types.RecordSet{}).Error; err != nil {
		return err
	}
	return nil
}
