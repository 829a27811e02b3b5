package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/objectset-backend/internal/logger"
	"github.com/yungbote/objectset-backend/internal/repos"
	"github.com/yungbote/objectset-backend/internal/types"
)

type RecordService interface {
	CreateRecord(ctx context.Context, tx *gorm.DB, label string, metadata datatypes.JSON) (*types.Record, error)
	CreateRecords(ctx context.Context, tx *gorm.DB, labels []string) ([]*types.Record, error)
	ListRecords(ctx context.Context, tx *gorm.DB) ([]*types.Record, error)
}

type recordService struct {
	db         *gorm.DB
	log        *logger.Logger
	recordRepo repos.RecordRepo
}

func NewRecordService(db *gorm.DB, baseLog *logger.Logger, recordRepo repos.RecordRepo) RecordService {
	serviceLog := baseLog.With("service", "RecordService")
	return &recordService{db: db, log: serviceLog, recordRepo: recordRepo}
}

func (rs *recordService) CreateRecord(ctx context.Context, tx *gorm.DB, label string, metadata datatypes.JSON) (*types.Record, error) {
	now := time.Now()
	record := &types.Record{
		ID:        uuid.New(),
		Label:     label,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := rs.recordRepo.Create(ctx, tx, []*types.Record{record}); err != nil {
		rs.log.Error("CreateRecord failed", "error", err)
		return nil, fmt.Errorf("create record: %w", err)
	}
	return record, nil
}

func (rs *recordService) CreateRecords(ctx context.Context, tx *gorm.DB, labels []string) ([]*types.Record, error) {
	now := time.Now()
	records := make([]*types.Record, 0, len(labels))
	for _, label := range labels {
		records = append(records, &types.Record{
			ID:        uuid.New(),
			Label:     label,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	if _, err := rs.recordRepo.Create(ctx, tx, records); err != nil {
		rs.log.Error("CreateRecords failed", "error", err)
		return nil, fmt.Errorf("create records: %w", err)
	}
	return records, nil
}

func (rs *recordService) ListRecords(ctx context.Context, tx *gorm.DB) ([]*types.Record, error) {
	return rs.recordRepo.List(ctx, tx)
}
