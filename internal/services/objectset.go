package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/objectset-backend/internal/apperrors"
	"github.com/yungbote/objectset-backend/internal/logger"
	"github.com/yungbote/objectset-backend/internal/objectset"
	"github.com/yungbote/objectset-backend/internal/repos"
	"github.com/yungbote/objectset-backend/internal/types"
)

// SetOperation is one step of an operations payload: combine the
// working set with either a saved set (SetID) or a literal id list
// (RecordIDs) under the named operator.
type SetOperation struct {
	Operator  string
	SetID     *uuid.UUID
	RecordIDs []uuid.UUID
}

type CreateSetInput struct {
	Name        string
	Description string
	RecordIDs   []uuid.UUID
	Operations  []SetOperation
	SessionKey  string
	Persist     bool
}

type ObjectSetService interface {
	CreateSet(ctx context.Context, tx *gorm.DB, input CreateSetInput) (*objectset.Set, error)
	GetSet(ctx context.Context, tx *gorm.DB, setID uuid.UUID) (*objectset.Set, error)
	ListSets(ctx context.Context, tx *gorm.DB, sessionKey string) ([]*types.RecordSet, error)
	ListMembers(ctx context.Context, tx *gorm.DB, setID uuid.UUID) ([]*types.Record, error)
	SaveSet(ctx context.Context, tx *gorm.DB, s *objectset.Set) (int, error)
	DeleteSet(ctx context.Context, tx *gorm.DB, setID uuid.UUID) error
	AddMembers(ctx context.Context, tx *gorm.DB, setID uuid.UUID, recordIDs []uuid.UUID) (int, error)
	RemoveMembers(ctx context.Context, tx *gorm.DB, setID uuid.UUID, recordIDs []uuid.UUID, hardDelete bool) (int, error)
	ClearSet(ctx context.Context, tx *gorm.DB, setID uuid.UUID, hardDelete bool) (int, error)
	ReplaceMembers(ctx context.Context, tx *gorm.DB, setID uuid.UUID, recordIDs []uuid.UUID, hardDelete bool) (added int, removed int, err error)
	PurgeSet(ctx context.Context, tx *gorm.DB, setID uuid.UUID) (int64, error)
	ApplyOperations(ctx context.Context, tx *gorm.DB, s *objectset.Set, ops []SetOperation) error
}

type objectSetService struct {
	db         *gorm.DB
	log        *logger.Logger
	setRepo    repos.RecordSetRepo
	memberRepo repos.RecordSetMemberRepo
	recordRepo repos.RecordRepo
}

func NewObjectSetService(
	db *gorm.DB,
	baseLog *logger.Logger,
	setRepo repos.RecordSetRepo,
	memberRepo repos.RecordSetMemberRepo,
	recordRepo repos.RecordRepo,
) ObjectSetService {
	serviceLog := baseLog.With("service", "ObjectSetService")
	return &objectSetService{
		db:         db,
		log:        serviceLog,
		setRepo:    setRepo,
		memberRepo: memberRepo,
		recordRepo: recordRepo,
	}
}

// inTx runs fn inside the caller's transaction when one was supplied,
// otherwise inside a fresh one. Compound membership writes always land
// atomically either way.
func (s *objectSetService) inTx(ctx context.Context, tx *gorm.DB, fn func(tx *gorm.DB) error) error {
	if tx != nil {
		return fn(tx)
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

func (s *objectSetService) checkRecordsExist(ctx context.Context, tx *gorm.DB, recordIDs []uuid.UUID) error {
	if len(recordIDs) == 0 {
		return nil
	}
	found, err := s.recordRepo.GetByIDs(ctx, tx, recordIDs)
	if err != nil {
		return fmt.Errorf("look up records: %w", err)
	}
	if len(found) == len(recordIDs) {
		return nil
	}
	known := make(map[uuid.UUID]struct{}, len(found))
	for _, rec := range found {
		known[rec.ID] = struct{}{}
	}
	for _, id := range recordIDs {
		if _, ok := known[id]; !ok {
			return fmt.Errorf("record %s: %w", id, apperrors.ErrUnknownRecord)
		}
	}
	return nil
}

func (s *objectSetService) CreateSet(ctx context.Context, tx *gorm.DB, input CreateSetInput) (*objectset.Set, error) {
	s.log.Info("CreateSet", "name", input.Name, "members", len(input.RecordIDs), "persist", input.Persist)

	working := objectset.New(input.Name, input.RecordIDs)
	working.Model.Description = input.Description
	working.Model.SessionKey = input.SessionKey

	if err := s.ApplyOperations(ctx, tx, working, input.Operations); err != nil {
		return nil, err
	}

	if input.Persist {
		if _, err := s.SaveSet(ctx, tx, working); err != nil {
			return nil, err
		}
	}
	return working, nil
}

func (s *objectSetService) GetSet(ctx context.Context, tx *gorm.DB, setID uuid.UUID) (*objectset.Set, error) {
	model, err := s.setRepo.GetByID(ctx, tx, setID)
	if err != nil {
		return nil, err
	}
	members, err := s.memberRepo.GetBySetID(ctx, tx, setID, false)
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	memberIDs := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		memberIDs = append(memberIDs, m.RecordID)
	}
	return objectset.FromModel(model, memberIDs), nil
}

func (s *objectSetService) ListSets(ctx context.Context, tx *gorm.DB, sessionKey string) ([]*types.RecordSet, error) {
	return s.setRepo.List(ctx, tx, sessionKey)
}

func (s *objectSetService) ListMembers(ctx context.Context, tx *gorm.DB, setID uuid.UUID) ([]*types.Record, error) {
	if setID == uuid.Nil {
		return nil, apperrors.ErrUnsavedSet
	}
	members, err := s.memberRepo.GetBySetID(ctx, tx, setID, false)
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	recordIDs := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		recordIDs = append(recordIDs, m.RecordID)
	}
	records, err := s.recordRepo.GetByIDs(ctx, tx, recordIDs)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	// Present records in membership order.
	byID := make(map[uuid.UUID]*types.Record, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}
	ordered := make([]*types.Record, 0, len(recordIDs))
	for _, id := range recordIDs {
		if rec, ok := byID[id]; ok {
			ordered = append(ordered, rec)
		}
	}
	return ordered, nil
}

// SaveSet reconciles the set's in-memory membership against the
// persisted join rows and reports how many row writes were issued. A
// save with no intervening mutation issues none.
//
// A first save materializes rows in active state; later saves insert
// newcomers as pending_add, revive soft-removed rows back to
// pending_add, and flip departures to pending_remove.
func (s *objectSetService) SaveSet(ctx context.Context, tx *gorm.DB, set *objectset.Set) (int, error) {
	writes := 0
	err := s.inTx(ctx, tx, func(tx *gorm.DB) error {
		memberIDs := set.MemberIDs()
		if err := s.checkRecordsExist(ctx, tx, memberIDs); err != nil {
			return err
		}

		now := time.Now()

		if !set.Saved() {
			set.Model.ID = uuid.New()
			if set.Model.ObjectType == "" {
				set.Model.ObjectType = types.ObjectTypeRecord
			}
			set.Model.Count = len(memberIDs)
			set.Model.CreatedAt = now
			set.Model.UpdatedAt = now
			if _, err := s.setRepo.Create(ctx, tx, []*types.RecordSet{set.Model}); err != nil {
				return fmt.Errorf("create record set: %w", err)
			}
			rows := make([]*types.RecordSetMember, 0, len(memberIDs))
			for _, recordID := range memberIDs {
				rows = append(rows, &types.RecordSetMember{
					ID:          uuid.New(),
					RecordSetID: set.Model.ID,
					RecordID:    recordID,
					State:       types.MemberActive,
					CreatedAt:   now,
					UpdatedAt:   now,
				})
			}
			if _, err := s.memberRepo.Create(ctx, tx, rows); err != nil {
				return fmt.Errorf("create members: %w", err)
			}
			writes = len(rows)
			return nil
		}

		existing, err := s.memberRepo.GetBySetID(ctx, tx, set.Model.ID, true)
		if err != nil {
			return fmt.Errorf("load members: %w", err)
		}
		byRecord := make(map[uuid.UUID]*types.RecordSetMember, len(existing))
		for _, row := range existing {
			byRecord[row.RecordID] = row
		}

		var toInsert []*types.RecordSetMember
		var toRevive []uuid.UUID
		for _, recordID := range memberIDs {
			row, ok := byRecord[recordID]
			if !ok {
				toInsert = append(toInsert, &types.RecordSetMember{
					ID:          uuid.New(),
					RecordSetID: set.Model.ID,
					RecordID:    recordID,
					State:       types.MemberPendingAdd,
					CreatedAt:   now,
					UpdatedAt:   now,
				})
				continue
			}
			if row.State == types.MemberPendingRemove {
				toRevive = append(toRevive, row.ID)
			}
		}

		var toRemove []uuid.UUID
		for _, row := range existing {
			if row.State == types.MemberPendingRemove {
				continue
			}
			if !set.Contains(row.RecordID) {
				toRemove = append(toRemove, row.ID)
			}
		}

		writes = len(toInsert) + len(toRevive) + len(toRemove)
		if writes == 0 {
			return nil
		}

		if _, err := s.memberRepo.Create(ctx, tx, toInsert); err != nil {
			return fmt.Errorf("create members: %w", err)
		}
		if err := s.memberRepo.UpdateStateByIDs(ctx, tx, toRevive, types.MemberPendingAdd); err != nil {
			return fmt.Errorf("revive members: %w", err)
		}
		if err := s.memberRepo.UpdateStateByIDs(ctx, tx, toRemove, types.MemberPendingRemove); err != nil {
			return fmt.Errorf("remove members: %w", err)
		}
		if err := s.setRepo.UpdateCount(ctx, tx, set.Model.ID, len(memberIDs)); err != nil {
			return fmt.Errorf("update count: %w", err)
		}
		set.Model.Count = len(memberIDs)
		set.Model.UpdatedAt = now
		return nil
	})
	if err != nil {
		s.log.Error("SaveSet failed", "error", err)
		return 0, err
	}
	return writes, nil
}

func (s *objectSetService) DeleteSet(ctx context.Context, tx *gorm.DB, setID uuid.UUID) error {
	if setID == uuid.Nil {
		return apperrors.ErrUnsavedSet
	}
	s.log.Info("DeleteSet", "set_id", setID)
	return s.inTx(ctx, tx, func(tx *gorm.DB) error {
		if _, err := s.setRepo.GetByID(ctx, tx, setID); err != nil {
			return err
		}
		if err := s.memberRepo.FullDeleteBySetID(ctx, tx, setID); err != nil {
			return fmt.Errorf("delete members: %w", err)
		}
		if err := s.setRepo.FullDeleteByID(ctx, tx, setID); err != nil {
			return fmt.Errorf("delete record set: %w", err)
		}
		return nil
	})
}

// AddMembers extends the set's membership. A record whose row sits in
// pending_remove is revived to pending_add rather than duplicated.
// Returns the number of members actually added.
func (s *objectSetService) AddMembers(ctx context.Context, tx *gorm.DB, setID uuid.UUID, recordIDs []uuid.UUID) (int, error) {
	if setID == uuid.Nil {
		return 0, apperrors.ErrUnsavedSet
	}
	added := 0
	err := s.inTx(ctx, tx, func(tx *gorm.DB) error {
		model, err := s.setRepo.GetByID(ctx, tx, setID)
		if err != nil {
			return err
		}
		if err := s.checkRecordsExist(ctx, tx, recordIDs); err != nil {
			return err
		}

		existing, err := s.memberRepo.GetBySetAndRecordIDs(ctx, tx, setID, recordIDs)
		if err != nil {
			return fmt.Errorf("load members: %w", err)
		}
		byRecord := make(map[uuid.UUID]*types.RecordSetMember, len(existing))
		for _, row := range existing {
			byRecord[row.RecordID] = row
		}

		now := time.Now()
		seen := make(map[uuid.UUID]struct{}, len(recordIDs))
		var toInsert []*types.RecordSetMember
		var toRevive []uuid.UUID
		for _, recordID := range recordIDs {
			if _, dup := seen[recordID]; dup {
				continue
			}
			seen[recordID] = struct{}{}
			row, ok := byRecord[recordID]
			if !ok {
				toInsert = append(toInsert, &types.RecordSetMember{
					ID:          uuid.New(),
					RecordSetID: setID,
					RecordID:    recordID,
					State:       types.MemberPendingAdd,
					CreatedAt:   now,
					UpdatedAt:   now,
				})
				continue
			}
			if row.State == types.MemberPendingRemove {
				toRevive = append(toRevive, row.ID)
			}
		}

		added = len(toInsert) + len(toRevive)
		if added == 0 {
			return nil
		}
		if _, err := s.memberRepo.Create(ctx, tx, toInsert); err != nil {
			return fmt.Errorf("create members: %w", err)
		}
		if err := s.memberRepo.UpdateStateByIDs(ctx, tx, toRevive, types.MemberPendingAdd); err != nil {
			return fmt.Errorf("revive members: %w", err)
		}
		return s.setRepo.UpdateCount(ctx, tx, setID, model.Count+added)
	})
	if err != nil {
		s.log.Error("AddMembers failed", "set_id", setID, "error", err)
		return 0, err
	}
	return added, nil
}

// RemoveMembers excises records from the set. By default rows flip to
// pending_remove and stay behind for audit; with hardDelete the rows
// are deleted immediately. Records not in the set are ignored. Returns
// the number of active members removed.
func (s *objectSetService) RemoveMembers(ctx context.Context, tx *gorm.DB, setID uuid.UUID, recordIDs []uuid.UUID, hardDelete bool) (int, error) {
	if setID == uuid.Nil {
		return 0, apperrors.ErrUnsavedSet
	}
	removed := 0
	err := s.inTx(ctx, tx, func(tx *gorm.DB) error {
		model, err := s.setRepo.GetByID(ctx, tx, setID)
		if err != nil {
			return err
		}

		existing, err := s.memberRepo.GetBySetAndRecordIDs(ctx, tx, setID, recordIDs)
		if err != nil {
			return fmt.Errorf("load members: %w", err)
		}

		var toDelete []uuid.UUID
		var toFlip []uuid.UUID
		for _, row := range existing {
			if hardDelete {
				if row.Active() {
					removed++
				}
				toDelete = append(toDelete, row.ID)
				continue
			}
			if row.Active() {
				toFlip = append(toFlip, row.ID)
				removed++
			}
		}

		if len(toDelete) == 0 && len(toFlip) == 0 {
			return nil
		}
		if err := s.memberRepo.FullDeleteByIDs(ctx, tx, toDelete); err != nil {
			return fmt.Errorf("delete members: %w", err)
		}
		if err := s.memberRepo.UpdateStateByIDs(ctx, tx, toFlip, types.MemberPendingRemove); err != nil {
			return fmt.Errorf("remove members: %w", err)
		}
		if removed == 0 {
			return nil
		}
		return s.setRepo.UpdateCount(ctx, tx, setID, model.Count-removed)
	})
	if err != nil {
		s.log.Error("RemoveMembers failed", "set_id", setID, "error", err)
		return 0, err
	}
	return removed, nil
}

// ClearSet removes every current member. With hardDelete all rows for
// the set, soft-removed ones included, are deleted outright.
func (s *objectSetService) ClearSet(ctx context.Context, tx *gorm.DB, setID uuid.UUID, hardDelete bool) (int, error) {
	if setID == uuid.Nil {
		return 0, apperrors.ErrUnsavedSet
	}
	cleared := 0
	err := s.inTx(ctx, tx, func(tx *gorm.DB) error {
		model, err := s.setRepo.GetByID(ctx, tx, setID)
		if err != nil {
			return err
		}
		cleared = model.Count

		if hardDelete {
			if err := s.memberRepo.FullDeleteBySetID(ctx, tx, setID); err != nil {
				return fmt.Errorf("delete members: %w", err)
			}
		} else {
			active, err := s.memberRepo.GetBySetID(ctx, tx, setID, false)
			if err != nil {
				return fmt.Errorf("load members: %w", err)
			}
			ids := make([]uuid.UUID, 0, len(active))
			for _, row := range active {
				ids = append(ids, row.ID)
			}
			if err := s.memberRepo.UpdateStateByIDs(ctx, tx, ids, types.MemberPendingRemove); err != nil {
				return fmt.Errorf("remove members: %w", err)
			}
		}
		return s.setRepo.UpdateCount(ctx, tx, setID, 0)
	})
	if err != nil {
		s.log.Error("ClearSet failed", "set_id", setID, "error", err)
		return 0, err
	}
	return cleared, nil
}

// ReplaceMembers swaps the set's membership for recordIDs by delta:
// newcomers are added, departures removed (honoring hardDelete), and
// rows for records present in both stay untouched.
func (s *objectSetService) ReplaceMembers(ctx context.Context, tx *gorm.DB, setID uuid.UUID, recordIDs []uuid.UUID, hardDelete bool) (int, int, error) {
	if setID == uuid.Nil {
		return 0, 0, apperrors.ErrUnsavedSet
	}
	var added, removed int
	err := s.inTx(ctx, tx, func(tx *gorm.DB) error {
		current, err := s.GetSet(ctx, tx, setID)
		if err != nil {
			return err
		}

		next := objectset.New("", recordIDs)
		departures, err := current.Difference(next)
		if err != nil {
			return err
		}
		newcomers, err := next.Difference(current)
		if err != nil {
			return err
		}

		if removed, err = s.RemoveMembers(ctx, tx, setID, departures.MemberIDs(), hardDelete); err != nil {
			return err
		}
		if added, err = s.AddMembers(ctx, tx, setID, newcomers.MemberIDs()); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		s.log.Error("ReplaceMembers failed", "set_id", setID, "error", err)
		return 0, 0, err
	}
	return added, removed, nil
}

// PurgeSet hard-deletes the rows flagged pending_remove. A set that
// never soft-removed anything purges zero rows; that is not an error.
func (s *objectSetService) PurgeSet(ctx context.Context, tx *gorm.DB, setID uuid.UUID) (int64, error) {
	if setID == uuid.Nil {
		return 0, apperrors.ErrUnsavedSet
	}
	if _, err := s.setRepo.GetByID(ctx, tx, setID); err != nil {
		return 0, err
	}
	purged, err := s.memberRepo.FullDeleteRemovedBySetID(ctx, tx, setID)
	if err != nil {
		s.log.Error("PurgeSet failed", "set_id", setID, "error", err)
		return 0, err
	}
	s.log.Info("PurgeSet", "set_id", setID, "purged", purged)
	return purged, nil
}

// ApplyOperations folds the named operators over the working set, left
// to right. Each operand is either a saved set or a literal id list.
func (s *objectSetService) ApplyOperations(ctx context.Context, tx *gorm.DB, set *objectset.Set, ops []SetOperation) error {
	for _, op := range ops {
		var operand *objectset.Set
		switch {
		case op.SetID != nil:
			loaded, err := s.GetSet(ctx, tx, *op.SetID)
			if err != nil {
				return fmt.Errorf("load operand set %s: %w", *op.SetID, err)
			}
			operand = loaded
		case op.RecordIDs != nil:
			operand = objectset.New("", op.RecordIDs)
		default:
			return fmt.Errorf("operation %q has no operand: %w", op.Operator, apperrors.ErrInvalidArgument)
		}
		if err := objectset.Apply(set, op.Operator, operand); err != nil {
			return err
		}
	}
	return nil
}
