package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yungbote/objectset-backend/internal/apperrors"
	"github.com/yungbote/objectset-backend/internal/logger"
	"github.com/yungbote/objectset-backend/internal/objectset"
	"github.com/yungbote/objectset-backend/internal/repos"
	"github.com/yungbote/objectset-backend/internal/services"
	"github.com/yungbote/objectset-backend/internal/types"
)

type fixture struct {
	db      *gorm.DB
	svc     services.ObjectSetService
	records services.RecordService
	members repos.RecordSetMemberRepo
	ids     map[int]uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&types.Record{}, &types.RecordSet{}, &types.RecordSetMember{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	log, err := logger.New("prod")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	recordRepo := repos.NewRecordRepo(db, log)
	setRepo := repos.NewRecordSetRepo(db, log)
	memberRepo := repos.NewRecordSetMemberRepo(db, log)

	return &fixture{
		db:      db,
		svc:     services.NewObjectSetService(db, log, setRepo, memberRepo, recordRepo),
		records: services.NewRecordService(db, log, recordRepo),
		members: memberRepo,
		ids:     map[int]uuid.UUID{},
	}
}

// seed bulk-creates one record per number and remembers its id, so
// tests can speak in small integers the way set examples do.
func (f *fixture) seed(t *testing.T, nums ...int) {
	t.Helper()

	missing := make([]int, 0, len(nums))
	labels := make([]string, 0, len(nums))
	for _, n := range nums {
		if _, ok := f.ids[n]; ok {
			continue
		}
		missing = append(missing, n)
		labels = append(labels, fmt.Sprintf("record-%d", n))
	}
	if len(missing) == 0 {
		return
	}

	recs, err := f.records.CreateRecords(context.Background(), nil, labels)
	if err != nil {
		t.Fatalf("seed records %v: %v", missing, err)
	}
	for i, n := range missing {
		f.ids[n] = recs[i].ID
	}
}

func (f *fixture) idsOf(nums ...int) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(nums))
	for _, n := range nums {
		out = append(out, f.ids[n])
	}
	return out
}

func (f *fixture) mustCreate(t *testing.T, name string, nums ...int) *objectset.Set {
	t.Helper()
	set, err := f.svc.CreateSet(context.Background(), nil, services.CreateSetInput{
		Name:      name,
		RecordIDs: f.idsOf(nums...),
		Persist:   true,
	})
	if err != nil {
		t.Fatalf("create set %q: %v", name, err)
	}
	return set
}

func (f *fixture) wantActive(t *testing.T, setID uuid.UUID, nums ...int) {
	t.Helper()
	loaded, err := f.svc.GetSet(context.Background(), nil, setID)
	if err != nil {
		t.Fatalf("load set: %v", err)
	}
	want := objectset.New("", f.idsOf(nums...))
	if !loaded.Equal(want) {
		t.Fatalf("unexpected active membership: %#v", loaded.MemberIDs())
	}
	if loaded.Model.Count != len(nums) {
		t.Fatalf("stored count %d does not match %d members", loaded.Model.Count, len(nums))
	}
}

func (f *fixture) stateByNum(t *testing.T, setID uuid.UUID) map[int]string {
	t.Helper()
	rows, err := f.members.GetBySetID(context.Background(), nil, setID, true)
	if err != nil {
		t.Fatalf("load member rows: %v", err)
	}
	byRecord := make(map[uuid.UUID]string, len(rows))
	for _, row := range rows {
		byRecord[row.RecordID] = row.State
	}
	out := make(map[int]string)
	for n, id := range f.ids {
		if state, ok := byRecord[id]; ok {
			out[n] = state
		}
	}
	return out
}

func TestCreateSet_PersistAndReload(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, 2, 3)

	created := f.mustCreate(t, "fibonacci", 1, 2, 3)
	if !created.Saved() {
		t.Fatal("persisted set reported unsaved")
	}
	f.wantActive(t, created.Model.ID, 1, 2, 3)

	// Initial population lands settled, not pending.
	for n, state := range f.stateByNum(t, created.Model.ID) {
		if state != types.MemberActive {
			t.Fatalf("member %d in state %q after initial save", n, state)
		}
	}
}

func TestCreateSet_DeduplicatesInput(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, 2)

	set, err := f.svc.CreateSet(context.Background(), nil, services.CreateSetInput{
		Name:      "dupes",
		RecordIDs: f.idsOf(1, 2, 1, 2, 1),
		Persist:   true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	f.wantActive(t, set.Model.ID, 1, 2)
}

func TestSaveSet_UnknownRecord(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1)

	_, err := f.svc.CreateSet(context.Background(), nil, services.CreateSetInput{
		Name:      "ghost",
		RecordIDs: []uuid.UUID{f.ids[1], uuid.New()},
		Persist:   true,
	})
	if !errors.Is(err, apperrors.ErrUnknownRecord) {
		t.Fatalf("expected unknown record, got %v", err)
	}
}

func TestSaveSet_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, 2, 3)
	ctx := context.Background()

	set := f.mustCreate(t, "stable", 1, 2, 3)

	writes, err := f.svc.SaveSet(ctx, nil, set)
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if writes != 0 {
		t.Fatalf("second save issued %d writes", writes)
	}

	// And again from a fresh load.
	loaded, err := f.svc.GetSet(ctx, nil, set.Model.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	writes, err = f.svc.SaveSet(ctx, nil, loaded)
	if err != nil {
		t.Fatalf("third save: %v", err)
	}
	if writes != 0 {
		t.Fatalf("save of unchanged loaded set issued %d writes", writes)
	}
}

func TestAddMembers(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, 2, 3)
	ctx := context.Background()

	set := f.mustCreate(t, "adds", 1)

	added, err := f.svc.AddMembers(ctx, nil, set.Model.ID, f.idsOf(2, 3))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if added != 2 {
		t.Fatalf("added %d, want 2", added)
	}
	f.wantActive(t, set.Model.ID, 1, 2, 3)

	states := f.stateByNum(t, set.Model.ID)
	if states[2] != types.MemberPendingAdd || states[3] != types.MemberPendingAdd {
		t.Fatalf("incremental adds not flagged: %#v", states)
	}

	// Adding the same members again does nothing.
	added, err = f.svc.AddMembers(ctx, nil, set.Model.ID, f.idsOf(2, 3))
	if err != nil {
		t.Fatalf("re-add: %v", err)
	}
	if added != 0 {
		t.Fatalf("re-add reported %d additions", added)
	}
	f.wantActive(t, set.Model.ID, 1, 2, 3)
}

func TestAddMembers_UnknownRecord(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1)

	set := f.mustCreate(t, "adds", 1)
	_, err := f.svc.AddMembers(context.Background(), nil, set.Model.ID, []uuid.UUID{uuid.New()})
	if !errors.Is(err, apperrors.ErrUnknownRecord) {
		t.Fatalf("expected unknown record, got %v", err)
	}
}

func TestRemoveMembers_SoftKeepsRow(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, 2)
	ctx := context.Background()

	set := f.mustCreate(t, "soft", 1, 2)

	removed, err := f.svc.RemoveMembers(ctx, nil, set.Model.ID, f.idsOf(2), false)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed %d, want 1", removed)
	}
	f.wantActive(t, set.Model.ID, 1)

	states := f.stateByNum(t, set.Model.ID)
	if states[2] != types.MemberPendingRemove {
		t.Fatalf("soft-removed row missing or in wrong state: %#v", states)
	}

	// Removing again is a no-op.
	removed, err = f.svc.RemoveMembers(ctx, nil, set.Model.ID, f.idsOf(2), false)
	if err != nil {
		t.Fatalf("re-remove: %v", err)
	}
	if removed != 0 {
		t.Fatalf("re-remove reported %d removals", removed)
	}
}

func TestRemoveMembers_HardDeletesRow(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, 2)
	ctx := context.Background()

	set := f.mustCreate(t, "hard", 1, 2)

	if _, err := f.svc.RemoveMembers(ctx, nil, set.Model.ID, f.idsOf(2), true); err != nil {
		t.Fatalf("remove: %v", err)
	}
	f.wantActive(t, set.Model.ID, 1)

	if _, stillThere := f.stateByNum(t, set.Model.ID)[2]; stillThere {
		t.Fatal("hard-removed row still present")
	}
}

func TestRemoveMembers_IgnoresNonMembers(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, 2, 9)

	set := f.mustCreate(t, "ignore", 1, 2)
	removed, err := f.svc.RemoveMembers(context.Background(), nil, set.Model.ID, f.idsOf(9), false)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if removed != 0 {
		t.Fatalf("removed %d, want 0", removed)
	}
	f.wantActive(t, set.Model.ID, 1, 2)
}

func TestAddMembers_RevivesSoftRemoved(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, 2)
	ctx := context.Background()

	set := f.mustCreate(t, "revive", 1, 2)
	if _, err := f.svc.RemoveMembers(ctx, nil, set.Model.ID, f.idsOf(2), false); err != nil {
		t.Fatalf("remove: %v", err)
	}

	added, err := f.svc.AddMembers(ctx, nil, set.Model.ID, f.idsOf(2))
	if err != nil {
		t.Fatalf("re-add: %v", err)
	}
	if added != 1 {
		t.Fatalf("re-add reported %d additions", added)
	}
	f.wantActive(t, set.Model.ID, 1, 2)

	// One row per edge: revived, not duplicated.
	rows, err := f.members.GetBySetID(ctx, nil, set.Model.ID, true)
	if err != nil {
		t.Fatalf("load rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if f.stateByNum(t, set.Model.ID)[2] != types.MemberPendingAdd {
		t.Fatal("revived row not flagged as added")
	}
}

func TestClearSet(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, 2, 3)
	ctx := context.Background()

	set := f.mustCreate(t, "clear", 1, 2, 3)
	cleared, err := f.svc.ClearSet(ctx, nil, set.Model.ID, false)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if cleared != 3 {
		t.Fatalf("cleared %d, want 3", cleared)
	}
	f.wantActive(t, set.Model.ID)

	// Soft clear keeps the rows around for audit.
	rows, err := f.members.GetBySetID(ctx, nil, set.Model.ID, true)
	if err != nil {
		t.Fatalf("load rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 flagged rows, got %d", len(rows))
	}
}

func TestClearSet_Hard(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, 2, 3)
	ctx := context.Background()

	set := f.mustCreate(t, "clear-hard", 1, 2, 3)
	if _, err := f.svc.ClearSet(ctx, nil, set.Model.ID, true); err != nil {
		t.Fatalf("clear: %v", err)
	}
	rows, err := f.members.GetBySetID(ctx, nil, set.Model.ID, true)
	if err != nil {
		t.Fatalf("load rows: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
}

func TestReplaceMembers_DeltaOnly(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, 2, 3, 4, 5)
	ctx := context.Background()

	set := f.mustCreate(t, "replace", 1, 2, 3)

	added, removed, err := f.svc.ReplaceMembers(ctx, nil, set.Model.ID, f.idsOf(3, 4, 5), false)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if added != 2 || removed != 2 {
		t.Fatalf("added %d removed %d, want 2 and 2", added, removed)
	}
	f.wantActive(t, set.Model.ID, 3, 4, 5)

	states := f.stateByNum(t, set.Model.ID)
	if states[1] != types.MemberPendingRemove || states[2] != types.MemberPendingRemove {
		t.Fatalf("departures not flagged removed: %#v", states)
	}
	if states[4] != types.MemberPendingAdd || states[5] != types.MemberPendingAdd {
		t.Fatalf("newcomers not flagged added: %#v", states)
	}
	if states[3] != types.MemberActive {
		t.Fatalf("unchanged member touched: %#v", states)
	}
}

func TestPurgeSet(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, 2, 3, 4, 5)
	ctx := context.Background()

	set := f.mustCreate(t, "purge", 1, 2, 3)
	if _, _, err := f.svc.ReplaceMembers(ctx, nil, set.Model.ID, f.idsOf(3, 4, 5), false); err != nil {
		t.Fatalf("replace: %v", err)
	}

	flagged, err := f.members.CountRemoved(ctx, nil)
	if err != nil {
		t.Fatalf("count flagged: %v", err)
	}
	if flagged != 2 {
		t.Fatalf("flagged %d rows before purge, want 2", flagged)
	}

	purged, err := f.svc.PurgeSet(ctx, nil, set.Model.ID)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 2 {
		t.Fatalf("purged %d, want 2", purged)
	}

	flagged, err = f.members.CountRemoved(ctx, nil)
	if err != nil {
		t.Fatalf("count flagged: %v", err)
	}
	if flagged != 0 {
		t.Fatalf("%d rows still flagged after purge", flagged)
	}

	states := f.stateByNum(t, set.Model.ID)
	if _, ok := states[1]; ok {
		t.Fatal("purged row for member 1 still present")
	}
	if _, ok := states[2]; ok {
		t.Fatal("purged row for member 2 still present")
	}
	f.wantActive(t, set.Model.ID, 3, 4, 5)

	// Purge with nothing flagged is a no-op, not an error.
	purged, err = f.svc.PurgeSet(ctx, nil, set.Model.ID)
	if err != nil {
		t.Fatalf("second purge: %v", err)
	}
	if purged != 0 {
		t.Fatalf("second purge removed %d rows", purged)
	}
}

func TestSoftRemoveThenPurgeRemovesEverywhere(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, 2)
	ctx := context.Background()

	set := f.mustCreate(t, "gone", 1, 2)
	if _, err := f.svc.RemoveMembers(ctx, nil, set.Model.ID, f.idsOf(2), false); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := f.svc.PurgeSet(ctx, nil, set.Model.ID); err != nil {
		t.Fatalf("purge: %v", err)
	}

	f.wantActive(t, set.Model.ID, 1)
	if _, ok := f.stateByNum(t, set.Model.ID)[2]; ok {
		t.Fatal("member 2 still in storage after purge")
	}
}

func TestInPlaceOperatorThenSave(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, 2, 3, 5, 8, 13, 11, 14)
	ctx := context.Background()

	s1 := f.mustCreate(t, "s1", 1, 2, 3, 5, 8, 13)
	s2 := f.mustCreate(t, "s2", 2, 5, 8, 11, 14)

	loaded1, err := f.svc.GetSet(ctx, nil, s1.Model.ID)
	if err != nil {
		t.Fatalf("load s1: %v", err)
	}
	loaded2, err := f.svc.GetSet(ctx, nil, s2.Model.ID)
	if err != nil {
		t.Fatalf("load s2: %v", err)
	}

	if err := loaded1.IntersectWith(loaded2); err != nil {
		t.Fatalf("intersect: %v", err)
	}
	if _, err := f.svc.SaveSet(ctx, nil, loaded1); err != nil {
		t.Fatalf("save: %v", err)
	}

	f.wantActive(t, s1.Model.ID, 2, 5, 8)

	// Same final membership as saving the pure operator's result.
	pure, err := f.svc.GetSet(ctx, nil, s2.Model.ID)
	if err != nil {
		t.Fatalf("reload s2: %v", err)
	}
	reloaded1, err := f.svc.GetSet(ctx, nil, s1.Model.ID)
	if err != nil {
		t.Fatalf("reload s1: %v", err)
	}
	derived, err := reloaded1.Intersect(pure)
	if err != nil {
		t.Fatalf("pure intersect: %v", err)
	}
	if !derived.Equal(reloaded1) {
		t.Fatalf("in-place and pure results diverge: %#v vs %#v",
			derived.MemberIDs(), reloaded1.MemberIDs())
	}
}

func TestSaveOperatorResultAsNewSet(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, 2, 3, 5, 8, 13, 11, 14)
	ctx := context.Background()

	s1 := f.mustCreate(t, "s1", 1, 2, 3, 5, 8, 13)
	s2 := f.mustCreate(t, "s2", 2, 5, 8, 11, 14)

	union, err := s1.Union(s2)
	if err != nil {
		t.Fatalf("union: %v", err)
	}
	union.Model.Name = "s1|s2"
	if _, err := f.svc.SaveSet(ctx, nil, union); err != nil {
		t.Fatalf("save union: %v", err)
	}
	f.wantActive(t, union.Model.ID, 1, 2, 3, 5, 8, 13, 11, 14)
}

func TestApplyOperations(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, 2, 3, 4, 5, 6)
	ctx := context.Background()

	other := f.mustCreate(t, "other", 4, 5, 6)

	created, err := f.svc.CreateSet(ctx, nil, services.CreateSetInput{
		Name:      "combined",
		RecordIDs: f.idsOf(1, 2, 3),
		Operations: []services.SetOperation{
			{Operator: objectset.OpOr, SetID: &other.Model.ID},
			{Operator: objectset.OpSub, RecordIDs: f.idsOf(2, 4, 6)},
		},
		Persist: true,
	})
	if err != nil {
		t.Fatalf("create with operations: %v", err)
	}
	f.wantActive(t, created.Model.ID, 1, 3, 5)
}

func TestDeleteSet_CascadesMembers(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, 2)
	ctx := context.Background()

	set := f.mustCreate(t, "doomed", 1, 2)
	if err := f.svc.DeleteSet(ctx, nil, set.Model.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := f.svc.GetSet(ctx, nil, set.Model.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	rows, err := f.members.GetBySetID(ctx, nil, set.Model.ID, true)
	if err != nil {
		t.Fatalf("load rows: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("join rows survived set deletion: %d", len(rows))
	}
}

func TestMembershipOpsRequireSavedSet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.AddMembers(ctx, nil, uuid.Nil, nil); !errors.Is(err, apperrors.ErrUnsavedSet) {
		t.Fatalf("add: expected unsaved set error, got %v", err)
	}
	if _, err := f.svc.RemoveMembers(ctx, nil, uuid.Nil, nil, false); !errors.Is(err, apperrors.ErrUnsavedSet) {
		t.Fatalf("remove: expected unsaved set error, got %v", err)
	}
	if _, err := f.svc.ClearSet(ctx, nil, uuid.Nil, false); !errors.Is(err, apperrors.ErrUnsavedSet) {
		t.Fatalf("clear: expected unsaved set error, got %v", err)
	}
	if _, _, err := f.svc.ReplaceMembers(ctx, nil, uuid.Nil, nil, false); !errors.Is(err, apperrors.ErrUnsavedSet) {
		t.Fatalf("replace: expected unsaved set error, got %v", err)
	}
	if _, err := f.svc.PurgeSet(ctx, nil, uuid.Nil); !errors.Is(err, apperrors.ErrUnsavedSet) {
		t.Fatalf("purge: expected unsaved set error, got %v", err)
	}
}

func TestListSets_SessionScoping(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1)
	ctx := context.Background()

	if _, err := f.svc.CreateSet(ctx, nil, services.CreateSetInput{
		Name: "public", RecordIDs: f.idsOf(1), Persist: true,
	}); err != nil {
		t.Fatalf("create public: %v", err)
	}
	if _, err := f.svc.CreateSet(ctx, nil, services.CreateSetInput{
		Name: "mine", RecordIDs: f.idsOf(1), SessionKey: "abc", Persist: true,
	}); err != nil {
		t.Fatalf("create scoped: %v", err)
	}

	anon, err := f.svc.ListSets(ctx, nil, "")
	if err != nil {
		t.Fatalf("list anon: %v", err)
	}
	if len(anon) != 1 || anon[0].Name != "public" {
		t.Fatalf("anonymous caller sees %d sets", len(anon))
	}

	mine, err := f.svc.ListSets(ctx, nil, "abc")
	if err != nil {
		t.Fatalf("list scoped: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("scoped caller sees %d sets, want 2", len(mine))
	}

	other, err := f.svc.ListSets(ctx, nil, "xyz")
	if err != nil {
		t.Fatalf("list other: %v", err)
	}
	if len(other) != 1 {
		t.Fatalf("foreign caller sees %d sets, want 1", len(other))
	}
}

func TestListMembers_KeepsMembershipOrder(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, 2, 3)
	ctx := context.Background()

	set := f.mustCreate(t, "ordered", 3)

	// Stagger the adds so each join row gets its own timestamp and
	// creation order is observable.
	for _, n := range []int{1, 2} {
		time.Sleep(5 * time.Millisecond)
		if _, err := f.svc.AddMembers(ctx, nil, set.Model.ID, f.idsOf(n)); err != nil {
			t.Fatalf("add %d: %v", n, err)
		}
	}

	records, err := f.svc.ListMembers(ctx, nil, set.Model.ID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	want := []string{"record-3", "record-1", "record-2"}
	if len(records) != len(want) {
		t.Fatalf("expected %d members, got %d", len(want), len(records))
	}
	for i, rec := range records {
		if rec.Label != want[i] {
			t.Fatalf("member %d is %q, want %q", i, rec.Label, want[i])
		}
	}
}
