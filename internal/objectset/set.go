package objectset

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/objectset-backend/internal/apperrors"
	"github.com/yungbote/objectset-backend/internal/set"
	"github.com/yungbote/objectset-backend/internal/types"
)

// Set pairs a RecordSet row with its in-memory membership. Membership
// is deduplicated by record id and keeps insertion order for
// presentation; equality and the algebra ignore order.
//
// A Set returned by an operator is unsaved. Persisting it, or
// reconciling in-place mutations, is the service layer's job.
type Set struct {
	Model   *types.RecordSet
	members *set.OrderedSet[uuid.UUID]
}

// New builds an unsaved set over the given record ids. Duplicate ids
// collapse, keeping the position of their first occurrence.
func New(name string, recordIDs []uuid.UUID) *Set {
	return &Set{
		Model: &types.RecordSet{
			Name:       name,
			ObjectType: types.ObjectTypeRecord,
		},
		members: set.FromItems(recordIDs),
	}
}

// FromModel wraps an already-persisted RecordSet row with its active
// member ids.
func FromModel(model *types.RecordSet, memberIDs []uuid.UUID) *Set {
	return &Set{
		Model:   model,
		members: set.FromItems(memberIDs),
	}
}

func (s *Set) Len() int {
	return s.members.Len()
}

func (s *Set) Contains(id uuid.UUID) bool {
	return s.members.Has(id)
}

// MemberIDs returns the active member ids in insertion order.
func (s *Set) MemberIDs() []uuid.UUID {
	return s.members.Items()
}

// Saved reports whether the set has been persisted.
func (s *Set) Saved() bool {
	return s.Model != nil && s.Model.ID != uuid.Nil
}

// Equal compares by member id sets, irrespective of order.
func (s *Set) Equal(other *Set) bool {
	return other != nil && s.members.Equal(other.members)
}

// SetMembers replaces the in-memory membership wholesale.
func (s *Set) SetMembers(recordIDs []uuid.UUID) {
	s.members = set.FromItems(recordIDs)
}

func (s *Set) checkCompatible(other *Set) error {
	if other == nil || other.Model == nil {
		return fmt.Errorf("nil operand: %w", apperrors.ErrInvalidArgument)
	}
	if s.Model.ObjectType != other.Model.ObjectType {
		return fmt.Errorf("cannot combine %q with %q: %w",
			s.Model.ObjectType, other.Model.ObjectType, apperrors.ErrTypeMismatch)
	}
	return nil
}

func (s *Set) derive(members *set.OrderedSet[uuid.UUID]) *Set {
	return &Set{
		Model: &types.RecordSet{
			ObjectType: s.Model.ObjectType,
		},
		members: members,
	}
}

// Intersect returns a new unsaved set of members present in both
// operands.
func (s *Set) Intersect(other *Set) (*Set, error) {
	if err := s.checkCompatible(other); err != nil {
		return nil, err
	}
	return s.derive(s.members.Intersect(other.members)), nil
}

// Union returns a new unsaved set of members present in either operand.
func (s *Set) Union(other *Set) (*Set, error) {
	if err := s.checkCompatible(other); err != nil {
		return nil, err
	}
	return s.derive(s.members.Union(other.members)), nil
}

// SymmetricDifference returns a new unsaved set of members present in
// exactly one operand.
func (s *Set) SymmetricDifference(other *Set) (*Set, error) {
	if err := s.checkCompatible(other); err != nil {
		return nil, err
	}
	return s.derive(s.members.SymmetricDifference(other.members)), nil
}

// Difference returns a new unsaved set of the receiver's members absent
// from other.
func (s *Set) Difference(other *Set) (*Set, error) {
	if err := s.checkCompatible(other); err != nil {
		return nil, err
	}
	return s.derive(s.members.Difference(other.members)), nil
}

// IntersectWith narrows the receiver's membership to members also in
// other.
func (s *Set) IntersectWith(other *Set) error {
	if err := s.checkCompatible(other); err != nil {
		return err
	}
	s.members = s.members.Intersect(other.members)
	return nil
}

// UnionWith extends the receiver's membership with other's members.
func (s *Set) UnionWith(other *Set) error {
	if err := s.checkCompatible(other); err != nil {
		return err
	}
	s.members = s.members.Union(other.members)
	return nil
}

// SymmetricDifferenceWith keeps members present in exactly one operand.
func (s *Set) SymmetricDifferenceWith(other *Set) error {
	if err := s.checkCompatible(other); err != nil {
		return err
	}
	s.members = s.members.SymmetricDifference(other.members)
	return nil
}

// DifferenceWith drops the receiver's members that are present in
// other.
func (s *Set) DifferenceWith(other *Set) error {
	if err := s.checkCompatible(other); err != nil {
		return err
	}
	s.members = s.members.Difference(other.members)
	return nil
}
