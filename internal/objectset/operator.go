package objectset

import (
	"fmt"

	"github.com/yungbote/objectset-backend/internal/apperrors"
)

// Operator names accepted in operation payloads.
const (
	OpAnd = "and"
	OpOr  = "or"
	OpXor = "xor"
	OpSub = "sub"
)

// Apply runs the named operator in place on the left operand.
func Apply(left *Set, operator string, right *Set) error {
	switch operator {
	case OpAnd:
		return left.IntersectWith(right)
	case OpOr:
		return left.UnionWith(right)
	case OpXor:
		return left.SymmetricDifferenceWith(right)
	case OpSub:
		return left.DifferenceWith(right)
	default:
		return fmt.Errorf("unknown operator %q: %w", operator, apperrors.ErrInvalidArgument)
	}
}
