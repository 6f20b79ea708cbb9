package weather

import (
	"fmt"
	"strconv"
	"strings"
)

// KeyKind tags the form of a source key expression.
type KeyKind int

const (
	// KeyPlain looks a field up on the source record: "temp".
	KeyPlain KeyKind = iota
	// KeyIndexed selects an element of an array field: "0:weather.id".
	KeyIndexed
	// KeyAggregate folds a field over the forecast horizon: "max:pop".
	KeyAggregate
	// KeyNested reads a member of a nested object: "rain:1h".
	KeyNested
	// KeyToday is the cached daily min/max of the hourly temperature: "today:min".
	KeyToday
)

func (k KeyKind) String() string {
	switch k {
	case KeyPlain:
		return "plain"
	case KeyIndexed:
		return "indexed"
	case KeyAggregate:
		return "aggregate"
	case KeyNested:
		return "nested"
	case KeyToday:
		return "today"
	default:
		return "unknown"
	}
}

// AggregateOp is the fold applied by aggregate and today keys.
type AggregateOp string

const (
	OpMin AggregateOp = "min"
	OpMax AggregateOp = "max"
	OpAvg AggregateOp = "avg"
)

// todayField is the hourly field folded by today keys unless one is named.
const todayField = "temp"

// KeyExpr is a parsed source key.
type KeyExpr struct {
	Kind  KeyKind
	Field string
	Index int
	// Member is a dotted path inside the indexed element or nested object.
	Member string
	Op     AggregateOp
}

// ParseKey parses a source key. Forms are detected in this order: plain (no
// colon), indexed (numeric prefix), aggregate (min/max/avg prefix), today, nested.
func ParseKey(s string) (KeyExpr, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return KeyExpr{}, fmt.Errorf("empty source key")
	}

	prefix, rest, found := strings.Cut(s, ":")
	if !found {
		return KeyExpr{Kind: KeyPlain, Field: s}, nil
	}
	if prefix == "" || rest == "" {
		return KeyExpr{}, fmt.Errorf("malformed source key %q", s)
	}

	if idx, err := strconv.Atoi(prefix); err == nil {
		if idx < 0 {
			return KeyExpr{}, fmt.Errorf("negative index in source key %q", s)
		}
		field, member, _ := strings.Cut(rest, ".")
		if field == "" {
			return KeyExpr{}, fmt.Errorf("missing array field in source key %q", s)
		}
		return KeyExpr{Kind: KeyIndexed, Index: idx, Field: field, Member: member}, nil
	}

	switch op := AggregateOp(prefix); op {
	case OpMin, OpMax, OpAvg:
		return KeyExpr{Kind: KeyAggregate, Op: op, Field: rest}, nil
	}

	if prefix == "today" {
		op, field, _ := strings.Cut(rest, ".")
		if field == "" {
			field = todayField
		}
		switch AggregateOp(op) {
		case OpMin, OpMax:
			return KeyExpr{Kind: KeyToday, Op: AggregateOp(op), Field: field}, nil
		default:
			return KeyExpr{}, fmt.Errorf("today key %q must be min or max", s)
		}
	}

	return KeyExpr{Kind: KeyNested, Field: prefix, Member: rest}, nil
}

// MustParseKey is ParseKey for static schema definitions.
func MustParseKey(s string) KeyExpr {
	k, err := ParseKey(s)
	if err != nil {
		panic(err)
	}
	return k
}

func (k KeyExpr) String() string {
	switch k.Kind {
	case KeyIndexed:
		if k.Member == "" {
			return fmt.Sprintf("%d:%s", k.Index, k.Field)
		}
		return fmt.Sprintf("%d:%s.%s", k.Index, k.Field, k.Member)
	case KeyAggregate:
		return string(k.Op) + ":" + k.Field
	case KeyNested:
		return k.Field + ":" + k.Member
	case KeyToday:
		if k.Field == todayField {
			return "today:" + string(k.Op)
		}
		return "today:" + string(k.Op) + "." + k.Field
	default:
		return k.Field
	}
}
