package rooms

import (
	"fmt"
	"strconv"
	"strings"
)

// compositeRefPrefix marks the transient client-side reference form
// "private_{userA}_{userB}". It is resolved to a canonical room exactly
// once at the boundary and never used as a channel key or persisted.
const compositeRefPrefix = "private_"

type RefKind int

const (
	RefCanonical RefKind = iota + 1
	RefDirectPair
	RefGroup
)

// Ref is a discriminated room reference. Handlers build one at the
// transport boundary and pass it to the Resolver; raw reference strings
// never travel further down.
type Ref struct {
	kind        RefKind
	canonicalId string
	userA       int
	userB       int
	groupId     int
}

func (r Ref) Kind() RefKind { return r.kind }

func ByCanonicalId(id string) Ref {
	return Ref{kind: RefCanonical, canonicalId: id}
}

func ByDirectPair(userA, userB int) Ref {
	return Ref{kind: RefDirectPair, userA: userA, userB: userB}
}

func ByGroupId(groupId int) Ref {
	return Ref{kind: RefGroup, groupId: groupId}
}

// ParseRef turns a client-supplied reference string into a Ref. A
// string carrying the composite prefix must decompose into exactly two
// user ids; anything else is treated as a canonical room id.
func ParseRef(s string) (Ref, error) {
	if s == "" {
		return Ref{}, fmt.Errorf("%w: empty reference", ErrInvalidRef)
	}

	if strings.HasPrefix(s, compositeRefPrefix) {
		return ParseCompositeRef(s)
	}

	return ByCanonicalId(s), nil
}

// ParseCompositeRef parses the "private_{userA}_{userB}" form.
func ParseCompositeRef(s string) (Ref, error) {
	rest, ok := strings.CutPrefix(s, compositeRefPrefix)
	if !ok {
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
	}

	parts := strings.Split(rest, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
	}

	userA, err := strconv.Atoi(parts[0])
	if err != nil {
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
	}

	userB, err := strconv.Atoi(parts[1])
	if err != nil {
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
	}

	return ByDirectPair(userA, userB), nil
}

// PairKey normalizes an unordered user pair to the key the direct-room
// uniqueness constraint is declared on.
func PairKey(userA, userB int) string {
	if userA > userB {
		userA, userB = userB, userA
	}

	return fmt.Sprintf("%d:%d", userA, userB)
}
