package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// SplitType is the wire name of a split strategy.
type SplitType string

const (
	SplitEqual       SplitType = "equal"
	SplitCustom      SplitType = "custom"
	SplitFullPayment SplitType = "full_payment"
)

var ErrUnknownSplitType = errors.New("unknown split type")

// ParseSplitType accepts the wire names, case-insensitively.
func ParseSplitType(s string) (SplitType, error) {
	switch SplitType(strings.ToLower(strings.TrimSpace(s))) {
	case SplitEqual:
		return SplitEqual, nil
	case SplitCustom:
		return SplitCustom, nil
	case SplitFullPayment:
		return SplitFullPayment, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSplitType, s)
}

// Split is the closed set of strategies. Only the three types in this
// file implement it.
type Split interface {
	Kind() SplitType
	isSplit()
}

// EqualSplit divides the amount evenly among Participants. A payer listed
// among them keeps their own slice.
type EqualSplit struct {
	Participants []UserID
}

// CustomSplit assigns each user an exact share.
type CustomSplit struct {
	Shares map[UserID]decimal.Decimal
}

// FullPaymentSplit is a loan: the payer covered the whole amount for the
// Beneficiaries, who owe it back in equal parts.
type FullPaymentSplit struct {
	Beneficiaries []UserID
}

func (EqualSplit) Kind() SplitType       { return SplitEqual }
func (CustomSplit) Kind() SplitType      { return SplitCustom }
func (FullPaymentSplit) Kind() SplitType { return SplitFullPayment }

func (EqualSplit) isSplit()       {}
func (CustomSplit) isSplit()      {}
func (FullPaymentSplit) isSplit() {}

// NewSplit builds a split from its flat parts, the form used by request
// bodies and storage rows. participants is ignored for custom splits and
// shares is ignored for the others.
func NewSplit(kind SplitType, participants []UserID, shares map[UserID]decimal.Decimal) (Split, error) {
	switch kind {
	case SplitEqual:
		return EqualSplit{Participants: uniqueUsers(participants)}, nil
	case SplitCustom:
		cp := make(map[UserID]decimal.Decimal, len(shares))
		for u, v := range shares {
			cp[u] = v
		}
		return CustomSplit{Shares: cp}, nil
	case SplitFullPayment:
		return FullPaymentSplit{Beneficiaries: uniqueUsers(participants)}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSplitType, kind)
}

// SplitParts flattens a split back into NewSplit arguments.
func SplitParts(s Split) (SplitType, []UserID, map[UserID]decimal.Decimal) {
	switch v := s.(type) {
	case EqualSplit:
		return SplitEqual, uniqueUsers(v.Participants), nil
	case CustomSplit:
		return SplitCustom, v.users(), v.Shares
	case FullPaymentSplit:
		return SplitFullPayment, uniqueUsers(v.Beneficiaries), nil
	}
	return "", nil, nil
}

// Sum adds up every share, whatever its sign.
func (s CustomSplit) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, v := range s.Shares {
		total = total.Add(v)
	}
	return total
}

// users returns share holders with a positive share, sorted.
func (s CustomSplit) users() []UserID {
	out := make([]UserID, 0, len(s.Shares))
	for u, v := range s.Shares {
		if u != "" && v.IsPositive() {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// uniqueUsers drops blanks and duplicates, keeping first-seen order.
func uniqueUsers(in []UserID) []UserID {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[UserID]struct{}, len(in))
	out := make([]UserID, 0, len(in))
	for _, u := range in {
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
