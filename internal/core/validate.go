package core

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownUser         = errors.New("unknown user")
	ErrMissingSplit        = errors.New("missing split")
	ErrNoParticipants      = errors.New("no participants")
	ErrCustomSplitMismatch = errors.New("custom shares do not add up to the amount")
	ErrNegativeShare       = errors.New("negative custom share")
	ErrPayerIsBeneficiary  = errors.New("payer cannot be a loan beneficiary")
	ErrMissingDate         = errors.New("missing date")
)

// ValidateExpense checks the creation-time invariants of an expense
// against roster and reports every violation found.
//
// The balance fold does not call this: stored records are folded as-is.
func ValidateExpense(e Expense, roster Roster) error {
	var errs []error

	if !e.Amount.IsPositive() {
		errs = append(errs, fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount))
	}
	if e.PaidBy == "" {
		errs = append(errs, fmt.Errorf("%w: payer is required", ErrUnknownUser))
	} else if !roster.Contains(e.PaidBy) {
		errs = append(errs, fmt.Errorf("%w: payer %q", ErrUnknownUser, e.PaidBy))
	}
	if e.Date.IsZero() {
		errs = append(errs, ErrMissingDate)
	}

	switch s := e.Split.(type) {
	case nil:
		errs = append(errs, ErrMissingSplit)
	case EqualSplit:
		errs = append(errs, checkMembers(uniqueUsers(s.Participants), roster)...)
	case FullPaymentSplit:
		users := uniqueUsers(s.Beneficiaries)
		errs = append(errs, checkMembers(users, roster)...)
		for _, u := range users {
			if u == e.PaidBy {
				errs = append(errs, ErrPayerIsBeneficiary)
				break
			}
		}
	case CustomSplit:
		for u, v := range s.Shares {
			if !roster.Contains(u) {
				errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownUser, u))
			}
			if v.IsNegative() {
				errs = append(errs, fmt.Errorf("%w: %q", ErrNegativeShare, u))
			}
		}
		if len(s.users()) == 0 {
			errs = append(errs, ErrNoParticipants)
		} else if diff := s.Sum().Sub(e.Amount).Abs(); diff.GreaterThan(SplitTolerance) {
			errs = append(errs, fmt.Errorf("%w: shares total %s, amount %s",
				ErrCustomSplitMismatch, FormatAmount(s.Sum()), FormatAmount(e.Amount)))
		}
	}

	return errors.Join(errs...)
}

func checkMembers(users []UserID, roster Roster) []error {
	if len(users) == 0 {
		return []error{ErrNoParticipants}
	}
	var errs []error
	for _, u := range users {
		if !roster.Contains(u) {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownUser, u))
		}
	}
	return errs
}
