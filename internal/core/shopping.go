package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Priority orders shopping items. The zero value is treated as medium.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var (
	ErrInvalidPriority = errors.New("invalid priority")
	ErrEmptyItemName   = errors.New("item name is required")
)

// ParsePriority accepts low, medium or high. Empty means medium.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PriorityMedium, nil
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPriority, s)
}

// ShoppingItem is an entry on the shared list.
type ShoppingItem struct {
	ID         string
	Name       string
	Quantity   string
	Completed  bool
	AddedBy    UserID
	AssignedTo UserID
	Priority   Priority
	Notes      string
	Date       time.Time
}

// ShoppingUpdate is a partial change. Nil fields are left alone.
type ShoppingUpdate struct {
	Name       *string
	Quantity   *string
	AssignedTo *UserID
	Priority   *Priority
	Notes      *string
	Completed  *bool
}

// Apply returns a copy of item with u applied.
func (item ShoppingItem) Apply(u ShoppingUpdate) ShoppingItem {
	if u.Name != nil {
		item.Name = strings.TrimSpace(*u.Name)
	}
	if u.Quantity != nil {
		item.Quantity = strings.TrimSpace(*u.Quantity)
	}
	if u.AssignedTo != nil {
		item.AssignedTo = *u.AssignedTo
	}
	if u.Priority != nil {
		item.Priority = *u.Priority
	}
	if u.Notes != nil {
		item.Notes = strings.TrimSpace(*u.Notes)
	}
	if u.Completed != nil {
		item.Completed = *u.Completed
	}
	return item
}

// ValidateItem checks a shopping item against roster.
func ValidateItem(item ShoppingItem, roster Roster) error {
	var errs []error
	if strings.TrimSpace(item.Name) == "" {
		errs = append(errs, ErrEmptyItemName)
	}
	if !roster.Contains(item.AddedBy) {
		errs = append(errs, fmt.Errorf("%w: added by %q", ErrUnknownUser, item.AddedBy))
	}
	if item.AssignedTo != "" && !roster.Contains(item.AssignedTo) {
		errs = append(errs, fmt.Errorf("%w: assigned to %q", ErrUnknownUser, item.AssignedTo))
	}
	if _, err := ParsePriority(string(item.Priority)); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParsedItem is the result of ParseItemText.
type ParsedItem struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity,omitempty"`
}

var quantityPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(kg|liters|liter|packets|packet|bottles|bottle|pieces|piece)?`)

// ParseItemText splits free text such as a voice transcript into a
// quantity and a name: "2 kg rice" gives quantity "2 kg" and name "rice".
// Text without a number becomes the whole name.
func ParseItemText(text string) ParsedItem {
	text = strings.ToLower(strings.TrimSpace(text))
	loc := quantityPattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return ParsedItem{Name: text}
	}
	qty := text[loc[2]:loc[3]]
	if loc[4] >= 0 {
		qty += " " + text[loc[4]:loc[5]]
	}
	name := strings.TrimSpace(text[:loc[0]] + text[loc[1]:])
	return ParsedItem{Name: strings.Join(strings.Fields(name), " "), Quantity: qty}
}
