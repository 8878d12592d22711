package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/shopspring/decimal"

	"flatshare/internal/core"
	"flatshare/internal/services"
)

const maxBodyBytes = 1 << 20

// flexAmount accepts an amount sent as a JSON number or a string.
type flexAmount string

func (a *flexAmount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = flexAmount(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount must be a number or a string")
	}
	*a = flexAmount(n.String())
	return nil
}

type expenseRequest struct {
	Description  string                `json:"description" validate:"required,max=200"`
	Amount       flexAmount            `json:"amount" validate:"required"`
	PaidBy       string                `json:"paid_by" validate:"required"`
	SplitType    string                `json:"split_type" validate:"required,oneof=equal custom full_payment"`
	Participants []string              `json:"participants" validate:"omitempty,dive,required"`
	Shares       map[string]flexAmount `json:"shares" validate:"omitempty,dive,keys,required,endkeys,required"`
	// Date is RFC 3339 or YYYY-MM-DD; empty means now.
	Date     string `json:"date"`
	Category string `json:"category" validate:"max=50"`
	Notes    string `json:"notes" validate:"max=500"`
}

type itemRequest struct {
	Name       string `json:"name" validate:"required,max=100"`
	Quantity   string `json:"quantity" validate:"max=50"`
	AddedBy    string `json:"added_by" validate:"required"`
	AssignedTo string `json:"assigned_to"`
	Priority   string `json:"priority" validate:"omitempty,oneof=low medium high"`
	Notes      string `json:"notes" validate:"max=500"`
}

// itemPatch carries only the fields to change.
type itemPatch struct {
	Name       *string `json:"name" validate:"omitempty,min=1,max=100"`
	Quantity   *string `json:"quantity" validate:"omitempty,max=50"`
	AssignedTo *string `json:"assigned_to"`
	Priority   *string `json:"priority" validate:"omitempty,oneof=low medium high"`
	Notes      *string `json:"notes" validate:"omitempty,max=500"`
	Completed  *bool   `json:"completed"`
}

type parseRequest struct {
	Text string `json:"text" validate:"required,max=200"`
}

// requestValidator checks request DTOs and renders failures in English
// using JSON field names.
type requestValidator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func newRequestValidator() *requestValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	eng := en.New()
	uni := ut.New(eng, eng)
	trans, _ := uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(v, trans); err != nil {
		panic(fmt.Sprintf("register validator translations: %v", err))
	}
	return &requestValidator{validate: v, translator: trans}
}

// decode reads a JSON body into dst and validates it. The returned
// messages are suitable for the client.
func (rv *requestValidator) decode(w http.ResponseWriter, r *http.Request, dst any) []string {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return []string{"request body is empty"}
		}
		return []string{"invalid JSON: " + err.Error()}
	}

	err := rv.validate.Struct(dst)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(errs))
	for _, fe := range errs {
		out = append(out, fe.Translate(rv.translator))
	}
	return out
}

// toNewExpense converts a validated request into service input.
func (req expenseRequest) toNewExpense() (services.NewExpense, []string) {
	var problems []string

	amount, err := core.ParseAmount(string(req.Amount))
	if err != nil {
		problems = append(problems, "amount must be a positive number")
	}

	kind, err := core.ParseSplitType(req.SplitType)
	if err != nil {
		problems = append(problems, err.Error())
	}

	participants := make([]core.UserID, 0, len(req.Participants))
	for _, p := range req.Participants {
		participants = append(participants, core.UserID(strings.TrimSpace(p)))
	}

	var shares map[core.UserID]decimal.Decimal
	if len(req.Shares) > 0 {
		shares = make(map[core.UserID]decimal.Decimal, len(req.Shares))
		for u, v := range req.Shares {
			d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(string(v)), ",", "."))
			if err != nil {
				problems = append(problems, fmt.Sprintf("share of %s is not a number", u))
				continue
			}
			shares[core.UserID(strings.TrimSpace(u))] = d.Round(2)
		}
	}

	date, err := parseDate(req.Date)
	if err != nil {
		problems = append(problems, "date must be RFC 3339 or YYYY-MM-DD")
	}

	if len(problems) > 0 {
		return services.NewExpense{}, problems
	}

	split, err := core.NewSplit(kind, participants, shares)
	if err != nil {
		return services.NewExpense{}, []string{err.Error()}
	}

	return services.NewExpense{
		Description: req.Description,
		Amount:      amount,
		PaidBy:      core.UserID(strings.TrimSpace(req.PaidBy)),
		Split:       split,
		Date:        date,
		Category:    req.Category,
		Notes:       req.Notes,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(core.DayLayout, s)
}

func (req itemRequest) toNewItem() services.NewItem {
	return services.NewItem{
		Name:       req.Name,
		Quantity:   req.Quantity,
		AddedBy:    core.UserID(strings.TrimSpace(req.AddedBy)),
		AssignedTo: core.UserID(strings.TrimSpace(req.AssignedTo)),
		Priority:   req.Priority,
		Notes:      req.Notes,
	}
}

func (p itemPatch) toUpdate() (core.ShoppingUpdate, error) {
	u := core.ShoppingUpdate{
		Name:      p.Name,
		Quantity:  p.Quantity,
		Notes:     p.Notes,
		Completed: p.Completed,
	}
	if p.AssignedTo != nil {
		id := core.UserID(strings.TrimSpace(*p.AssignedTo))
		u.AssignedTo = &id
	}
	if p.Priority != nil {
		prio, err := core.ParsePriority(*p.Priority)
		if err != nil {
			return core.ShoppingUpdate{}, err
		}
		u.Priority = &prio
	}
	return u, nil
}

// filterFromQuery reads month, day, paid_by and category. month and day
// are interpreted in loc; day wins when both are set.
func filterFromQuery(r *http.Request, loc *time.Location) (core.Filter, error) {
	q := r.URL.Query()
	f := core.Filter{
		PaidBy:   core.UserID(strings.TrimSpace(q.Get("paid_by"))),
		Category: strings.TrimSpace(q.Get("category")),
	}
	var err error
	if day := strings.TrimSpace(q.Get("day")); day != "" {
		if f.From, f.To, err = core.DayRange(day, loc); err != nil {
			return core.Filter{}, fmt.Errorf("day must be YYYY-MM-DD")
		}
	} else if month := strings.TrimSpace(q.Get("month")); month != "" {
		if f.From, f.To, err = core.MonthRange(month, loc); err != nil {
			return core.Filter{}, fmt.Errorf("month must be YYYY-MM")
		}
	}
	return f, nil
}
