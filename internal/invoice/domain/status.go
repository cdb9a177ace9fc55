package domain

import (
	"strings"

	"github.com/samber/lo"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "DRAFT"
	InvoiceStatusSent    InvoiceStatus = "SENT"
	InvoiceStatusViewed  InvoiceStatus = "VIEWED"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
	InvoiceStatusOverdue InvoiceStatus = "OVERDUE"
	InvoiceStatusVoid    InvoiceStatus = "VOID"
)

var AllStatuses = []InvoiceStatus{
	InvoiceStatusDraft,
	InvoiceStatusSent,
	InvoiceStatusViewed,
	InvoiceStatusPaid,
	InvoiceStatusOverdue,
	InvoiceStatusVoid,
}

// SettledStatuses never contribute to outstanding balances.
var SettledStatuses = []InvoiceStatus{InvoiceStatusPaid, InvoiceStatusVoid}

func ParseStatus(raw string) (InvoiceStatus, bool) {
	s := InvoiceStatus(strings.ToUpper(strings.TrimSpace(raw)))
	return s, lo.Contains(AllStatuses, s)
}

// IsOutstanding reports whether an invoice in this status is still owed.
// Drafts count.
func (s InvoiceStatus) IsOutstanding() bool {
	return !lo.Contains(SettledStatuses, s)
}

// Action names a transition of the invoice state machine.
type Action string

const (
	ActionSend            Action = "send"
	ActionRecordFirstView Action = "record_first_view"
	ActionRecordPayment   Action = "record_payment"
	ActionVoid            Action = "void"
	ActionSweepOverdue    Action = "sweep_overdue"
)

func ParseAction(raw string) (Action, bool) {
	a := Action(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := transitions[a]
	return a, ok
}

// Rule is one row of the transition table.
type Rule struct {
	From []InvoiceStatus
	To   InvoiceStatus
	// Noop lists statuses where the action succeeds without writing.
	Noop []InvoiceStatus
}

func (r Rule) Allows(from InvoiceStatus) bool {
	return lo.Contains(r.From, from)
}

func (r Rule) IsNoop(from InvoiceStatus) bool {
	return lo.Contains(r.Noop, from)
}

var transitions = map[Action]Rule{
	ActionSend: {
		From: []InvoiceStatus{InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusViewed, InvoiceStatusOverdue},
		To:   InvoiceStatusSent,
	},
	ActionRecordFirstView: {
		From: []InvoiceStatus{InvoiceStatusSent},
		To:   InvoiceStatusViewed,
		Noop: []InvoiceStatus{InvoiceStatusDraft, InvoiceStatusViewed, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusVoid},
	},
	ActionRecordPayment: {
		From: []InvoiceStatus{InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusViewed, InvoiceStatusOverdue},
		To:   InvoiceStatusPaid,
		Noop: []InvoiceStatus{InvoiceStatusPaid},
	},
	ActionVoid: {
		From: []InvoiceStatus{InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusViewed, InvoiceStatusOverdue},
		To:   InvoiceStatusVoid,
		Noop: []InvoiceStatus{InvoiceStatusVoid},
	},
	ActionSweepOverdue: {
		From: []InvoiceStatus{InvoiceStatusSent, InvoiceStatusViewed},
		To:   InvoiceStatusOverdue,
	},
}

// RuleFor returns the transition rule for an action.
func RuleFor(action Action) (Rule, bool) {
	r, ok := transitions[action]
	return r, ok
}
