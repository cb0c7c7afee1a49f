// Package workflow decides status transitions for the three case kinds.
// It is pure: every rule is checked before any store call is issued, and
// the outcome is a Decision the repository turns into one atomic update.
package workflow

import (
	"errors"
	"fmt"

	"github.com/90brandingllc/poveda-portal-sub001/internal/domain"
)

var (
	ErrUnknownKind       = errors.New("unknown case kind")
	ErrUnknownStatus     = errors.New("unknown status for case kind")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrQuoteRequired     = errors.New("a quoted price is required to quote an estimate")
	ErrEmptyMessage      = errors.New("message body must not be empty")
)

var ticketTransitions = map[domain.Status][]domain.Status{
	domain.StatusOpen:       {domain.StatusInProgress, domain.StatusResolved},
	domain.StatusInProgress: {domain.StatusResolved},
	domain.StatusResolved:   {domain.StatusClosed},
	domain.StatusClosed:     {},
}

var estimateTransitions = map[domain.Status][]domain.Status{
	domain.StatusPending:    {domain.StatusInProgress, domain.StatusQuoted},
	domain.StatusInProgress: {domain.StatusQuoted},
	domain.StatusQuoted:     {domain.StatusApproved, domain.StatusDeclined},
	domain.StatusApproved:   {domain.StatusCompleted},
	domain.StatusDeclined:   {},
	domain.StatusCompleted:  {},
}

var appointmentTransitions = map[domain.Status][]domain.Status{
	domain.StatusPending:   {domain.StatusApproved, domain.StatusRejected, domain.StatusCancelled},
	domain.StatusApproved:  {domain.StatusCompleted, domain.StatusCancelled},
	domain.StatusRejected:  {},
	domain.StatusCompleted: {},
	domain.StatusCancelled: {},
}

func transitionsFor(kind domain.Kind) (map[domain.Status][]domain.Status, error) {
	switch kind {
	case domain.KindTicket:
		return ticketTransitions, nil
	case domain.KindEstimate:
		return estimateTransitions, nil
	case domain.KindAppointment:
		return appointmentTransitions, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// Request is what a caller wants to do to a case: an explicit target status,
// a quoted price (estimates only), extra fields to store alongside, and an
// optional reply to append in the same update.
type Request struct {
	Status      domain.Status
	QuotedPrice *float64
	AdminNotes  string
	FinalPrice  *float64
	Message     *domain.Message
}

// Decision is the validated outcome. Status is empty when the case keeps its
// current status. Fields carries variant-specific values to set in the same
// atomic update as the status and message.
type Decision struct {
	Status  domain.Status
	Fields  map[string]any
	Message *domain.Message
}

// Changed reports whether the decision carries any write at all.
func (d Decision) Changed() bool {
	return d.Status != "" || len(d.Fields) > 0 || d.Message != nil
}

// Apply validates a request against the current status of a case and
// returns the decided transition. Supplying a quoted price on an estimate
// forces the target status to "quoted", overriding any explicit status in
// the request. An admin reply to an untouched ticket or estimate advances it
// to "in-progress" even when no status was asked for.
func Apply(kind domain.Kind, current domain.Status, req Request) (Decision, error) {
	table, err := transitionsFor(kind)
	if err != nil {
		return Decision{}, err
	}
	if _, ok := table[current]; !ok {
		return Decision{}, fmt.Errorf("%w: %s %q", ErrUnknownStatus, kind, current)
	}
	if req.Message != nil && req.Message.Body == "" {
		return Decision{}, ErrEmptyMessage
	}

	dec := Decision{Fields: map[string]any{}, Message: req.Message}

	target := req.Status
	if kind == domain.KindEstimate && req.QuotedPrice != nil {
		// A supplied quote wins over whatever status the caller asked for.
		target = domain.StatusQuoted
		dec.Fields["quoted_price"] = *req.QuotedPrice
	}
	if target == "" && req.Message != nil && req.Message.Sender == domain.SenderAdmin {
		switch {
		case kind == domain.KindTicket && current == domain.StatusOpen:
			target = domain.StatusInProgress
		case kind == domain.KindEstimate && current == domain.StatusPending:
			target = domain.StatusInProgress
		}
	}

	if target != "" && target != current {
		if !statusKnown(kind, target) {
			return Decision{}, fmt.Errorf("%w: %s %q", ErrUnknownStatus, kind, target)
		}
		if target == domain.StatusQuoted && req.QuotedPrice == nil {
			return Decision{}, ErrQuoteRequired
		}
		if !legal(table, current, target) {
			return Decision{}, fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, kind, current, target)
		}
		dec.Status = target
	}

	if req.AdminNotes != "" && kind == domain.KindEstimate {
		dec.Fields["admin_notes"] = req.AdminNotes
	}
	if req.FinalPrice != nil && kind == domain.KindAppointment {
		dec.Fields["final_price"] = *req.FinalPrice
	}
	return dec, nil
}

func statusKnown(kind domain.Kind, s domain.Status) bool {
	for _, known := range domain.StatusesFor(kind) {
		if known == s {
			return true
		}
	}
	return false
}

func legal(table map[domain.Status][]domain.Status, from, to domain.Status) bool {
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}
