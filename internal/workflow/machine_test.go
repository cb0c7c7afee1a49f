package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/90brandingllc/poveda-portal-sub001/internal/domain"
)

func adminReply(body string) *domain.Message {
	return &domain.Message{Sender: domain.SenderAdmin, SenderName: "Ana", Body: body, Timestamp: time.Now().UTC()}
}

func TestTicketTransitions(t *testing.T) {
	cases := []struct {
		name    string
		current domain.Status
		target  domain.Status
		wantErr bool
	}{
		{name: "open to in-progress", current: domain.StatusOpen, target: domain.StatusInProgress},
		{name: "open to resolved", current: domain.StatusOpen, target: domain.StatusResolved},
		{name: "in-progress to resolved", current: domain.StatusInProgress, target: domain.StatusResolved},
		{name: "resolved to closed", current: domain.StatusResolved, target: domain.StatusClosed},
		{name: "open to closed skips resolved", current: domain.StatusOpen, target: domain.StatusClosed, wantErr: true},
		{name: "in-progress to closed skips resolved", current: domain.StatusInProgress, target: domain.StatusClosed, wantErr: true},
		{name: "closed is terminal", current: domain.StatusClosed, target: domain.StatusOpen, wantErr: true},
		{name: "resolved does not reopen", current: domain.StatusResolved, target: domain.StatusOpen, wantErr: true},
		{name: "foreign status rejected", current: domain.StatusOpen, target: domain.StatusQuoted, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dec, err := Apply(domain.KindTicket, tc.current, Request{Status: tc.target})
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Apply(%s -> %s) succeeded, want error", tc.current, tc.target)
				}
				return
			}
			if err != nil {
				t.Fatalf("Apply(%s -> %s): %v", tc.current, tc.target, err)
			}
			if dec.Status != tc.target {
				t.Fatalf("decided status = %q, want %q", dec.Status, tc.target)
			}
		})
	}
}

func TestAdminReplyAdvancesOpenTicket(t *testing.T) {
	dec, err := Apply(domain.KindTicket, domain.StatusOpen, Request{Message: adminReply("on it")})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if dec.Status != domain.StatusInProgress {
		t.Fatalf("decided status = %q, want %q", dec.Status, domain.StatusInProgress)
	}
	if dec.Message == nil || dec.Message.Body != "on it" {
		t.Fatalf("decision dropped the message: %+v", dec.Message)
	}
}

func TestCustomerReplyDoesNotAdvance(t *testing.T) {
	msg := &domain.Message{Sender: domain.SenderCustomer, SenderName: "Luis", Body: "any update?", Timestamp: time.Now().UTC()}
	dec, err := Apply(domain.KindTicket, domain.StatusOpen, Request{Message: msg})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if dec.Status != "" {
		t.Fatalf("decided status = %q, want no transition", dec.Status)
	}
}

func TestQuotedPriceForcesQuotedStatus(t *testing.T) {
	price := 1500.0
	dec, err := Apply(domain.KindEstimate, domain.StatusPending, Request{
		Status:      domain.StatusInProgress,
		QuotedPrice: &price,
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if dec.Status != domain.StatusQuoted {
		t.Fatalf("decided status = %q, want %q", dec.Status, domain.StatusQuoted)
	}
	if got, ok := dec.Fields["quoted_price"].(float64); !ok || got != price {
		t.Fatalf("quoted_price field = %v, want %v", dec.Fields["quoted_price"], price)
	}
}

func TestQuoteWithoutPriceRejected(t *testing.T) {
	_, err := Apply(domain.KindEstimate, domain.StatusPending, Request{Status: domain.StatusQuoted})
	if !errors.Is(err, ErrQuoteRequired) {
		t.Fatalf("err = %v, want ErrQuoteRequired", err)
	}
}

func TestEstimateLifecycle(t *testing.T) {
	cases := []struct {
		name    string
		current domain.Status
		req     Request
		want    domain.Status
		wantErr bool
	}{
		{name: "first admin reply starts progress", current: domain.StatusPending, req: Request{Message: adminReply("looking")}, want: domain.StatusInProgress},
		{name: "quoted to approved", current: domain.StatusQuoted, req: Request{Status: domain.StatusApproved}, want: domain.StatusApproved},
		{name: "quoted to declined", current: domain.StatusQuoted, req: Request{Status: domain.StatusDeclined}, want: domain.StatusDeclined},
		{name: "approved to completed", current: domain.StatusApproved, req: Request{Status: domain.StatusCompleted}, want: domain.StatusCompleted},
		{name: "pending cannot complete", current: domain.StatusPending, req: Request{Status: domain.StatusCompleted}, wantErr: true},
		{name: "declined is terminal", current: domain.StatusDeclined, req: Request{Status: domain.StatusApproved}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dec, err := Apply(domain.KindEstimate, tc.current, tc.req)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Apply succeeded, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if dec.Status != tc.want {
				t.Fatalf("decided status = %q, want %q", dec.Status, tc.want)
			}
		})
	}
}

func TestAppointmentTransitions(t *testing.T) {
	cases := []struct {
		name    string
		current domain.Status
		target  domain.Status
		wantErr bool
	}{
		{name: "pending approved", current: domain.StatusPending, target: domain.StatusApproved},
		{name: "pending rejected", current: domain.StatusPending, target: domain.StatusRejected},
		{name: "pending cancelled", current: domain.StatusPending, target: domain.StatusCancelled},
		{name: "approved completed", current: domain.StatusApproved, target: domain.StatusCompleted},
		{name: "approved cancelled", current: domain.StatusApproved, target: domain.StatusCancelled},
		{name: "completed only from approved", current: domain.StatusPending, target: domain.StatusCompleted, wantErr: true},
		{name: "rejected is terminal", current: domain.StatusRejected, target: domain.StatusCompleted, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Apply(domain.KindAppointment, tc.current, Request{Status: tc.target})
			if tc.wantErr && err == nil {
				t.Fatalf("Apply(%s -> %s) succeeded, want error", tc.current, tc.target)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("Apply(%s -> %s): %v", tc.current, tc.target, err)
			}
		})
	}
}

func TestFinalPriceOnlyOnAppointments(t *testing.T) {
	price := 220.0
	dec, err := Apply(domain.KindAppointment, domain.StatusApproved, Request{
		Status:     domain.StatusCompleted,
		FinalPrice: &price,
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := dec.Fields["final_price"]; got != price {
		t.Fatalf("final_price field = %v, want %v", got, price)
	}

	dec, err = Apply(domain.KindTicket, domain.StatusOpen, Request{Status: domain.StatusInProgress, FinalPrice: &price})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, ok := dec.Fields["final_price"]; ok {
		t.Fatal("final_price leaked into a ticket update")
	}
}

func TestEmptyMessageRejected(t *testing.T) {
	_, err := Apply(domain.KindTicket, domain.StatusOpen, Request{Message: adminReply("")})
	if !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("err = %v, want ErrEmptyMessage", err)
	}
}

func TestUnknownKindAndStatus(t *testing.T) {
	if _, err := Apply(domain.Kind("invoice"), domain.StatusOpen, Request{}); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("err = %v, want ErrUnknownKind", err)
	}
	if _, err := Apply(domain.KindTicket, domain.Status("archived"), Request{}); !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("err = %v, want ErrUnknownStatus", err)
	}
}
