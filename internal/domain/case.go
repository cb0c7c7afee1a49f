package domain

import "time"

// Kind selects one of the three case collections.
type Kind string

const (
	KindTicket      Kind = "ticket"
	KindEstimate    Kind = "estimate"
	KindAppointment Kind = "appointment"
)

func (k Kind) Valid() bool {
	switch k {
	case KindTicket, KindEstimate, KindAppointment:
		return true
	}
	return false
}

// Status is the lifecycle state of a case. The set of legal values depends
// on the case kind; see StatusesFor.
type Status string

const (
	StatusOpen       Status = "open"
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
	StatusQuoted     Status = "quoted"
	StatusApproved   Status = "approved"
	StatusDeclined   Status = "declined"
	StatusRejected   Status = "rejected"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// StatusesFor returns every legal status value for the given kind.
func StatusesFor(kind Kind) []Status {
	switch kind {
	case KindTicket:
		return []Status{StatusOpen, StatusInProgress, StatusResolved, StatusClosed}
	case KindEstimate:
		return []Status{StatusPending, StatusInProgress, StatusQuoted, StatusApproved, StatusDeclined, StatusCompleted}
	case KindAppointment:
		return []Status{StatusPending, StatusApproved, StatusRejected, StatusCompleted, StatusCancelled}
	}
	return nil
}

// InitialStatus is the status a freshly created case starts in.
func InitialStatus(kind Kind) Status {
	if kind == KindTicket {
		return StatusOpen
	}
	return StatusPending
}

// Requester is the name and contact captured at creation time. It is a
// denormalized snapshot, not a live reference to a user record.
type Requester struct {
	Name  string `bson:"name" json:"name"`
	Email string `bson:"email" json:"email"`
}

// CaseBase holds the fields shared by all three case variants.
type CaseBase struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	Status      Status    `bson:"status" json:"status"`
	Requester   Requester `bson:"requester" json:"requester"`
	Messages    []Message `bson:"messages" json:"messages"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	LastUpdated time.Time `bson:"last_updated" json:"last_updated"`
}

// Case is the tagged union over the three variants. Base gives mutable
// access to the shared fields so the repository can stamp IDs and times.
type Case interface {
	Kind() Kind
	Base() *CaseBase
}

type Ticket struct {
	CaseBase `bson:",inline"`
	Category string `bson:"category" json:"category"`
	Priority string `bson:"priority" json:"priority"`
}

func (t *Ticket) Kind() Kind      { return KindTicket }
func (t *Ticket) Base() *CaseBase { return &t.CaseBase }

type Estimate struct {
	CaseBase    `bson:",inline"`
	QuotedPrice *float64 `bson:"quoted_price,omitempty" json:"quoted_price,omitempty"`
	AdminNotes  string   `bson:"admin_notes,omitempty" json:"admin_notes,omitempty"`
}

func (e *Estimate) Kind() Kind      { return KindEstimate }
func (e *Estimate) Base() *CaseBase { return &e.CaseBase }

type Appointment struct {
	CaseBase       `bson:",inline"`
	ServicePackage string  `bson:"service_package" json:"service_package"`
	EstimatedPrice float64 `bson:"estimated_price" json:"estimated_price"`
	FinalPrice     float64 `bson:"final_price,omitempty" json:"final_price,omitempty"`
}

func (a *Appointment) Kind() Kind      { return KindAppointment }
func (a *Appointment) Base() *CaseBase { return &a.CaseBase }
