// Package service orchestrates case commands: validate with the workflow
// machine, commit through the repository, then announce on the event bus.
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/90brandingllc/poveda-portal-sub001/internal/domain"
	"github.com/90brandingllc/poveda-portal-sub001/internal/events"
	"github.com/90brandingllc/poveda-portal-sub001/internal/workflow"
)

var ErrDeleteNotAllowed = errors.New("only tickets can be deleted")

// CaseStore is the slice of the repository the service needs.
type CaseStore interface {
	Insert(ctx context.Context, c domain.Case) error
	Get(ctx context.Context, kind domain.Kind, id string) (domain.Case, error)
	List(ctx context.Context, kind domain.Kind) ([]domain.Case, error)
	ApplyUpdate(ctx context.Context, kind domain.Kind, id string, dec workflow.Decision) error
	Delete(ctx context.Context, kind domain.Kind, id string) error
}

type CaseService struct {
	store CaseStore
	bus   *events.Publisher
	log   *zap.SugaredLogger
}

func NewCaseService(store CaseStore, bus *events.Publisher, log *zap.SugaredLogger) *CaseService {
	return &CaseService{store: store, bus: bus, log: log}
}

// Create stores a new case and announces it. The insert is what feeds every
// attached notification aggregator through the store's change stream.
func (s *CaseService) Create(ctx context.Context, c domain.Case) error {
	if err := s.store.Insert(ctx, c); err != nil {
		return err
	}
	s.bus.CaseCreated(ctx, c)
	return nil
}

// Update runs one command against a case: an explicit transition, a reply,
// or both combined into a single atomic store request. Workflow violations
// are rejected here, before any store call is issued.
func (s *CaseService) Update(ctx context.Context, kind domain.Kind, id, actor string, req workflow.Request) (workflow.Decision, error) {
	current, err := s.store.Get(ctx, kind, id)
	if err != nil {
		return workflow.Decision{}, err
	}
	dec, err := workflow.Apply(kind, current.Base().Status, req)
	if err != nil {
		return workflow.Decision{}, err
	}
	if !dec.Changed() {
		return dec, nil
	}
	if err := s.store.ApplyUpdate(ctx, kind, id, dec); err != nil {
		return workflow.Decision{}, err
	}
	if dec.Status != "" {
		s.bus.StatusChanged(ctx, kind, id, dec.Status, actor)
	}
	if dec.Message != nil {
		s.bus.MessageAppended(ctx, kind, id, actor)
	}
	return dec, nil
}

// Delete permanently removes a ticket and its thread. The other kinds keep
// their history and are closed out through status transitions instead.
func (s *CaseService) Delete(ctx context.Context, kind domain.Kind, id, actor string) error {
	if kind != domain.KindTicket {
		return fmt.Errorf("%w: %s", ErrDeleteNotAllowed, kind)
	}
	if err := s.store.Delete(ctx, kind, id); err != nil {
		return err
	}
	s.bus.CaseDeleted(ctx, kind, id, actor)
	return nil
}

func (s *CaseService) Get(ctx context.Context, kind domain.Kind, id string) (domain.Case, error) {
	return s.store.Get(ctx, kind, id)
}

func (s *CaseService) List(ctx context.Context, kind domain.Kind) ([]domain.Case, error) {
	return s.store.List(ctx, kind)
}
