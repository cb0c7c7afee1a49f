package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/90brandingllc/poveda-portal-sub001/internal/auth"
	"github.com/90brandingllc/poveda-portal-sub001/internal/domain"
	"github.com/90brandingllc/poveda-portal-sub001/internal/repository"
	"github.com/90brandingllc/poveda-portal-sub001/internal/service"
	"github.com/90brandingllc/poveda-portal-sub001/internal/workflow"
)

type createCaseReq struct {
	Requester      domain.Requester `json:"requester"`
	Message        string           `json:"message"`
	Category       string           `json:"category"`
	Priority       string           `json:"priority"`
	ServicePackage string           `json:"service_package"`
	EstimatedPrice float64          `json:"estimated_price"`
}

type appendMessageReq struct {
	Body   string        `json:"body"`
	Status domain.Status `json:"status,omitempty"`
}

type changeStatusReq struct {
	Status      domain.Status `json:"status"`
	QuotedPrice *float64      `json:"quoted_price,omitempty"`
	AdminNotes  string        `json:"admin_notes,omitempty"`
	FinalPrice  *float64      `json:"final_price,omitempty"`
	Message     string        `json:"message,omitempty"`
}

func (s *Server) createCase(c *fiber.Ctx) error {
	kind, err := parseKind(c.Params("kind"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	var req createCaseReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	claims := auth.FromCtx(c)
	if req.Requester.Name == "" {
		req.Requester.Name = claims.Name
	}

	var newCase domain.Case
	switch kind {
	case domain.KindTicket:
		newCase = &domain.Ticket{Category: req.Category, Priority: req.Priority}
	case domain.KindEstimate:
		newCase = &domain.Estimate{}
	case domain.KindAppointment:
		newCase = &domain.Appointment{ServicePackage: req.ServicePackage, EstimatedPrice: req.EstimatedPrice}
	}
	base := newCase.Base()
	base.Requester = req.Requester
	if req.Message != "" {
		base.Messages = []domain.Message{{
			Sender:     senderFor(claims),
			SenderName: claims.Name,
			Body:       req.Message,
			Timestamp:  time.Now().UTC(),
		}}
	}

	if err := s.svc.Create(c.Context(), newCase); err != nil {
		return s.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(newCase)
}

func (s *Server) listCases(c *fiber.Ctx) error {
	kind, err := parseKind(c.Params("kind"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	list, err := s.svc.List(c.Context(), kind)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(fiber.Map{"cases": list})
}

func (s *Server) getCase(c *fiber.Ctx) error {
	kind, err := parseKind(c.Params("kind"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	found, err := s.svc.Get(c.Context(), kind, c.Params("id"))
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(found)
}

// appendMessage posts a reply into a case thread, optionally combined with
// a status transition in the same atomic update.
func (s *Server) appendMessage(c *fiber.Ctx) error {
	kind, err := parseKind(c.Params("kind"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	var req appendMessageReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	claims := auth.FromCtx(c)
	if req.Status != "" && !claims.IsAdmin() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "only admins can change status"})
	}

	msg := domain.Message{
		Sender:     senderFor(claims),
		SenderName: claims.Name,
		Body:       req.Body,
		Timestamp:  time.Now().UTC(),
	}
	dec, err := s.svc.Update(c.Context(), kind, c.Params("id"), claims.UserID, workflow.Request{
		Status:  req.Status,
		Message: &msg,
	})
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(fiber.Map{"status": dec.Status, "message": msg})
}

func (s *Server) changeStatus(c *fiber.Ctx) error {
	kind, err := parseKind(c.Params("kind"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	var req changeStatusReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	claims := auth.FromCtx(c)

	wreq := workflow.Request{
		Status:      req.Status,
		QuotedPrice: req.QuotedPrice,
		AdminNotes:  req.AdminNotes,
		FinalPrice:  req.FinalPrice,
	}
	if req.Message != "" {
		wreq.Message = &domain.Message{
			Sender:     domain.SenderAdmin,
			SenderName: claims.Name,
			Body:       req.Message,
			Timestamp:  time.Now().UTC(),
		}
	}
	dec, err := s.svc.Update(c.Context(), kind, c.Params("id"), claims.UserID, wreq)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(fiber.Map{"status": dec.Status})
}

func (s *Server) deleteCase(c *fiber.Ctx) error {
	kind, err := parseKind(c.Params("kind"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	claims := auth.FromCtx(c)
	if err := s.svc.Delete(c.Context(), kind, c.Params("id"), claims.UserID); err != nil {
		return s.writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) onlineAdmins(c *fiber.Ctx) error {
	admins, err := s.pres.OnlineAdmins(c.Context())
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(fiber.Map{"online": admins})
}

// writeError maps domain failures onto responses. Write failures must reach
// the acting user with something actionable; they are never swallowed.
func (s *Server) writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "case not found"})
	case errors.Is(err, service.ErrDeleteNotAllowed):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, workflow.ErrQuoteRequired),
		errors.Is(err, workflow.ErrEmptyMessage),
		errors.Is(err, workflow.ErrUnknownStatus),
		errors.Is(err, workflow.ErrUnknownKind):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}
	s.log.Errorw("request failed", "path", c.Path(), "err", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
}

func senderFor(claims *auth.Claims) domain.Sender {
	if claims.IsAdmin() {
		return domain.SenderAdmin
	}
	return domain.SenderCustomer
}
