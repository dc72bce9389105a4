package http

import (
	"context"
	"errors"
	"net/http"

	"settlements/internal/core"
	"settlements/internal/format"
	"settlements/internal/log"
	"settlements/internal/month"
)

var validationErrors = []error{
	core.ErrInvalidDay,
	core.ErrInvalidMonth,
	core.ErrInvalidAmount,
	core.ErrEmptyDescription,
	core.ErrDescriptionLong,
	core.ErrEmptyParty,
	core.ErrSameParty,
	core.ErrInvalidStatus,
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (s *Server) handleListSettlements(w http.ResponseWriter, r *http.Request) {
	k, ok := monthParam(r.URL.Query(), s.clock)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "month must be YYYY-MM")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	items, err := s.svc.ListByMonth(ctx, k)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to list settlements", log.FieldMonth, k, log.FieldError, err)
		writeError(w, r, http.StatusInternalServerError, "failed to list settlements")
		return
	}

	writeJSON(ctx, w, http.StatusOK, settlementListResponse{
		Month:          k,
		FormattedMonth: month.FormatMonthYear(k),
		Settlements:    newSettlementViews(items),
	})
}

// handleCreateSettlement accepts a form post from the page or a JSON body
// from API clients. HTMX callers get the new table row back.
func (s *Server) handleCreateSettlement(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	in, err := parseSettlementInput(parser, s.clock.Now())
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	created, err := s.svc.Create(ctx, in)
	if err != nil {
		if isValidationError(err) {
			writeError(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}
		log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, "Failed to create settlement", err,
			log.ComponentSettlement, log.OpCreate, nil)
		writeError(w, r, http.StatusInternalServerError, "failed to save settlement")
		return
	}
	s.selector.Invalidate()
	log.NewStructuredLogger(log.FromContext(ctx)).LogSettlementCreated(ctx,
		created.ID, created.Amount.Pence, created.PaidBy, created.OwedBy)

	view := newSettlementView(created)
	if !isHTMX(r) {
		writeJSON(ctx, w, http.StatusCreated, view)
		return
	}

	row, err := s.renderString("settlement_row", view)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Template execution failed", log.FieldError, err, "template", "settlement_row")
		writeError(w, r, http.StatusInternalServerError, "template error")
		return
	}
	NewHTMXResponse().
		TriggerSettlementCreated(created.MonthKey()).
		TriggerSuccessNotification(created.OwedBy + " owes " + created.PaidBy + " " + format.Pence(created.Amount.Pence)).
		BodyHTML(row).
		Write(w)
}

func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	id := r.PathValue("id")
	settled, err := s.svc.MarkSettled(ctx, id)
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "settlement not found")
		return
	case errors.Is(err, core.ErrAlreadySettled):
		writeError(w, r, http.StatusConflict, "settlement already settled")
		return
	case err != nil:
		log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, "Failed to settle", err,
			log.ComponentSettlement, log.OpSettle, log.NewFields().WithSettlement(id, 0, "", ""))
		writeError(w, r, http.StatusInternalServerError, "failed to settle")
		return
	}
	log.FromContext(ctx).InfoContext(ctx, "Settlement settled", log.FieldSettlementID, id)

	view := newSettlementView(settled)
	if !isHTMX(r) {
		writeJSON(ctx, w, http.StatusOK, view)
		return
	}

	row, err := s.renderString("settlement_row", view)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Template execution failed", log.FieldError, err, "template", "settlement_row")
		writeError(w, r, http.StatusInternalServerError, "template error")
		return
	}
	NewHTMXResponse().
		TriggerSettlementSettled(settled.MonthKey()).
		TriggerSuccessNotification("Marked as settled").
		BodyHTML(row).
		Write(w)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	items, err := s.svc.Notifications(ctx, notificationsPerPage)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to list notifications", log.FieldError, err)
		writeError(w, r, http.StatusInternalServerError, "failed to load notifications")
		return
	}

	views := make([]notificationView, 0, len(items))
	for _, n := range items {
		views = append(views, notificationView{
			Kind:      string(n.Kind),
			Title:     n.Title,
			Body:      n.Body,
			CreatedAt: format.Date(n.CreatedAt),
		})
	}
	s.render(w, r, http.StatusOK, "notifications.html", views)
}
