package http

import (
	"context"
	"errors"
	"net/http"

	"settlements/internal/log"
	"settlements/internal/month"
)

// handleIndex renders the month page. An absent or malformed ?month falls
// back to the current month.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	nav := month.NewNavigator(s.clock, month.Key(r.URL.Query().Get("month")))
	page := indexPage{
		Nav:   nav.State(),
		Today: s.clock.Now().Format("2006-01-02"),
	}

	items, err := s.svc.ListByMonth(ctx, nav.CurrentMonth())
	if err == nil {
		page.Settlements = newSettlementViews(items)
		sum, sumErr := s.svc.Summary(ctx, nav.CurrentMonth())
		err = sumErr
		page.Summary = newSummaryView(sum)
	}
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to load month",
			log.FieldMonth, nav.CurrentMonth(), log.FieldError, err)
		page.LoadError = "Settlements could not be loaded. Try again shortly."
	}

	s.render(w, r, http.StatusOK, "index.html", page)
}

// handleMonthState returns the navigator state and totals of one month.
func (s *Server) handleMonthState(w http.ResponseWriter, r *http.Request) {
	k, err := month.Parse(r.PathValue("key"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	sum, err := s.svc.Summary(ctx, k)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to summarise month", log.FieldMonth, k, log.FieldError, err)
		writeError(w, r, http.StatusInternalServerError, "failed to load month")
		return
	}

	writeJSON(ctx, w, http.StatusOK, monthResponse{
		State:   month.NewNavigator(s.clock, k).State(),
		Summary: newSummaryView(sum),
	})
}

// handleMonthSelector renders the month dropdown. The page requests it
// lazily once the table is on screen.
func (s *Server) handleMonthSelector(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	selected := month.NewNavigator(s.clock, month.Key(r.URL.Query().Get("month"))).CurrentMonth()
	keys, state, err := s.selector.Load(ctx, selected)

	partial := selectorPartial{State: state.String()}
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		log.FromContext(ctx).ErrorContext(ctx, "Failed to load month selector",
			log.FieldMonth, selected, log.FieldError, err)
		partial.Error = "Months could not be loaded."
		s.render(w, r, status, "month_selector.html", partial)
		return
	}

	for _, k := range keys {
		partial.Options = append(partial.Options, selectorOption{
			Key:      k,
			Label:    month.FormatMonthYear(k),
			Selected: k == selected,
		})
	}
	s.render(w, r, http.StatusOK, "month_selector.html", partial)
}
