package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/foodthrift/paysmallsmall/adapter/cli"
	catalogApp "github.com/foodthrift/paysmallsmall/internal/catalog/application"
	catalogDomain "github.com/foodthrift/paysmallsmall/internal/catalog/domain"
	"github.com/foodthrift/paysmallsmall/internal/export"
	"github.com/foodthrift/paysmallsmall/internal/session"
)

type addPlanRequest struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	Category        string `json:"category"`
	Subcategory     string `json:"subcategory"`
	NumberOfSlots   int    `json:"numberOfSlots"`
	Amount          int64  `json:"amount"`
	Frequency       string `json:"frequency"`
	DurationInWeeks int    `json:"durationInWeeks"`
	ImageURL        string `json:"imageUrl"`
}

type archiveRequest struct {
	Reason string `json:"reason"`
}

type enrollRequest struct {
	PlanID string `json:"planId"`
}

type loginRequest struct {
	Role string `json:"role"`
}

type viewRequest struct {
	View string `json:"view"`
}

func (s *Server) listPlans(w http.ResponseWriter, r *http.Request) {
	var (
		plans []catalogDomain.Plan
		err   error
	)
	if archived, _ := strconv.ParseBool(r.URL.Query().Get("archived")); archived {
		plans, err = s.app.Catalog.ListArchived(r.Context())
	} else {
		plans, err = s.app.Catalog.List(r.Context())
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": plans})
}

func (s *Server) addPlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := s.app.RequireAdmin(ctx); err != nil {
		s.fail(w, r, err)
		return
	}
	var req addPlanRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	category := catalogDomain.CategoryFoodstuff
	if req.Category != "" {
		c, err := catalogDomain.ParseCategory(req.Category)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		category = c
	}
	frequency := catalogDomain.FrequencyWeekly
	if req.Frequency != "" {
		f, err := catalogDomain.ParseFrequency(req.Frequency)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		frequency = f
	}

	plan, err := s.app.Catalog.AddPlan(ctx, catalogApp.AddPlanCommand{
		ID:              req.ID,
		Name:            req.Name,
		Description:     req.Description,
		Category:        category,
		Subcategory:     req.Subcategory,
		NumberOfSlots:   req.NumberOfSlots,
		Amount:          req.Amount,
		Frequency:       frequency,
		DurationInWeeks: req.DurationInWeeks,
		ImageURL:        req.ImageURL,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (s *Server) archivePlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := s.app.RequireAdmin(ctx); err != nil {
		s.fail(w, r, err)
		return
	}
	var req archiveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	plan, found, err := s.app.Catalog.ArchivePlan(ctx, chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !found {
		writeJSON(w, http.StatusOK, map[string]any{"archived": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"archived": true, "plan": plan})
}

func (s *Server) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subs, err := s.app.Ledger.ListActive(ctx, s.app.CurrentUser(ctx).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subscriptions": subs})
}

func (s *Server) getSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sub, err := s.app.Ledger.Subscription(ctx, s.app.CurrentUser(ctx).ID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) enroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req enrollRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.PlanID == "" {
		writeError(w, http.StatusBadRequest, "planId is required")
		return
	}
	plan, err := s.app.Catalog.Lookup(ctx, req.PlanID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sub, err := s.app.Ledger.Enroll(ctx, s.app.CurrentUser(ctx).ID, plan)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (s *Server) cancelSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sub, err := s.app.Ledger.Cancel(ctx, s.app.CurrentUser(ctx).ID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) completeSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sub, err := s.app.Ledger.Complete(ctx, s.app.CurrentUser(ctx).ID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txs, err := s.app.Ledger.Transactions(ctx, s.app.CurrentUser(ctx).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sum, err := s.app.Ledger.Summary(ctx, s.app.CurrentUser(ctx).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) exportLedger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := s.app.CurrentUser(ctx)
	data, err := export.Collect(ctx, s.app.Ledger, s.app.Catalog, user.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, data); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(user.ID, time.Now())))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) currentSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := s.app.Sessions.Current(ctx)
	if errors.Is(err, session.ErrNotSignedIn) {
		writeJSON(w, http.StatusOK, map[string]any{"signedIn": false})
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	view, err := s.app.Sessions.ActiveView(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"signedIn": true, "user": user, "view": view})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	role, err := session.ParseRole(req.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, err := s.app.Sessions.Login(r.Context(), role)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"signedIn": true, "user": user})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if user, err := s.app.Sessions.Current(r.Context()); err == nil {
		s.releaseSession(user.ID)
	}
	if err := s.app.Sessions.Logout(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"signedIn": false})
}

func (s *Server) setView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := session.ParseView(req.View)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.app.Sessions.SetActiveView(r.Context(), view); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"view": view})
}

func (s *Server) advice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := s.app.CurrentUser(ctx)
	sum, err := s.app.Ledger.Summary(ctx, user.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	prompt := fmt.Sprintf("User %s has %s in total food savings across %d plans.",
		user.Name, cli.FormatAmount(sum.TotalSaved), sum.Active)
	writeJSON(w, http.StatusOK, map[string]string{"advice": s.app.Advisory.FinancialAdvice(ctx, prompt)})
}

func (s *Server) briefing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := s.app.RequireAdmin(ctx); err != nil {
		s.fail(w, r, err)
		return
	}
	plans, err := s.app.Catalog.List(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"briefing": s.app.Advisory.PlanBriefing(ctx, plans)})
}
