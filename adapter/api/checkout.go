package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/foodthrift/paysmallsmall/internal/savings/application/settlement"
	"github.com/foodthrift/paysmallsmall/internal/savings/domain"
)

type openCheckoutRequest struct {
	SubscriptionID string `json:"subscriptionId"`
}

type providerRequest struct {
	Provider string `json:"provider"`
}

func (s *Server) monitorSnapshot(w http.ResponseWriter, r *http.Request) {
	us, err := s.userSession(s.app.CurrentUser(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, us.Monitor.Snapshot())
}

func (s *Server) currentCheckout(w http.ResponseWriter, r *http.Request) {
	us, err := s.userSession(s.app.CurrentUser(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	checkout, ok := us.Settlement.Current()
	if !ok {
		s.fail(w, r, settlement.ErrNoCheckout)
		return
	}
	writeJSON(w, http.StatusOK, checkout)
}

// openCheckout opens the modal for the given subscription, or for the
// urgent one when none is named, the same path the banner's Pay button takes.
func (s *Server) openCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req openCheckoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user := s.app.CurrentUser(ctx)
	us, err := s.userSession(user)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if req.SubscriptionID != "" {
		sub, err := s.app.Ledger.Subscription(ctx, user.ID, req.SubscriptionID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		checkout, err := us.Settlement.Open(ctx, sub)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, checkout)
		return
	}

	us.Monitor.Scan(ctx)
	if _, delivered, err := us.Monitor.RequestPayment(ctx); err != nil {
		s.fail(w, r, err)
		return
	} else if !delivered {
		s.fail(w, r, errors.New("checkout did not open"))
		return
	}
	checkout, ok := us.Settlement.Current()
	if !ok {
		s.fail(w, r, settlement.ErrNoCheckout)
		return
	}
	if checkout.Step != settlement.StepMethodSelect {
		s.fail(w, r, settlement.ErrSettlementInProgress)
		return
	}
	writeJSON(w, http.StatusCreated, checkout)
}

func (s *Server) selectProvider(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req providerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	provider, err := domain.ParseProvider(req.Provider)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	us, err := s.userSession(s.app.CurrentUser(ctx))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	checkout, err := us.Settlement.SelectProvider(ctx, provider)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		checkout, err = us.Settlement.Wait(ctx)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, checkout)
		return
	}
	writeJSON(w, http.StatusAccepted, checkout)
}

func (s *Server) cancelCheckout(w http.ResponseWriter, r *http.Request) {
	us, err := s.userSession(s.app.CurrentUser(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := us.Settlement.Cancel(); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) dismissCheckout(w http.ResponseWriter, r *http.Request) {
	us, err := s.userSession(s.app.CurrentUser(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := us.Settlement.Dismiss(); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
