package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/onclick-pay/onclick-web/internal/intents"
	"github.com/onclick-pay/onclick-web/internal/payments"
	"github.com/onclick-pay/onclick-web/internal/platform/httpx"
	"github.com/onclick-pay/onclick-web/internal/platform/requestctx"
)

type intentResponse struct {
	intents.Intent
	Status intents.Status `json:"status"`
	Link   string         `json:"shareableLink"`
}

type intentListResponse struct {
	Intents []intentResponse `json:"intents"`
	Stats   intents.Stats    `json:"stats"`
}

type intentPaymentResponse struct {
	Intent  intentResponse   `json:"intent"`
	Receipt payments.Receipt `json:"receipt"`
}

func (a *App) intentView(i intents.Intent) intentResponse {
	return intentResponse{Intent: i, Status: i.StatusAt(a.Now()), Link: i.Link(a.BaseURL)}
}

// CreateIntent adds a payment link to a page the session published.
func (a *App) CreateIntent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	handle, ok := pageHandle(r)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("page_not_found", "page not found", http.StatusNotFound))
		return
	}
	sess, ok := currentSession(r)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("session_unavailable", "session could not be loaded", http.StatusInternalServerError))
		return
	}
	body, err := httpx.ReadLimitedBody(r, httpx.DefaultBodyLimit)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.BodyError(err))
		return
	}
	var req intents.CreateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "body must be a JSON payment link request", http.StatusBadRequest))
		return
	}

	intent, err := a.Intents.Create(ctx, sess.ID(), handle, req)
	if err != nil {
		writeIntentError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, a.intentView(intent))
}

// ListIntents returns the payment links of a page with their totals. Owner only.
func (a *App) ListIntents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	handle, ok := pageHandle(r)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("page_not_found", "page not found", http.StatusNotFound))
		return
	}
	sess, ok := currentSession(r)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("session_unavailable", "session could not be loaded", http.StatusInternalServerError))
		return
	}
	list, err := a.Intents.ListOwned(ctx, sess.ID(), handle)
	if err != nil {
		writeIntentError(ctx, w, err)
		return
	}
	resp := intentListResponse{Intents: make([]intentResponse, 0, len(list)), Stats: intents.Summarise(list, a.Now())}
	for _, i := range list {
		resp.Intents = append(resp.Intents, a.intentView(i))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// GetIntent is public so payers can inspect a link before paying.
func (a *App) GetIntent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	intent, err := a.Intents.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeIntentError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, a.intentView(intent))
}

func (a *App) CancelIntent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := currentSession(r)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("session_unavailable", "session could not be loaded", http.StatusInternalServerError))
		return
	}
	intent, err := a.Intents.Cancel(ctx, sess.ID(), chi.URLParam(r, "id"))
	if err != nil {
		writeIntentError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, a.intentView(intent))
}

// PayIntent redeems one use of a link, then runs the simulator for the link's amount.
func (a *App) PayIntent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := paymentRequest(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	intent, err := a.Intents.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeIntentError(ctx, w, err)
		return
	}
	if req.Amount == 0 {
		req.Amount = intent.Amount
	}
	req.Handle = intent.Handle
	if _, _, err := payments.Validate(req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_payment", strings.TrimPrefix(err.Error(), "payments: "), http.StatusBadRequest))
		return
	}

	intent, err = a.Intents.Redeem(ctx, intent.ID, req.Amount)
	if err != nil {
		writeIntentError(ctx, w, err)
		return
	}
	receipt, err := a.Payments.Pay(ctx, req)
	if err != nil {
		requestctx.Logger(ctx).Error("payment link settlement failed", zap.String("intent_id", intent.ID), zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("payment_failed", "payment could not be processed", http.StatusBadGateway))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, intentPaymentResponse{Intent: a.intentView(intent), Receipt: receipt})
}

func writeIntentError(ctx context.Context, w http.ResponseWriter, err error) {
	var unusable *intents.UnusableError
	switch {
	case errors.Is(err, intents.ErrNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("intent_not_found", "payment link not found", http.StatusNotFound))
	case errors.Is(err, intents.ErrPageNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("page_not_found", "page not found", http.StatusNotFound))
	case errors.Is(err, intents.ErrNotOwner):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "only the page owner can manage its payment links", http.StatusForbidden))
	case errors.Is(err, intents.ErrInvalidAmount), errors.Is(err, intents.ErrInvalidExpiry),
		errors.Is(err, intents.ErrInvalidUsages), errors.Is(err, intents.ErrAmountMismatch):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_intent", strings.TrimPrefix(err.Error(), "intents: "), http.StatusUnprocessableEntity))
	case errors.As(err, &unusable):
		httpx.WriteError(ctx, w, httpx.NewError("intent_unusable", strings.TrimPrefix(err.Error(), "intents: "), http.StatusConflict).
			WithDetails(map[string]any{"status": string(unusable.Status)}))
	default:
		requestctx.Logger(ctx).Error("payment link store failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("store_unavailable", "payment links are unavailable", http.StatusServiceUnavailable))
	}
}
