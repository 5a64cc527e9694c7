package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/onclick-pay/onclick-web/internal/domain"
	"github.com/onclick-pay/onclick-web/internal/payments"
	"github.com/onclick-pay/onclick-web/internal/pinning"
	"github.com/onclick-pay/onclick-web/internal/platform/httpx"
	"github.com/onclick-pay/onclick-web/internal/platform/requestctx"
	"github.com/onclick-pay/onclick-web/internal/registry"
	"github.com/onclick-pay/onclick-web/internal/render"
	"github.com/onclick-pay/onclick-web/internal/share"
	"github.com/onclick-pay/onclick-web/internal/wizard"
)

const multipartOverhead = 1 << 20

type handleCheckRequest struct {
	Handle string `json:"handle"`
}

type handleStateResponse struct {
	Generation uint64          `json:"generation"`
	Result     registry.Result `json:"result"`
	Error      string          `json:"error,omitempty"`
}

type pageResponse struct {
	Handle      string           `json:"handle"`
	Draft       domain.PageDraft `json:"draft"`
	PublishedAt *time.Time       `json:"publishedAt,omitempty"`
	MetadataURL string           `json:"metadataUrl,omitempty"`
}

type pinResponse struct {
	URI        string `json:"uri"`
	GatewayURL string `json:"gatewayUrl"`
	CID        string `json:"cid,omitempty"`
}

type paymentOptionsResponse struct {
	Methods      []payments.Method   `json:"methods"`
	Currencies   []payments.Currency `json:"currencies"`
	QuickAmounts []int               `json:"quickAmounts"`
}

// CheckHandle runs a debounced availability check for the session. A request replaced by a
// newer one answers 204.
func (a *App) CheckHandle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := currentSession(r)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("session_unavailable", "session could not be loaded", http.StatusInternalServerError))
		return
	}

	var req handleCheckRequest
	if isJSON(r) {
		body, err := httpx.ReadLimitedBody(r, httpx.DefaultBodyLimit)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.BodyError(err))
			return
		}
		if err := json.Unmarshal(body, &req); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "body must be a JSON object with a handle", http.StatusBadRequest))
			return
		}
	} else {
		req.Handle = r.FormValue("handle")
	}

	res, err := a.Debouncers.For(sess.ID()).Check(ctx, req.Handle)
	switch {
	case errors.Is(err, registry.ErrSuperseded):
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		requestctx.Logger(ctx).Warn("handle check failed", zap.String("handle", domain.SanitizeHandle(req.Handle)), zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("registry_unavailable", "handle availability could not be checked", http.StatusServiceUnavailable))
		return
	}

	if requestctx.IsHTMX(ctx) {
		a.Renderer.Partial(w, r, http.StatusOK, "handle_status", handleStatus(res))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

// HandleState reports the latest debounced outcome for the session.
func (a *App) HandleState(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(r)
	if !ok {
		httpx.WriteError(r.Context(), w, httpx.NewError("session_unavailable", "session could not be loaded", http.StatusInternalServerError))
		return
	}
	state := a.Debouncers.For(sess.ID()).Latest()
	resp := handleStateResponse{Generation: state.Generation, Result: state.Result}
	if state.Err != nil {
		resp.Error = state.Err.Error()
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// CurrentDraft returns the session's scratch draft.
func (a *App) CurrentDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := currentSession(r)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("session_unavailable", "session could not be loaded", http.StatusInternalServerError))
		return
	}
	draft, found := a.Store.Scratch(ctx, sess.ID())
	if !found {
		httpx.WriteError(ctx, w, httpx.NewError("draft_not_found", "no draft for this session", http.StatusNotFound))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, draft)
}

// PatchDraft merge-patches the session's draft through the wizard so the same persistence
// rules apply as for the HTML form.
func (a *App) PatchDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
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
	var patch domain.Patch
	if err := json.Unmarshal(body, &patch); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "body must be a JSON draft patch", http.StatusBadRequest))
		return
	}
	if patch.Goal != nil && *patch.Goal < 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_draft", "draft is invalid", http.StatusUnprocessableEntity).
			WithDetails(map[string]any{"goal": "goal must not be negative"}))
		return
	}

	ctrl, err := wizard.Open(ctx, a.Store, sess.ID(), wizard.RouteParams{}, a.wizardOptions(r)...)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("draft_unavailable", "draft could not be opened", http.StatusInternalServerError))
		return
	}
	err = ctrl.Update(ctx, patch)
	switch {
	case errors.Is(err, wizard.ErrHandleImmutable):
		httpx.WriteError(ctx, w, httpx.NewError("handle_immutable", "the handle of a published page cannot change", http.StatusConflict))
		return
	case err != nil:
		requestctx.Logger(ctx).Error("draft patch failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("draft_unavailable", "draft could not be saved", http.StatusServiceUnavailable))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ctrl.Draft())
}

// PageRecord returns a published page. Drafts that were never published are not exposed.
func (a *App) PageRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	handle, ok := pageHandle(r)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("page_not_found", "page not found", http.StatusNotFound))
		return
	}
	rec, found, err := a.Store.Lookup(ctx, handle)
	if err != nil {
		requestctx.Logger(ctx).Error("page lookup failed", zap.String("handle", handle), zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("store_unavailable", "page could not be loaded", http.StatusServiceUnavailable))
		return
	}
	if !found || !rec.Published() {
		httpx.WriteError(ctx, w, httpx.NewError("page_not_found", "page not found", http.StatusNotFound))
		return
	}
	resp := pageResponse{Handle: handle, Draft: rec.Draft, PublishedAt: rec.PublishedAt}
	if rec.Draft.MetadataURI != "" {
		resp.MetadataURL = pinning.GatewayURL(rec.Draft.MetadataURI, a.Gateway)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// PinMetadata pins the page's metadata document and records its URI. Only the owning session
// may pin.
func (a *App) PinMetadata(w http.ResponseWriter, r *http.Request) {
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
	rec, found, err := a.Store.Lookup(ctx, handle)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("store_unavailable", "page could not be loaded", http.StatusServiceUnavailable))
		return
	}
	if !found || !rec.Published() {
		httpx.WriteError(ctx, w, httpx.NewError("page_not_found", "page not found", http.StatusNotFound))
		return
	}
	if rec.Owner != sess.ID() {
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "only the page owner can pin its metadata", http.StatusForbidden))
		return
	}

	uri, err := pinning.PinPage(ctx, a.Pinner, rec.Draft)
	if err != nil {
		requestctx.Logger(ctx).Error("metadata pin failed", zap.String("handle", handle), zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("pin_failed", "metadata could not be pinned", http.StatusBadGateway))
		return
	}
	draft := rec.Draft
	draft.MetadataURI = uri
	draft.UpdatedAt = a.Now().UTC()
	if err := a.Store.Save(ctx, sess.ID(), handle, draft); err != nil {
		requestctx.Logger(ctx).Error("metadata uri not saved", zap.String("handle", handle), zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("store_unavailable", "metadata uri could not be saved", http.StatusServiceUnavailable))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, pinResponse{URI: uri, GatewayURL: pinning.GatewayURL(uri, a.Gateway), CID: pinning.CID(uri)})
}

// ShareLinks returns the share outputs of a published page.
func (a *App) ShareLinks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	handle, ok := pageHandle(r)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("page_not_found", "page not found", http.StatusNotFound))
		return
	}
	rec, found, err := a.Store.Lookup(ctx, handle)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("store_unavailable", "page could not be loaded", http.StatusServiceUnavailable))
		return
	}
	if !found || !rec.Published() {
		httpx.WriteError(ctx, w, httpx.NewError("page_not_found", "page not found", http.StatusNotFound))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, share.For(a.BaseURL, rec.Draft))
}

// UploadAsset pins a multipart "file" upload.
func (a *App) UploadAsset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, a.UploadLimit+multipartOverhead)
	if err := r.ParseMultipartForm(a.UploadLimit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeSizeError(ctx, w, &pinning.SizeError{Size: maxErr.Limit, Limit: a.UploadLimit})
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "body must be multipart/form-data with a file field", http.StatusBadRequest))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "file field is required", http.StatusBadRequest))
		return
	}
	defer file.Close()

	var sizeErr *pinning.SizeError
	if err := pinning.CheckSize(header.Size, a.UploadLimit); errors.As(err, &sizeErr) {
		writeSizeError(ctx, w, sizeErr)
		return
	}

	limited := pinning.Limited{Pinner: a.Pinner, Max: a.UploadLimit}
	uri, err := limited.PinFile(ctx, header.Filename, file)
	switch {
	case errors.As(err, &sizeErr):
		writeSizeError(ctx, w, sizeErr)
		return
	case errors.Is(err, pinning.ErrEmptyContent):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "file is empty", http.StatusBadRequest))
		return
	case err != nil:
		requestctx.Logger(ctx).Error("asset pin failed", zap.String("file", header.Filename), zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("pin_failed", "file could not be pinned", http.StatusBadGateway))
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, pinResponse{URI: uri, GatewayURL: pinning.GatewayURL(uri, a.Gateway), CID: pinning.CID(uri)})
}

func writeSizeError(ctx context.Context, w http.ResponseWriter, err *pinning.SizeError) {
	httpx.WriteError(ctx, w, httpx.NewError("file_too_large", strings.TrimPrefix(err.Error(), "pinning: "), http.StatusRequestEntityTooLarge).
		WithDetails(map[string]any{"limitBytes": err.Limit}))
}

// Pay runs the payment simulator. htmx callers receive the receipt fragment.
func (a *App) Pay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := paymentRequest(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	receipt, err := a.Payments.Pay(ctx, req)
	switch {
	case errors.Is(err, payments.ErrInvalidAmount), errors.Is(err, payments.ErrUnknownCurrency), errors.Is(err, payments.ErrUnknownMethod):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_payment", strings.TrimPrefix(err.Error(), "payments: "), http.StatusBadRequest))
		return
	case err != nil:
		requestctx.Logger(ctx).Error("simulated payment failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("payment_failed", "payment could not be processed", http.StatusBadGateway))
		return
	}

	if requestctx.IsHTMX(ctx) {
		a.Renderer.Partial(w, r, http.StatusOK, "receipt", render.ReceiptView{
			TxID:     receipt.TxID,
			Amount:   render.Money(receipt.Amount),
			Currency: receipt.Currency,
			Provider: receipt.Provider,
		})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, receipt)
}

func paymentRequest(r *http.Request) (payments.Request, error) {
	var req payments.Request
	if isJSON(r) {
		body, err := httpx.ReadLimitedBody(r, httpx.DefaultBodyLimit)
		if err != nil {
			return req, err
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return req, errors.New("body must be a JSON payment request")
		}
		return req, nil
	}
	if err := r.ParseForm(); err != nil {
		return req, errors.New("form could not be read")
	}
	amount := strings.TrimSpace(r.PostForm.Get("amount"))
	if amount != "" {
		v, err := strconv.ParseFloat(amount, 64)
		if err != nil {
			return req, fmt.Errorf("amount %q is not a number", amount)
		}
		req.Amount = v
	}
	req.Handle = r.PostForm.Get("handle")
	req.Role = r.PostForm.Get("role")
	req.Currency = r.PostForm.Get("currency")
	req.Method = r.PostForm.Get("method")
	req.Message = r.PostForm.Get("message")
	req.SupporterName = r.PostForm.Get("supporterName")
	req.Public = r.PostForm.Get("isPublic") == "true" || r.PostForm.Get("isPublic") == "on"
	return req, nil
}

func (a *App) PaymentOptions(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, paymentOptionsResponse{
		Methods:      payments.Methods(),
		Currencies:   payments.Currencies(),
		QuickAmounts: payments.QuickAmounts,
	})
}

func isJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}
