package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/onclick-pay/onclick-web/internal/domain"
	"github.com/onclick-pay/onclick-web/internal/drafts"
	"github.com/onclick-pay/onclick-web/internal/platform/requestctx"
	"github.com/onclick-pay/onclick-web/internal/registry"
	"github.com/onclick-pay/onclick-web/internal/render"
	"github.com/onclick-pay/onclick-web/internal/share"
	"github.com/onclick-pay/onclick-web/internal/wizard"
)

// Home sends visitors to the role picker.
func (a *App) Home(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/role-selection", http.StatusFound)
}

func (a *App) RoleSelection(w http.ResponseWriter, r *http.Request) {
	a.Renderer.Page(w, r, http.StatusOK, "role_selection", render.RoleSelectionView{
		Base:  a.base(r, "Choose your role"),
		Roles: render.RoleCards(),
	})
}

func (a *App) HandleSelection(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	a.renderHandleSelection(w, r, http.StatusOK, domain.RoleOrDefault(q.Get("role")), q.Get("name"), domain.SanitizeHandle(q.Get("handle")), nil)
}

// SubmitHandleSelection saves a fresh draft for the chosen name and handle and opens the wizard.
func (a *App) SubmitHandleSelection(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.errorPage(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	sess, ok := currentSession(r)
	if !ok {
		a.errorPage(w, r, http.StatusInternalServerError, "Your session could not be loaded.")
		return
	}
	role := r.PostForm.Get("role")
	name := r.PostForm.Get("name")
	handle := r.PostForm.Get("handle")

	location, err := wizard.Begin(r.Context(), a.Store, sess.ID(), role, name, handle, a.wizardOptions(r)...)
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		a.renderHandleSelection(w, r, http.StatusUnprocessableEntity, domain.RoleOrDefault(role), strings.TrimSpace(name), domain.SanitizeHandle(handle), verr.Fields)
		return
	case err != nil:
		requestctx.Logger(r.Context()).Error("handle selection failed", zap.Error(err))
		a.errorPage(w, r, http.StatusServiceUnavailable, "We could not save your handle. Please try again.")
		return
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func (a *App) renderHandleSelection(w http.ResponseWriter, r *http.Request, status int, role domain.Role, name, handle string, errs map[string]string) {
	a.Renderer.Page(w, r, status, "handle_selection", render.HandleSelectionView{
		Base:   a.base(r, "Claim your handle"),
		Role:   role,
		Name:   name,
		Handle: handle,
		Status: render.HandleStatus{Handle: handle},
		Errors: errs,
	})
}

// handleStatus renders a registry result as the availability widget.
func handleStatus(res registry.Result) render.HandleStatus {
	status := render.HandleStatus{Handle: res.Handle, Status: string(res.Status)}
	switch res.Status {
	case registry.StatusChecking:
		status.Message = "Checking availability..."
	case registry.StatusAvailable:
		status.Message = "onclick/" + res.Handle + " is available"
	case registry.StatusUnavailable:
		switch res.Reason {
		case registry.ReasonReserved:
			status.Message = "This handle is reserved"
		default:
			status.Message = "This handle is already taken"
		}
	default:
		if res.Reason == registry.ReasonTooShort && res.Handle != "" {
			status.Message = "Handles need at least 3 characters"
		}
	}
	return status
}

// PublicPage renders /{handle}. An unknown but well-formed handle falls back to the session's
// scratch draft or the role placeholders.
func (a *App) PublicPage(w http.ResponseWriter, r *http.Request) {
	handle, ok := pageHandle(r)
	if !ok {
		a.notFound(w, r)
		return
	}
	sess, _ := currentSession(r)
	sessionID := ""
	if sess != nil {
		sessionID = sess.ID()
	}
	draft, source := a.Store.Load(r.Context(), sessionID, handle, domain.RoleOrDefault(r.URL.Query().Get("role")))
	if source == drafts.SourceDefaults {
		draft.Handle = handle
	}

	viewer := render.Viewer{}
	if sess != nil {
		viewer = render.Viewer{OwnsHandle: sess.OwnsHandle(handle), GlobalOwner: sess.GlobalOwner()}
	}
	view := render.BuildPage(draft, render.PageOptions{
		BaseURL: a.BaseURL,
		Viewer:  viewer,
		Amount:  r.URL.Query().Get("amount"),
		Now:     a.Now(),
	})
	a.Renderer.Page(w, r, http.StatusOK, "public_page", render.PublicPageView{
		Base:     a.base(r, view.Page.Name),
		PageView: view,
	})
}

// PreviewPage renders the handle-less preview. owner=true only switches preview mode on; owner
// controls still come from the session flags.
func (a *App) PreviewPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sess, _ := currentSession(r)
	sessionID := ""
	if sess != nil {
		sessionID = sess.ID()
	}
	draft, _ := a.Store.Load(r.Context(), sessionID, "", domain.RoleOrDefault(q.Get("role")))
	if role, err := domain.ParseRole(q.Get("role")); err == nil && role != draft.Role {
		draft = draft.WithRole(role)
	}
	if layout := domain.Layout(strings.ToLower(strings.TrimSpace(q.Get("layout")))); domain.HasLayout(draft.Role, layout) {
		draft.Layout = layout
	}

	viewer := render.Viewer{}
	if sess != nil {
		viewer = render.Viewer{OwnsHandle: sess.OwnsHandle(draft.Handle), GlobalOwner: sess.GlobalOwner()}
	}
	view := render.BuildPage(draft, render.PageOptions{
		BaseURL: a.BaseURL,
		Viewer:  viewer,
		Preview: q.Get("owner") == "true",
		Amount:  q.Get("amount"),
		Now:     a.Now(),
	})
	a.Renderer.Page(w, r, http.StatusOK, "public_page", render.PublicPageView{
		Base:     a.base(r, view.Page.Name),
		PageView: view,
	})
}

// QRCode serves the PNG for /{handle}/qr.png.
func (a *App) QRCode(w http.ResponseWriter, r *http.Request) {
	handle, ok := pageHandle(r)
	if !ok {
		a.notFound(w, r)
		return
	}
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	png, err := share.QR(share.PageURL(a.BaseURL, handle, share.Preview{}), size)
	if err != nil {
		requestctx.Logger(r.Context()).Error("qr encode failed", zap.String("handle", handle), zap.Error(err))
		http.Error(w, "qr unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (a *App) CreatorDashboard(w http.ResponseWriter, r *http.Request) {
	data := a.Dashboards.Creator
	a.Renderer.Page(w, r, http.StatusOK, "creator_dashboard", render.CreatorDashboardView{
		Base:     a.base(r, "Creator dashboard"),
		Data:     data,
		Progress: render.Progress(data.Raised, data.Goal),
	})
}

func (a *App) BusinessDashboard(w http.ResponseWriter, r *http.Request) {
	a.Renderer.Page(w, r, http.StatusOK, "business_dashboard", render.BusinessDashboardView{
		Base: a.base(r, "Business dashboard"),
		Data: a.Dashboards.Business,
	})
}

func (a *App) CrowdfunderDashboard(w http.ResponseWriter, r *http.Request) {
	data := a.Dashboards.Crowdfunder
	view := render.CrowdfunderDashboardView{
		Base:     a.base(r, "Crowdfunder dashboard"),
		Data:     data,
		Progress: render.Progress(data.Raised, data.Goal),
	}
	if next, ok := data.NextMilestone(); ok {
		view.NextMilestone = &next
	}
	a.Renderer.Page(w, r, http.StatusOK, "crowdfunder_dashboard", view)
}

// pageHandle reads {handle} and rejects anything that is not a valid, unreserved handle.
func pageHandle(r *http.Request) (string, bool) {
	handle := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "handle")))
	if err := domain.ValidateHandle(handle); err != nil {
		return "", false
	}
	return handle, true
}
