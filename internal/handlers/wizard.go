package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/onclick-pay/onclick-web/internal/domain"
	"github.com/onclick-pay/onclick-web/internal/platform/requestctx"
	"github.com/onclick-pay/onclick-web/internal/platform/session"
	"github.com/onclick-pay/onclick-web/internal/registry"
	"github.com/onclick-pay/onclick-web/internal/render"
	"github.com/onclick-pay/onclick-web/internal/wizard"
)

type wizardAction string

const (
	actionUpdate  wizardAction = "update"
	actionNext    wizardAction = "next"
	actionBack    wizardAction = "back"
	actionPublish wizardAction = "publish"
)

// CreatePage renders the wizard at the step named by the query string.
func (a *App) CreatePage(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(r)
	if !ok {
		a.errorPage(w, r, http.StatusInternalServerError, "Your session could not be loaded.")
		return
	}
	ctrl, err := wizard.Open(r.Context(), a.Store, sess.ID(), wizard.ParamsFromQuery(r.URL.Query()), a.wizardOptions(r)...)
	if err != nil {
		requestctx.Logger(r.Context()).Error("wizard open failed", zap.Error(err))
		a.errorPage(w, r, http.StatusInternalServerError, "The page builder is unavailable.")
		return
	}
	a.renderWizard(w, r, http.StatusOK, ctrl, nil)
}

// wizardAction applies the fields the posted step owns, then performs the transition.
func (a *App) wizardAction(action wizardAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := requestctx.Logger(ctx)
		if err := r.ParseForm(); err != nil {
			a.errorPage(w, r, http.StatusBadRequest, "The form could not be read.")
			return
		}
		sess, ok := currentSession(r)
		if !ok {
			a.errorPage(w, r, http.StatusInternalServerError, "Your session could not be loaded.")
			return
		}

		// "page" names the live page being edited; without it the session's scratch draft resumes.
		params := wizard.RouteParams{
			Role:   r.PostForm.Get("role"),
			Step:   wizard.ParseStep(r.PostForm.Get("step")),
			Handle: r.PostForm.Get("page"),
		}
		ctrl, err := wizard.Open(ctx, a.Store, sess.ID(), params, a.wizardOptions(r)...)
		if err != nil {
			logger.Error("wizard open failed", zap.Error(err))
			a.errorPage(w, r, http.StatusInternalServerError, "The page builder is unavailable.")
			return
		}

		patch, fieldErrs := wizard.PatchFromForm(ctrl.Step(), r.PostForm)
		if len(fieldErrs) > 0 {
			a.renderWizard(w, r, http.StatusUnprocessableEntity, ctrl, fieldErrs)
			return
		}
		if !patch.Empty() {
			err := ctrl.Update(ctx, patch)
			switch {
			case errors.Is(err, wizard.ErrHandleImmutable):
				a.renderWizard(w, r, http.StatusConflict, ctrl, map[string]string{"handle": "the handle of a live page cannot change"})
				return
			case err != nil:
				logger.Error("wizard update failed", zap.Error(err))
				a.renderWizard(w, r, http.StatusServiceUnavailable, ctrl, map[string]string{"form": "Your changes could not be saved. Please try again."})
				return
			}
		}

		switch action {
		case actionNext:
			_ = ctrl.Next()
		case actionBack:
			var exit *wizard.Exit
			if err := ctrl.Back(); errors.As(err, &exit) {
				http.Redirect(w, r, exit.Location, http.StatusSeeOther)
				return
			}
		case actionPublish:
			a.publish(w, r, ctrl, sess)
			return
		}
		http.Redirect(w, r, ctrl.URL(), http.StatusSeeOther)
	}
}

func (a *App) publish(w http.ResponseWriter, r *http.Request, ctrl *wizard.Controller, sess *session.Session) {
	ctx := r.Context()
	outcome, err := ctrl.Publish(ctx, sess)

	var (
		verr  *domain.ValidationError
		unavl *wizard.UnavailableError
	)
	switch {
	case errors.As(err, &verr):
		a.renderWizard(w, r, http.StatusUnprocessableEntity, ctrl, verr.Fields)
		return
	case errors.As(err, &unavl):
		msg := "this handle is already taken"
		if unavl.Reason == registry.ReasonReserved {
			msg = "this handle is reserved"
		}
		a.renderWizard(w, r, http.StatusConflict, ctrl, map[string]string{"handle": msg})
		return
	case errors.Is(err, wizard.ErrNotAtPreview):
		ctrl.Goto(wizard.StepPreview)
		a.renderWizard(w, r, http.StatusConflict, ctrl, map[string]string{"form": "Review the preview before publishing."})
		return
	case err != nil:
		requestctx.Logger(ctx).Error("publish failed", zap.Error(err))
		a.renderWizard(w, r, http.StatusServiceUnavailable, ctrl, map[string]string{"form": "Publishing failed. Please try again."})
		return
	}

	if err := session.Commit(ctx); err != nil {
		requestctx.Logger(ctx).Warn("session save failed", zap.Error(err))
	}
	http.Redirect(w, r, outcome.Location, http.StatusSeeOther)
}

func (a *App) renderWizard(w http.ResponseWriter, r *http.Request, status int, ctrl *wizard.Controller, errs map[string]string) {
	draft := ctrl.Draft()
	step := ctrl.Step()

	tabs := make([]render.StepTab, 0, len(wizard.Steps))
	for _, s := range wizard.Steps {
		tabs = append(tabs, render.StepTab{Number: int(s), Title: s.Title(), Active: s == step, Done: s < step})
	}

	view := render.WizardView{
		Base:            a.base(r, "Create your page"),
		Step:            int(step),
		Steps:           tabs,
		Draft:           draft,
		Goal:            wizard.FormGoal(draft),
		Layouts:         domain.Layouts(draft.Role),
		Themes:          domain.Themes(draft.Role),
		Errors:          errs,
		PublishedHandle: ctrl.PublishedHandle(),
		IsFirst:         step == wizard.StepBasicInfo,
		IsLast:          step == wizard.StepPreview,
	}
	if step == wizard.StepPreview {
		preview := render.BuildPage(draft, render.PageOptions{BaseURL: a.BaseURL, Preview: true, Now: a.Now()})
		view.Preview = &preview
	}
	a.Renderer.Page(w, r, status, "create_page", view)
}
