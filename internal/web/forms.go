package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"kycportal/internal/domain"
	"kycportal/internal/form"
	"kycportal/internal/kyc"
	"kycportal/internal/policy"
	"kycportal/internal/profile"
	"kycportal/internal/selection"
	"kycportal/internal/workspace"
	id "kycportal/pkg/domain"
	dErrors "kycportal/pkg/domain-errors"
	"kycportal/pkg/platform/httputil"
)

// editable is the form surface shared by the profile and KYC pages.
type editable interface {
	BeginEdit()
	Cancel()
	SetReadOnly(readOnly bool)
	SetField(path string, value any) error
	AppendRow(group string, values map[string]any) (string, error)
	RemoveRow(group string, index int) error
	Validate() form.Result
	View() form.View
}

// formPage binds the generic form routes to one kind of form.
type formPage struct {
	cached   func(ws *workspace.Workspace, target id.UserID) editable
	load     func(ctx context.Context, ws *workspace.Workspace, identity domain.Identity, target selection.Target) (editable, error)
	put      func(ws *workspace.Workspace, gen uint64, f editable)
	readOnly func(identity *domain.Identity, target id.UserID) bool
	submit   func(ctx context.Context, ws *workspace.Workspace, f editable) (any, error)
}

func (h *Handler) profilePage() formPage {
	return formPage{
		cached: func(ws *workspace.Workspace, target id.UserID) editable {
			if f := ws.ProfileForm(target); f != nil {
				return f
			}
			return nil
		},
		load: func(ctx context.Context, ws *workspace.Workspace, identity domain.Identity, target selection.Target) (editable, error) {
			f, err := h.profileService(ws).Load(ctx, identity, target)
			if err != nil {
				return nil, err
			}
			return f, nil
		},
		put: func(ws *workspace.Workspace, gen uint64, f editable) {
			ws.PutProfileForm(gen, f.(*profile.Form))
		},
		readOnly: func(identity *domain.Identity, target id.UserID) bool {
			return !policy.CanEditTarget(identity, target)
		},
		submit: func(ctx context.Context, ws *workspace.Workspace, f editable) (any, error) {
			return h.profileService(ws).Submit(ctx, f.(*profile.Form), ws.Session)
		},
	}
}

func (h *Handler) kycPage() formPage {
	return formPage{
		cached: func(ws *workspace.Workspace, target id.UserID) editable {
			if f := ws.KYCForm(target); f != nil {
				return f
			}
			return nil
		},
		load: func(ctx context.Context, ws *workspace.Workspace, identity domain.Identity, target selection.Target) (editable, error) {
			f, err := h.kycService(ws).Load(ctx, identity, target)
			if err != nil {
				return nil, err
			}
			return f, nil
		},
		put: func(ws *workspace.Workspace, gen uint64, f editable) {
			ws.PutKYCForm(gen, f.(*kyc.Form))
		},
		readOnly: kyc.ReadOnlyFor,
		submit: func(ctx context.Context, ws *workspace.Workspace, f editable) (any, error) {
			return h.kycService(ws).Submit(ctx, f.(*kyc.Form), ws.Session.Current())
		},
	}
}

type formResponse struct {
	Target id.UserID        `json:"target"`
	Source selection.Source `json:"source"`
	Client *domain.Client   `json:"client,omitempty"`
	Form   form.View        `json:"form"`
	Saved  any              `json:"saved,omitempty"`
}

type fieldUpdate struct {
	Path  string `json:"path"`
	Value any    `json:"value"`
}

type rowRequest struct {
	Values map[string]any `json:"values"`
}

// formRoutes mounts the view, edit and submit routes of page on r.
func (h *Handler) formRoutes(r chi.Router, page formPage) {
	r.Get("/", h.withForm(page, func(w http.ResponseWriter, _ *http.Request, res *formResponse, _ editable) {
		httputil.WriteJSON(w, http.StatusOK, res)
	}))

	r.Post("/edit", h.withForm(page, func(w http.ResponseWriter, _ *http.Request, res *formResponse, f editable) {
		f.BeginEdit()
		res.Form = f.View()
		httputil.WriteJSON(w, http.StatusOK, res)
	}))

	r.Post("/cancel", h.withForm(page, func(w http.ResponseWriter, _ *http.Request, res *formResponse, f editable) {
		f.Cancel()
		res.Form = f.View()
		httputil.WriteJSON(w, http.StatusOK, res)
	}))

	r.Patch("/fields", h.withForm(page, func(w http.ResponseWriter, r *http.Request, res *formResponse, f editable) {
		var req fieldUpdate
		if err := decodeNumbers(r, &req); err != nil {
			httputil.WriteError(w, err)
			return
		}
		if req.Path == "" {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "path is required"))
			return
		}
		if err := f.SetField(req.Path, req.Value); err != nil {
			httputil.WriteError(w, err)
			return
		}
		res.Form = f.View()
		res.Form.Errors = f.Validate().Errors
		httputil.WriteJSON(w, http.StatusOK, res)
	}))

	r.Post("/groups/{group}/rows", h.withForm(page, func(w http.ResponseWriter, r *http.Request, res *formResponse, f editable) {
		var req rowRequest
		if r.ContentLength != 0 {
			if err := decodeNumbers(r, &req); err != nil {
				httputil.WriteError(w, err)
				return
			}
		}
		rowID, err := f.AppendRow(chi.URLParam(r, "group"), req.Values)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		res.Form = f.View()
		httputil.WriteJSON(w, http.StatusCreated, map[string]any{"id": rowID, "page": res})
	}))

	r.Delete("/groups/{group}/rows/{index}", h.withForm(page, func(w http.ResponseWriter, r *http.Request, res *formResponse, f editable) {
		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil || index < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "row index must be a non-negative integer"))
			return
		}
		if err := f.RemoveRow(chi.URLParam(r, "group"), index); err != nil {
			httputil.WriteError(w, err)
			return
		}
		res.Form = f.View()
		httputil.WriteJSON(w, http.StatusOK, res)
	}))

	r.Post("/validate", h.withForm(page, func(w http.ResponseWriter, _ *http.Request, res *formResponse, f editable) {
		result := f.Validate()
		res.Form = f.View()
		res.Form.Errors = result.Errors
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"valid": result.Valid, "page": res})
	}))

	r.Post("/submit", h.withForm(page, func(w http.ResponseWriter, r *http.Request, res *formResponse, f editable) {
		saved, err := page.submit(r.Context(), workspaceFrom(r.Context()), f)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		res.Form = f.View()
		res.Saved = saved
		httputil.WriteJSON(w, http.StatusOK, res)
	}))
}

type formHandler func(w http.ResponseWriter, r *http.Request, res *formResponse, f editable)

// withForm resolves the target record, loads (or reuses) its form and
// recomputes the read-only gate before handing over to fn.
func (h *Handler) withForm(page formPage, fn formHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ws := workspaceFrom(ctx)
		identity, ok := signedIn(w, ws)
		if !ok {
			return
		}

		var routeID id.UserID
		if raw := chi.URLParam(r, "userID"); raw != "" {
			parsed, err := id.ParseUserID(raw)
			if err != nil {
				httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid user id"))
				return
			}
			routeID = parsed
		}
		target := ws.Selection.ResolveTarget(ctx, *identity, routeID)
		if !policy.CanViewTarget(identity, target.UserID) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "record is not visible to this user"))
			return
		}

		f := page.cached(ws, target.UserID)
		if f == nil {
			gen := ws.Generation()
			loaded, err := page.load(ctx, ws, *identity, target)
			if err != nil {
				h.fail(w, r, err)
				return
			}
			page.put(ws, gen, loaded)
			f = loaded
		}
		f.SetReadOnly(page.readOnly(identity, target.UserID))

		fn(w, r, &formResponse{
			Target: target.UserID,
			Source: target.Source,
			Client: target.Client,
			Form:   f.View(),
		}, f)
	}
}

func decodeNumbers(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}
