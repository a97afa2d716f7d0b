/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eoepca/check-manager/internal/backends"
	"github.com/eoepca/check-manager/internal/checks"
	"github.com/eoepca/check-manager/internal/cron"
	"github.com/eoepca/check-manager/internal/hooks"
	"github.com/eoepca/check-manager/internal/jsonapi"
)

// Resource type names on the wire
const (
	typeCheck         = "check"
	typeCheckTemplate = "check_template"
)

// Handlers contains all API handlers
type Handlers struct {
	backend backends.CheckBackend
	hooks   *hooks.Registry
	baseURL string
}

// NewHandlers creates a new Handlers instance
func NewHandlers(backend backends.CheckBackend, hookRegistry *hooks.Registry, baseURL string) *Handlers {
	return &Handlers{
		backend: backend,
		hooks:   hookRegistry,
		baseURL: baseURL,
	}
}

// writeDocument writes a JSON:API document
func writeDocument(w http.ResponseWriter, status int, doc any) {
	w.Header().Set("Content-Type", jsonapi.MediaType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(doc)
}

// writeAPIError translates any error into the JSON:API error document
func writeAPIError(w http.ResponseWriter, err error) {
	status, objects := jsonapi.StatusAndErrors(err)
	writeDocument(w, status, jsonapi.ErrorResponse{Errors: objects})
}

// decodeError maps a body decoding failure to a user input error, pointing
// at the offending field when the decoder identifies one.
func decodeError(err error) error {
	inputErr := jsonapi.NewUserInputError("Invalid request body", err.Error())
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		inputErr.Object.Source = &jsonapi.ErrorSource{
			Pointer: "/" + strings.ReplaceAll(typeErr.Field, ".", "/"),
		}
	}
	return inputErr
}

// authenticate resolves the tenant identity for a request. With no auth
// hooks registered every request is anonymous.
func (h *Handlers) authenticate(r *http.Request) (*checks.UserInfo, error) {
	credentials, err := h.hooks.Security(r)
	if err != nil {
		return nil, err
	}
	return h.hooks.Auth(r.Context(), credentials)
}

func (h *Handlers) link(path string) jsonapi.Link {
	return jsonapi.Link{Href: h.baseURL + path}
}

func (h *Handlers) templateResource(template checks.CheckTemplate) jsonapi.Resource[checks.CheckTemplateAttributes] {
	return jsonapi.Resource[checks.CheckTemplateAttributes]{
		ID:         string(template.ID),
		Type:       typeCheckTemplate,
		Attributes: template.Attributes,
		Links: jsonapi.Links{
			"self": h.link("/v1/check_templates/" + string(template.ID)),
			"root": h.link("/v1/"),
		},
	}
}

func (h *Handlers) checkResource(check checks.OutCheck) jsonapi.Resource[checks.OutCheckAttributes] {
	resource := jsonapi.Resource[checks.OutCheckAttributes]{
		ID:         string(check.ID),
		Type:       typeCheck,
		Attributes: check.Attributes,
		Links: jsonapi.Links{
			"self": h.link("/v1/checks/" + string(check.ID)),
			"root": h.link("/v1/"),
		},
	}
	if templateID := check.Attributes.Metadata.TemplateID; templateID != "" {
		resource.Links["check_template"] = h.link("/v1/check_templates/" + string(templateID))
	}
	if next, ok := cron.NextRun(check.Attributes.Schedule, time.Now()); ok {
		resource.Meta = map[string]any{"next_run": next.Format(time.RFC3339)}
	}
	return resource
}

// GetRoot handles GET /v1/ with a hypermedia index
func (h *Handlers) GetRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "GET")
	writeDocument(w, http.StatusOK, map[string]any{
		"links": jsonapi.Links{
			"self":                  h.link("/v1/"),
			"describedby":           jsonapi.Link{Href: h.baseURL + "/openapi.json", Title: "OpenAPI schema"},
			"documentation_website": h.link("/docs"),
			"get_check_templates":   h.link("/v1/check_templates/"),
			"get_checks":            h.link("/v1/checks/"),
		},
	})
}

// ListCheckTemplates handles GET /v1/check_templates/
func (h *Handlers) ListCheckTemplates(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "GET")
	ctx := r.Context()

	user, err := h.authenticate(r)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	var ids []checks.CheckTemplateID
	for _, id := range r.URL.Query()["ids"] {
		ids = append(ids, checks.CheckTemplateID(id))
	}

	templates, err := h.backend.GetCheckTemplates(ctx, user, ids)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	resources := make([]jsonapi.Resource[checks.CheckTemplateAttributes], 0, len(templates))
	for _, template := range templates {
		allowed, err := h.hooks.AllowTemplate(ctx, user, template)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		if allowed {
			resources = append(resources, h.templateResource(template))
		}
	}

	writeDocument(w, http.StatusOK, jsonapi.OKResponseList[checks.CheckTemplateAttributes]{
		Data:  resources,
		Links: jsonapi.Links{"self": h.link("/v1/check_templates/")},
	})
}

// GetCheckTemplate handles GET /v1/check_templates/{checkTemplateID}
func (h *Handlers) GetCheckTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "GET")
	ctx := r.Context()
	id := checks.CheckTemplateID(chi.URLParam(r, "checkTemplateID"))

	user, err := h.authenticate(r)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	templates, err := h.backend.GetCheckTemplates(ctx, user, []checks.CheckTemplateID{id})
	if err != nil {
		writeAPIError(w, err)
		return
	}
	if len(templates) == 0 {
		writeAPIError(w, checks.NewCheckTemplateIdError(id))
		return
	}
	if err := h.hooks.TemplateAccess(ctx, user, templates[0]); err != nil {
		writeAPIError(w, err)
		return
	}

	writeDocument(w, http.StatusOK, jsonapi.OKResponse[checks.CheckTemplateAttributes]{
		Data: h.templateResource(templates[0]),
	})
}

// CreateCheck handles POST /v1/checks/
func (h *Handlers) CreateCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "GET,POST")
	ctx := r.Context()

	user, err := h.authenticate(r)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	var body struct {
		Data jsonapi.Resource[checks.InCheckAttributes] `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeAPIError(w, decodeError(err))
		return
	}
	if body.Data.ID != "" {
		writeAPIError(w, checks.NewNewCheckClientSpecifiedId())
		return
	}
	if body.Data.Type != typeCheck {
		writeAPIError(w, jsonapi.NewUserInputError("Invalid resource type",
			`The data type of a new check must be "check"`))
		return
	}
	attributes := body.Data.Attributes

	// The template drives access decisions, so resolve it before any hook.
	templates, err := h.backend.GetCheckTemplates(ctx, user,
		[]checks.CheckTemplateID{attributes.Metadata.TemplateID})
	if err != nil {
		writeAPIError(w, err)
		return
	}
	if len(templates) == 0 {
		writeAPIError(w, checks.NewCheckTemplateIdError(attributes.Metadata.TemplateID))
		return
	}
	if err := h.hooks.TemplateAccess(ctx, user, templates[0]); err != nil {
		writeAPIError(w, err)
		return
	}
	if err := h.hooks.CheckCreate(ctx, user, &attributes); err != nil {
		writeAPIError(w, err)
		return
	}

	created, err := h.backend.CreateCheck(ctx, user, attributes)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	if err := h.hooks.CheckAccess(ctx, user, created); err != nil {
		writeAPIError(w, err)
		return
	}

	w.Header().Set("Location", h.baseURL+"/v1/checks/"+string(created.ID))
	writeDocument(w, http.StatusCreated, jsonapi.OKResponse[checks.OutCheckAttributes]{
		Data: h.checkResource(created),
	})
}

// ListChecks handles GET /v1/checks/
func (h *Handlers) ListChecks(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "GET,POST")
	ctx := r.Context()

	user, err := h.authenticate(r)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	var ids []checks.CheckID
	for _, id := range r.URL.Query()["ids"] {
		ids = append(ids, checks.CheckID(id))
	}

	items, err := h.backend.GetChecks(ctx, user, ids)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	resources := make([]jsonapi.Resource[checks.OutCheckAttributes], 0, len(items))
	for _, check := range items {
		allowed, err := h.hooks.AllowCheck(ctx, user, check)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		if allowed {
			resources = append(resources, h.checkResource(check))
		}
	}

	writeDocument(w, http.StatusOK, jsonapi.OKResponseList[checks.OutCheckAttributes]{
		Data:  resources,
		Links: jsonapi.Links{"self": h.link("/v1/checks/")},
	})
}

// fetchCheck reads one check and enforces its access hooks
func (h *Handlers) fetchCheck(r *http.Request, user *checks.UserInfo, id checks.CheckID) (checks.OutCheck, error) {
	items, err := h.backend.GetChecks(r.Context(), user, []checks.CheckID{id})
	if err != nil {
		return checks.OutCheck{}, err
	}
	if len(items) == 0 {
		return checks.OutCheck{}, checks.NewCheckIdError(id)
	}
	if err := h.hooks.CheckAccess(r.Context(), user, items[0]); err != nil {
		return checks.OutCheck{}, err
	}
	return items[0], nil
}

// GetCheck handles GET /v1/checks/{checkID}
func (h *Handlers) GetCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "GET,DELETE")
	id := checks.CheckID(chi.URLParam(r, "checkID"))

	user, err := h.authenticate(r)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	check, err := h.fetchCheck(r, user, id)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	writeDocument(w, http.StatusOK, jsonapi.OKResponse[checks.OutCheckAttributes]{
		Data: h.checkResource(check),
	})
}

// RemoveCheck handles DELETE /v1/checks/{checkID}
func (h *Handlers) RemoveCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "GET,DELETE")
	ctx := r.Context()
	id := checks.CheckID(chi.URLParam(r, "checkID"))

	user, err := h.authenticate(r)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	if _, err := h.fetchCheck(r, user, id); err != nil {
		writeAPIError(w, err)
		return
	}
	if err := h.hooks.CheckRemove(ctx, user, id); err != nil {
		writeAPIError(w, err)
		return
	}
	if err := h.backend.RemoveCheck(ctx, user, id); err != nil {
		writeAPIError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RunCheck handles POST /v1/checks/{checkID}/run/
func (h *Handlers) RunCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "POST")
	ctx := r.Context()
	id := checks.CheckID(chi.URLParam(r, "checkID"))

	user, err := h.authenticate(r)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	if _, err := h.fetchCheck(r, user, id); err != nil {
		writeAPIError(w, err)
		return
	}
	if err := h.hooks.CheckRun(ctx, user, id); err != nil {
		writeAPIError(w, err)
		return
	}
	if err := h.backend.RunCheck(ctx, user, id); err != nil {
		writeAPIError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
