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
	"net/http"
)

// openAPIDocument is the schema advertised by the root document's
// describedby link.
func (h *Handlers) openAPIDocument() map[string]any {
	operation := func(summary string, responses map[string]any) map[string]any {
		return map[string]any{"summary": summary, "responses": responses}
	}
	jsonAPIResponse := func(description string) map[string]any {
		return map[string]any{
			"description": description,
			"content":     map[string]any{"application/vnd.api+json": map[string]any{}},
		}
	}

	return map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   "Check Manager",
			"version": Version,
		},
		"servers": []map[string]any{{"url": h.baseURL}},
		"paths": map[string]any{
			"/v1/": map[string]any{
				"get": operation("Hypermedia index", map[string]any{
					"200": jsonAPIResponse("Links to the API operations"),
				}),
			},
			"/v1/check_templates/": map[string]any{
				"get": operation("List check templates", map[string]any{
					"200": jsonAPIResponse("Check template collection"),
				}),
			},
			"/v1/check_templates/{check_template_id}": map[string]any{
				"get": operation("Get a check template", map[string]any{
					"200": jsonAPIResponse("Check template"),
					"404": jsonAPIResponse("Unknown check template id"),
				}),
			},
			"/v1/checks/": map[string]any{
				"get": operation("List checks", map[string]any{
					"200": jsonAPIResponse("Check collection"),
				}),
				"post": operation("Create a check", map[string]any{
					"201": jsonAPIResponse("Created check"),
					"422": jsonAPIResponse("Invalid check attributes"),
				}),
			},
			"/v1/checks/{check_id}": map[string]any{
				"get": operation("Get a check", map[string]any{
					"200": jsonAPIResponse("Check"),
					"404": jsonAPIResponse("Unknown check id"),
				}),
				"delete": operation("Remove a check", map[string]any{
					"204": map[string]any{"description": "Check removed"},
					"404": jsonAPIResponse("Unknown check id"),
				}),
			},
			"/v1/checks/{check_id}/run/": map[string]any{
				"post": operation("Run a check now", map[string]any{
					"204": map[string]any{"description": "Run triggered"},
					"404": jsonAPIResponse("Unknown check id"),
				}),
			},
		},
	}
}

// GetOpenAPI handles GET /openapi.json
func (h *Handlers) GetOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(h.openAPIDocument())
}

const docsPage = `<!DOCTYPE html>
<html>
<head>
  <title>Check Manager API</title>
  <meta charset="utf-8"/>
</head>
<body>
  <h1>Check Manager API</h1>
  <p>The machine-readable schema is served at <a href="/openapi.json">/openapi.json</a>.</p>
  <p>Start from the hypermedia index at <a href="/v1/">/v1/</a>.</p>
</body>
</html>
`

// GetDocs handles GET /docs
func (h *Handlers) GetDocs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(docsPage))
}
