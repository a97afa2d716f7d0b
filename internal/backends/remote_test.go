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

package backends

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eoepca/check-manager/internal/checks"
	"github.com/eoepca/check-manager/internal/jsonapi"
)

func TestRemoteGetCheckTemplatesUnwrapsTheEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/check_templates/", r.URL.Path)
		assert.Equal(t, []string{"t1", "t2"}, r.URL.Query()["ids"])

		w.Header().Set("Content-Type", jsonapi.MediaType)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{
					"id":   "t1",
					"type": "check_template",
					"attributes": map[string]any{
						"metadata":  map[string]any{"label": "T1"},
						"arguments": map[string]any{"type": "object"},
					},
				},
			},
		})
	}))
	defer server.Close()

	backend := NewRemoteBackend(server.URL + "/")
	templates, err := backend.GetCheckTemplates(context.Background(), nil, []checks.CheckTemplateID{"t1", "t2"})
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, checks.CheckTemplateID("t1"), templates[0].ID)
	assert.Equal(t, "T1", templates[0].Attributes.Metadata.Label)
}

func TestRemoteCreateCheckPostsTheEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checks/", r.URL.Path)
		assert.Equal(t, jsonapi.MediaType, r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		data := body["data"].(map[string]any)
		assert.Equal(t, "check", data["type"])

		w.Header().Set("Content-Type", jsonapi.MediaType)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"id":   "remote-id",
				"type": "check",
				"attributes": map[string]any{
					"metadata": map[string]any{"name": "n", "template_id": "t1"},
					"schedule": "* * * * *",
					"outcome_filter": map[string]any{
						"resource_attributes": map[string]any{"k8s.cronjob.name": "remote-id"},
					},
				},
			},
		})
	}))
	defer server.Close()

	backend := NewRemoteBackend(server.URL)
	created, err := backend.CreateCheck(context.Background(),
		&checks.UserInfo{Username: "alice", AccessToken: "token-123"},
		checks.InCheckAttributes{
			Metadata: checks.InCheckMetadata{Name: "n", TemplateID: "t1", TemplateArgs: map[string]any{}},
			Schedule: "* * * * *",
		})
	require.NoError(t, err)
	assert.Equal(t, checks.CheckID("remote-id"), created.ID)
	assert.Equal(t, checks.CronExpression("* * * * *"), created.Attributes.Schedule)
}

func TestRemoteReconstructsTypedErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", jsonapi.MediaType)
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(jsonapi.ErrorResponse{
			Errors: []jsonapi.Error{checks.NewCheckIdError("abc").ErrorObject()},
		})
	}))
	defer server.Close()

	backend := NewRemoteBackend(server.URL)
	err := backend.RemoveCheck(context.Background(), nil, "abc")

	var notFound *checks.CheckIdError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "Check id abc not found", notFound.ErrorObject().Detail)
}

func TestRemoteRunHitsTheRunRoute(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	backend := NewRemoteBackend(server.URL)
	require.NoError(t, backend.RunCheck(context.Background(), nil, "my check"))
	assert.Equal(t, "/v1/checks/my%20check/run/", gotPath)
}

func TestRemoteConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing listens any more

	backend := NewRemoteBackend(server.URL)
	_, err := backend.GetChecks(context.Background(), nil, nil)

	var connectionErr *checks.CheckConnectionError
	require.True(t, errors.As(err, &connectionErr))
}

func TestRemoteUndecodableErrorBodyCollapsesToInternal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>upstream error</html>"))
	}))
	defer server.Close()

	backend := NewRemoteBackend(server.URL)
	_, err := backend.GetChecks(context.Background(), nil, nil)

	var internal *jsonapi.InternalError
	require.True(t, errors.As(err, &internal))
	assert.Contains(t, internal.ErrorObject().Detail, "502")
}
