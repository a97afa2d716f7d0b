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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/eoepca/check-manager/internal/checks"
	"github.com/eoepca/check-manager/internal/jsonapi"
)

// Paths on a remote check manager instance.
const (
	remoteTemplatesPath = "/v1/check_templates/"
	remoteChecksPath    = "/v1/checks/"
)

// RemoteBackend delegates every operation to another check manager over its
// JSON:API surface. Typed errors are reconstructed from the error codes the
// remote returns; transport failures become CheckConnectionError. The
// tenant's access token travels along as a bearer token.
type RemoteBackend struct {
	baseURL string
	client  *http.Client
}

// NewRemoteBackend builds a delegate for the service rooted at baseURL
// (trailing slash stripped).
func NewRemoteBackend(baseURL string) *RemoteBackend {
	return &RemoteBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

func (b *RemoteBackend) do(ctx context.Context, user *checks.UserInfo, method, path string, query url.Values, body any) (*http.Response, error) {
	target := b.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", jsonapi.MediaType)
	if body != nil {
		req.Header.Set("Content-Type", jsonapi.MediaType)
	}
	if user != nil && user.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+user.AccessToken)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, checks.NewCheckConnectionError(err.Error())
	}
	return resp, nil
}

// remoteError rebuilds the typed error carried by a non-2xx response.
func remoteError(resp *http.Response) error {
	defer resp.Body.Close()
	var errorResponse jsonapi.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errorResponse); err != nil || len(errorResponse.Errors) == 0 {
		return jsonapi.NewInternalError(fmt.Sprintf("Remote returned status %d", resp.StatusCode))
	}
	if len(errorResponse.Errors) == 1 {
		return checks.ErrorFromObject(errorResponse.Errors[0])
	}
	return &jsonapi.ErrorGroup{Status: resp.StatusCode, Errors: errorResponse.Errors}
}

func decodeBody(resp *http.Response, into any) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(into)
}

func (b *RemoteBackend) GetCheckTemplates(ctx context.Context, user *checks.UserInfo, ids []checks.CheckTemplateID) ([]checks.CheckTemplate, error) {
	query := url.Values{}
	for _, id := range ids {
		query.Add("ids", string(id))
	}
	resp, err := b.do(ctx, user, http.MethodGet, remoteTemplatesPath, query, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, remoteError(resp)
	}

	var document jsonapi.OKResponseList[checks.CheckTemplateAttributes]
	if err := decodeBody(resp, &document); err != nil {
		return nil, err
	}
	templates := make([]checks.CheckTemplate, 0, len(document.Data))
	for _, resource := range document.Data {
		templates = append(templates, checks.CheckTemplate{
			ID:         checks.CheckTemplateID(resource.ID),
			Attributes: resource.Attributes,
		})
	}
	return templates, nil
}

func (b *RemoteBackend) CreateCheck(ctx context.Context, user *checks.UserInfo, attributes checks.InCheckAttributes) (checks.OutCheck, error) {
	body := map[string]any{
		"data": map[string]any{
			"type":       "check",
			"attributes": attributes,
		},
	}
	resp, err := b.do(ctx, user, http.MethodPost, remoteChecksPath, nil, body)
	if err != nil {
		return checks.OutCheck{}, err
	}
	if resp.StatusCode != http.StatusCreated {
		return checks.OutCheck{}, remoteError(resp)
	}

	var document jsonapi.OKResponse[checks.OutCheckAttributes]
	if err := decodeBody(resp, &document); err != nil {
		return checks.OutCheck{}, err
	}
	return checks.OutCheck{
		ID:         checks.CheckID(document.Data.ID),
		Attributes: document.Data.Attributes,
	}, nil
}

func (b *RemoteBackend) GetChecks(ctx context.Context, user *checks.UserInfo, ids []checks.CheckID) ([]checks.OutCheck, error) {
	query := url.Values{}
	for _, id := range ids {
		query.Add("ids", string(id))
	}
	resp, err := b.do(ctx, user, http.MethodGet, remoteChecksPath, query, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, remoteError(resp)
	}

	var document jsonapi.OKResponseList[checks.OutCheckAttributes]
	if err := decodeBody(resp, &document); err != nil {
		return nil, err
	}
	out := make([]checks.OutCheck, 0, len(document.Data))
	for _, resource := range document.Data {
		out = append(out, checks.OutCheck{
			ID:         checks.CheckID(resource.ID),
			Attributes: resource.Attributes,
		})
	}
	return out, nil
}

func (b *RemoteBackend) RemoveCheck(ctx context.Context, user *checks.UserInfo, id checks.CheckID) error {
	resp, err := b.do(ctx, user, http.MethodDelete, remoteChecksPath+url.PathEscape(string(id)), nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return remoteError(resp)
	}
	return nil
}

func (b *RemoteBackend) RunCheck(ctx context.Context, user *checks.UserInfo, id checks.CheckID) error {
	resp, err := b.do(ctx, user, http.MethodPost, remoteChecksPath+url.PathEscape(string(id))+"/run/", nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return remoteError(resp)
	}
	return nil
}

func (b *RemoteBackend) Close(ctx context.Context) error {
	b.client.CloseIdleConnections()
	return nil
}
