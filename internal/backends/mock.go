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
	"sync"

	"github.com/google/uuid"

	"github.com/eoepca/check-manager/internal/checks"
	"github.com/eoepca/check-manager/internal/cron"
	"github.com/eoepca/check-manager/internal/hooks"
	"github.com/eoepca/check-manager/internal/templates"
)

// MockBackend keeps checks in per-tenant maps. It runs the same validation
// pipeline as the Kubernetes backend without touching a cluster; used in
// tests and demo deployments.
type MockBackend struct {
	hooks     *hooks.Registry
	templates map[checks.CheckTemplateID]checks.CheckTemplate

	mu           sync.Mutex
	userToChecks map[string]map[checks.CheckID]checks.OutCheck
}

// NewMockBackend builds a mock backend with its dummy template set. The
// prefix distinguishes template ids when several mocks sit behind one
// aggregation.
func NewMockBackend(hookRegistry *hooks.Registry, templateIDPrefix string) *MockBackend {
	dummy := checks.CheckTemplate{
		ID: checks.CheckTemplateID(templateIDPrefix + "check_template1"),
		Attributes: checks.CheckTemplateAttributes{
			Metadata: checks.CheckTemplateMetadata{
				Label:       "Dummy check template",
				Description: "Dummy check template description",
			},
			Arguments: map[string]any{
				"$schema": "http://json-schema.org/draft-07/schema",
				"type":    "object",
				"properties": map[string]any{
					"script": map[string]any{
						"type":   "string",
						"format": "textarea",
					},
					"requirements": map[string]any{
						"type":   "string",
						"format": "textarea",
					},
				},
				"required": []any{"script"},
			},
		},
	}
	return &MockBackend{
		hooks:        hookRegistry,
		templates:    map[checks.CheckTemplateID]checks.CheckTemplate{dummy.ID: dummy},
		userToChecks: map[string]map[checks.CheckID]checks.OutCheck{},
	}
}

// username resolves the partition key, preferring the get_mock_username
// hook over the tenant's own username.
func (b *MockBackend) username(ctx context.Context, user *checks.UserInfo) (string, error) {
	if b.hooks != nil {
		username, err := b.hooks.MockUsername(ctx, user)
		if err != nil {
			return "", err
		}
		if username != "" {
			return username, nil
		}
	}
	if user != nil {
		return user.Username, nil
	}
	return "", nil
}

func (b *MockBackend) GetCheckTemplates(ctx context.Context, user *checks.UserInfo, ids []checks.CheckTemplateID) ([]checks.CheckTemplate, error) {
	var out []checks.CheckTemplate
	if ids == nil {
		for _, template := range b.templates {
			out = append(out, template)
		}
		return out, nil
	}
	for _, id := range ids {
		if template, ok := b.templates[id]; ok {
			out = append(out, template)
		}
	}
	return out, nil
}

func (b *MockBackend) CreateCheck(ctx context.Context, user *checks.UserInfo, attributes checks.InCheckAttributes) (checks.OutCheck, error) {
	template, ok := b.templates[attributes.Metadata.TemplateID]
	if !ok {
		return checks.OutCheck{}, checks.NewCheckTemplateIdError(attributes.Metadata.TemplateID)
	}
	if err := templates.ValidateArguments(template, attributes.Metadata.TemplateArgs); err != nil {
		return checks.OutCheck{}, err
	}
	if err := cron.Validate(attributes.Schedule); err != nil {
		return checks.OutCheck{}, err
	}
	username, err := b.username(ctx, user)
	if err != nil {
		return checks.OutCheck{}, err
	}

	id := checks.CheckID(uuid.NewString())
	check := checks.OutCheck{
		ID: id,
		Attributes: checks.OutCheckAttributes{
			Metadata: checks.OutCheckMetadata{
				Name:         attributes.Metadata.Name,
				Description:  attributes.Metadata.Description,
				TemplateID:   attributes.Metadata.TemplateID,
				TemplateArgs: attributes.Metadata.TemplateArgs,
			},
			Schedule: attributes.Schedule,
			OutcomeFilter: checks.OutcomeFilter{
				ResourceAttributes: map[string]any{"k8s.cronjob.name": string(id)},
			},
		},
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.userToChecks[username] == nil {
		b.userToChecks[username] = map[checks.CheckID]checks.OutCheck{}
	}
	b.userToChecks[username][check.ID] = check
	return check, nil
}

func (b *MockBackend) GetChecks(ctx context.Context, user *checks.UserInfo, ids []checks.CheckID) ([]checks.OutCheck, error) {
	username, err := b.username(ctx, user)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	owned := b.userToChecks[username]
	var out []checks.OutCheck
	if ids == nil {
		for _, check := range owned {
			out = append(out, check)
		}
		return out, nil
	}
	for _, id := range ids {
		if check, ok := owned[id]; ok {
			out = append(out, check)
		}
	}
	return out, nil
}

func (b *MockBackend) RemoveCheck(ctx context.Context, user *checks.UserInfo, id checks.CheckID) error {
	username, err := b.username(ctx, user)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	owned := b.userToChecks[username]
	if _, ok := owned[id]; !ok {
		return checks.NewCheckIdError(id)
	}
	delete(owned, id)
	return nil
}

func (b *MockBackend) RunCheck(ctx context.Context, user *checks.UserInfo, id checks.CheckID) error {
	username, err := b.username(ctx, user)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.userToChecks[username][id]; !ok {
		return checks.NewCheckIdError(id)
	}
	// Nothing to execute in memory; existence is the whole contract.
	return nil
}

func (b *MockBackend) Close(ctx context.Context) error { return nil }
