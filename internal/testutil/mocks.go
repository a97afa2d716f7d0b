// Package testutil provides shared test utilities and mock implementations
// for use across the check-manager test suites.
package testutil

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/eoepca/check-manager/internal/checks"
)

// ============================================================================
// Mock CheckBackend Implementation
// ============================================================================

// MockBackend is a configurable mock implementation of backends.CheckBackend
// for testing. All fields are optional - set only what your test needs.
// Thread-safe for concurrent access in aggregation fan-out tests.
type MockBackend struct {
	mu sync.Mutex

	// Templates served by GetCheckTemplates.
	Templates []checks.CheckTemplate

	// Checks served by GetChecks and mutated by Create/Remove.
	Checks map[checks.CheckID]checks.OutCheck

	// Errors returned by the corresponding operations.
	TemplatesError error
	CreateError    error
	GetError       error
	RemoveError    error
	RunError       error
	CloseError     error

	// Recorded calls.
	CreatedAttributes []checks.InCheckAttributes
	RemovedIDs        []checks.CheckID
	RanIDs            []checks.CheckID
	CloseCalls        int
}

func (m *MockBackend) GetCheckTemplates(ctx context.Context, user *checks.UserInfo, ids []checks.CheckTemplateID) ([]checks.CheckTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.TemplatesError != nil {
		return nil, m.TemplatesError
	}
	if ids == nil {
		return append([]checks.CheckTemplate(nil), m.Templates...), nil
	}
	var out []checks.CheckTemplate
	for _, id := range ids {
		for _, template := range m.Templates {
			if template.ID == id {
				out = append(out, template)
			}
		}
	}
	return out, nil
}

func (m *MockBackend) CreateCheck(ctx context.Context, user *checks.UserInfo, attributes checks.InCheckAttributes) (checks.OutCheck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil {
		return checks.OutCheck{}, m.CreateError
	}
	m.CreatedAttributes = append(m.CreatedAttributes, attributes)
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
	if m.Checks == nil {
		m.Checks = map[checks.CheckID]checks.OutCheck{}
	}
	m.Checks[id] = check
	return check, nil
}

func (m *MockBackend) GetChecks(ctx context.Context, user *checks.UserInfo, ids []checks.CheckID) ([]checks.OutCheck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	var out []checks.OutCheck
	if ids == nil {
		for _, check := range m.Checks {
			out = append(out, check)
		}
		return out, nil
	}
	for _, id := range ids {
		if check, ok := m.Checks[id]; ok {
			out = append(out, check)
		}
	}
	return out, nil
}

func (m *MockBackend) RemoveCheck(ctx context.Context, user *checks.UserInfo, id checks.CheckID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RemoveError != nil {
		return m.RemoveError
	}
	if _, ok := m.Checks[id]; !ok {
		return checks.NewCheckIdError(id)
	}
	delete(m.Checks, id)
	m.RemovedIDs = append(m.RemovedIDs, id)
	return nil
}

func (m *MockBackend) RunCheck(ctx context.Context, user *checks.UserInfo, id checks.CheckID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RunError != nil {
		return m.RunError
	}
	if _, ok := m.Checks[id]; !ok {
		return checks.NewCheckIdError(id)
	}
	m.RanIDs = append(m.RanIDs, id)
	return nil
}

func (m *MockBackend) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCalls++
	return m.CloseError
}

// Seed inserts a check under a fixed id.
func (m *MockBackend) Seed(check checks.OutCheck) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Checks == nil {
		m.Checks = map[checks.CheckID]checks.OutCheck{}
	}
	m.Checks[check.ID] = check
}
