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

	"github.com/eoepca/check-manager/internal/checks"
	"github.com/eoepca/check-manager/internal/metrics"
)

// InstrumentedBackend wraps another backend and counts every operation by
// outcome under the given backend name.
type InstrumentedBackend struct {
	name  string
	inner CheckBackend
}

// NewInstrumentedBackend decorates inner with operation metrics.
func NewInstrumentedBackend(name string, inner CheckBackend) *InstrumentedBackend {
	return &InstrumentedBackend{name: name, inner: inner}
}

func (b *InstrumentedBackend) GetCheckTemplates(ctx context.Context, user *checks.UserInfo, ids []checks.CheckTemplateID) ([]checks.CheckTemplate, error) {
	templates, err := b.inner.GetCheckTemplates(ctx, user, ids)
	metrics.RecordBackendOperation(b.name, "get_check_templates", err)
	return templates, err
}

func (b *InstrumentedBackend) CreateCheck(ctx context.Context, user *checks.UserInfo, attributes checks.InCheckAttributes) (checks.OutCheck, error) {
	check, err := b.inner.CreateCheck(ctx, user, attributes)
	metrics.RecordBackendOperation(b.name, "create_check", err)
	return check, err
}

func (b *InstrumentedBackend) GetChecks(ctx context.Context, user *checks.UserInfo, ids []checks.CheckID) ([]checks.OutCheck, error) {
	items, err := b.inner.GetChecks(ctx, user, ids)
	metrics.RecordBackendOperation(b.name, "get_checks", err)
	return items, err
}

func (b *InstrumentedBackend) RemoveCheck(ctx context.Context, user *checks.UserInfo, id checks.CheckID) error {
	err := b.inner.RemoveCheck(ctx, user, id)
	metrics.RecordBackendOperation(b.name, "remove_check", err)
	return err
}

func (b *InstrumentedBackend) RunCheck(ctx context.Context, user *checks.UserInfo, id checks.CheckID) error {
	err := b.inner.RunCheck(ctx, user, id)
	metrics.RecordBackendOperation(b.name, "run_check", err)
	return err
}

func (b *InstrumentedBackend) Close(ctx context.Context) error {
	return b.inner.Close(ctx)
}
