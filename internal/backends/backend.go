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

// Package backends implements the check backend contract four ways: against
// a Kubernetes cluster, in memory, against a remote check manager, and as an
// aggregation over other backends.
package backends

import (
	"context"

	"github.com/eoepca/check-manager/internal/checks"
)

// CheckBackend stores and runs checks. The Kubernetes implementation is the
// store of record; the others exist for delegation, composition and tests.
type CheckBackend interface {
	// GetCheckTemplates lists the templates this backend can create checks
	// from, all of them when ids is nil.
	GetCheckTemplates(ctx context.Context, user *checks.UserInfo, ids []checks.CheckTemplateID) ([]checks.CheckTemplate, error)

	// CreateCheck validates the attributes against the named template and
	// materialises a new check.
	CreateCheck(ctx context.Context, user *checks.UserInfo, attributes checks.InCheckAttributes) (checks.OutCheck, error)

	// GetChecks lists this tenant's checks, all of them when ids is nil.
	GetChecks(ctx context.Context, user *checks.UserInfo, ids []checks.CheckID) ([]checks.OutCheck, error)

	// RemoveCheck deletes a check.
	RemoveCheck(ctx context.Context, user *checks.UserInfo, id checks.CheckID) error

	// RunCheck triggers an immediate one-off execution of a check.
	RunCheck(ctx context.Context, user *checks.UserInfo, id checks.CheckID) error

	// Close releases backend resources.
	Close(ctx context.Context) error
}
