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
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eoepca/check-manager/internal/checks"
	"github.com/eoepca/check-manager/internal/metrics"
	"github.com/eoepca/check-manager/internal/testutil"
)

func operationCount(backend, operation, outcome string) float64 {
	return promtestutil.ToFloat64(metrics.BackendOperationsTotal.With(prometheus.Labels{
		"backend":   backend,
		"operation": operation,
		"outcome":   outcome,
	}))
}

func TestInstrumentedBackendCountsOperations(t *testing.T) {
	ctx := context.Background()
	mock := &testutil.MockBackend{Templates: []checks.CheckTemplate{{ID: "t1"}}}
	// Metrics are global, so a unique backend label isolates this test.
	backend := NewInstrumentedBackend("counts-ops", mock)

	templates, err := backend.GetCheckTemplates(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, templates, 1)

	created, err := backend.CreateCheck(ctx, nil, checks.InCheckAttributes{
		Metadata: checks.InCheckMetadata{Name: "c", TemplateID: "t1"},
		Schedule: "* * * * *",
	})
	require.NoError(t, err)

	_, err = backend.GetChecks(ctx, nil, nil)
	require.NoError(t, err)
	require.NoError(t, backend.RunCheck(ctx, nil, created.ID))
	require.NoError(t, backend.RemoveCheck(ctx, nil, created.ID))

	assert.Equal(t, float64(1), operationCount("counts-ops", "get_check_templates", "success"))
	assert.Equal(t, float64(1), operationCount("counts-ops", "create_check", "success"))
	assert.Equal(t, float64(1), operationCount("counts-ops", "get_checks", "success"))
	assert.Equal(t, float64(1), operationCount("counts-ops", "run_check", "success"))
	assert.Equal(t, float64(1), operationCount("counts-ops", "remove_check", "success"))
}

func TestInstrumentedBackendCountsFailuresAsErrors(t *testing.T) {
	ctx := context.Background()
	mock := &testutil.MockBackend{}
	backend := NewInstrumentedBackend("counts-errors", mock)

	err := backend.RemoveCheck(ctx, nil, "no-such-check")
	require.Error(t, err)
	var idErr *checks.CheckIdError
	require.ErrorAs(t, err, &idErr)

	assert.Equal(t, float64(1), operationCount("counts-errors", "remove_check", "error"))
	assert.Equal(t, float64(0), operationCount("counts-errors", "remove_check", "success"))
}

func TestInstrumentedBackendDelegatesClose(t *testing.T) {
	mock := &testutil.MockBackend{}
	backend := NewInstrumentedBackend("counts-close", mock)

	require.NoError(t, backend.Close(context.Background()))
	assert.Equal(t, 1, mock.CloseCalls)
}
