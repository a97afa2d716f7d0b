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

package checks

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eoepca/check-manager/internal/jsonapi"
)

func TestErrorObjectsCarryCodeStatusAndDetail(t *testing.T) {
	tests := []struct {
		name   string
		err    jsonapi.StatusError
		status int
		code   string
		detail string
	}{
		{
			name:   "unknown template",
			err:    NewCheckTemplateIdError("nope"),
			status: http.StatusNotFound,
			code:   "CheckTemplateIdError",
			detail: "Check template id nope not found",
		},
		{
			name:   "unknown check",
			err:    NewCheckIdError("abc"),
			status: http.StatusNotFound,
			code:   "CheckIdError",
			detail: "Check id abc not found",
		},
		{
			name:   "ambiguous check",
			err:    NewCheckIdNonUniqueError("abc"),
			status: http.StatusBadRequest,
			code:   "CheckIdNonUniqueError",
			detail: "Check id abc exists in multiple backends",
		},
		{
			name:   "connection failure",
			err:    NewCheckConnectionError("Cannot connect to cluster"),
			status: http.StatusInternalServerError,
			code:   "CheckConnectionError",
			detail: "Cannot connect to cluster",
		},
		{
			name:   "bad cron",
			err:    NewCronExpressionValidationError("not a cron"),
			status: http.StatusUnprocessableEntity,
			code:   "CronExpressionValidationError",
			detail: `Invalid cron expression "not a cron"`,
		},
		{
			name:   "client specified id",
			err:    NewNewCheckClientSpecifiedId(),
			status: http.StatusForbidden,
			code:   "NewCheckClientSpecifiedId",
			detail: "The id of a new check is assigned by the service",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, tc.err.StatusCode())
			object := tc.err.ErrorObject()
			assert.Equal(t, tc.code, object.Code)
			assert.Equal(t, tc.detail, object.Detail)
		})
	}
}

func TestJsonValidationErrorPointsAtTemplateArgs(t *testing.T) {
	schema := map[string]any{"type": "object", "required": []any{"script"}}
	err := NewJsonValidationError("script is required", schema)

	object := err.ErrorObject()
	assert.Equal(t, http.StatusUnprocessableEntity, err.StatusCode())
	require.NotNil(t, object.Source)
	assert.Equal(t, "/data/attributes/metadata/template_args/", object.Source.Pointer)
	assert.Equal(t, schema, object.Meta["schema"])
}

func TestErrorFromObjectReconstructsTypedErrors(t *testing.T) {
	err := ErrorFromObject(NewCheckIdError("abc").ErrorObject())

	var checkIDErr *CheckIdError
	require.True(t, errors.As(err, &checkIDErr))
	assert.Equal(t, http.StatusNotFound, checkIDErr.StatusCode())
	assert.Equal(t, "Check id abc not found", checkIDErr.ErrorObject().Detail)
}

func TestErrorFromObjectFallsBackToBaseError(t *testing.T) {
	err := ErrorFromObject(jsonapi.Error{Status: "418", Code: "SomethingNew", Title: "huh"})

	var statusErr jsonapi.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, 418, statusErr.StatusCode())
	assert.Equal(t, "SomethingNew", statusErr.ErrorObject().Code)
}
