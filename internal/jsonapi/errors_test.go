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

package jsonapi

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusAndErrorsPassesDomainErrorsThrough(t *testing.T) {
	status, errs := StatusAndErrors(NewForbiddenError("Access denied", "not the owner"))

	assert.Equal(t, http.StatusForbidden, status)
	require.Len(t, errs, 1)
	assert.Equal(t, "Forbidden", errs[0].Code)
	assert.Equal(t, "403", errs[0].Status)
	assert.Equal(t, "Access denied", errs[0].Title)
	assert.Equal(t, "not the owner", errs[0].Detail)
}

func TestStatusAndErrorsCollapsesUnknownErrors(t *testing.T) {
	status, errs := StatusAndErrors(fmt.Errorf("dial tcp 10.0.0.1:6443: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, status)
	require.Len(t, errs, 1)
	assert.Equal(t, "InternalError", errs[0].Code)
	assert.Equal(t, "API internal error", errs[0].Title)
	// The original message must not leak.
	assert.Equal(t, "Internal server error", errs[0].Detail)
}

func TestStatusAndErrorsUnwrapsWrappedDomainErrors(t *testing.T) {
	wrapped := fmt.Errorf("creating check: %w", NewUserInputError("Invalid input", "bad schedule"))

	status, errs := StatusAndErrors(wrapped)

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	require.Len(t, errs, 1)
	assert.Equal(t, "UserInputError", errs[0].Code)
}

func TestStatusAndErrorsExpandsErrorGroups(t *testing.T) {
	group := &ErrorGroup{
		Status: http.StatusUnprocessableEntity,
		Errors: []Error{
			NewUserInputError("Invalid input", "first").ErrorObject(),
			NewUserInputError("Invalid input", "second").ErrorObject(),
		},
	}

	status, errs := StatusAndErrors(group)

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Len(t, errs, 2)
}

func TestErrorsAsDistinguishesKinds(t *testing.T) {
	var err error = NewUnauthorizedError("Unauthorized", "no token")

	var unauthorized *UnauthorizedError
	var forbidden *ForbiddenError
	assert.True(t, errors.As(err, &unauthorized))
	assert.False(t, errors.As(err, &forbidden))
}

func TestStatusCodeDefaultsTo500OnBadStatus(t *testing.T) {
	err := &APIError{Object: Error{Status: "teapot"}}
	assert.Equal(t, http.StatusInternalServerError, err.StatusCode())
}
