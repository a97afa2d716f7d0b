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
	"fmt"
	"net/http"
	"strconv"

	"github.com/eoepca/check-manager/internal/jsonapi"
)

func newError(status int, code, title, detail string) jsonapi.APIError {
	return jsonapi.APIError{Object: jsonapi.Error{
		Status: strconv.Itoa(status),
		Code:   code,
		Title:  title,
		Detail: detail,
	}}
}

// CheckTemplateIdError reports an unknown template id.
type CheckTemplateIdError struct{ jsonapi.APIError }

func NewCheckTemplateIdError(id CheckTemplateID) *CheckTemplateIdError {
	return &CheckTemplateIdError{newError(
		http.StatusNotFound,
		"CheckTemplateIdError",
		"Check template id not found",
		fmt.Sprintf("Check template id %s not found", id),
	)}
}

// CheckIdError reports an unknown check id.
type CheckIdError struct{ jsonapi.APIError }

func NewCheckIdError(id CheckID) *CheckIdError {
	return &CheckIdError{newError(
		http.StatusNotFound,
		"CheckIdError",
		"Check id not found",
		fmt.Sprintf("Check id %s not found", id),
	)}
}

// CheckIdNonUniqueError reports an id matched by more than one backend of an
// aggregation.
type CheckIdNonUniqueError struct{ jsonapi.APIError }

func NewCheckIdNonUniqueError(id CheckID) *CheckIdNonUniqueError {
	return &CheckIdNonUniqueError{newError(
		http.StatusBadRequest,
		"CheckIdNonUniqueError",
		"Check id not unique",
		fmt.Sprintf("Check id %s exists in multiple backends", id),
	)}
}

// CheckConnectionError reports a transport failure towards the orchestrator
// or a remote check manager.
type CheckConnectionError struct{ jsonapi.APIError }

func NewCheckConnectionError(detail string) *CheckConnectionError {
	return &CheckConnectionError{newError(
		http.StatusInternalServerError,
		"CheckConnectionError",
		"Connection error",
		detail,
	)}
}

// CronExpressionValidationError reports a schedule that does not match the
// cron grammar.
type CronExpressionValidationError struct{ jsonapi.APIError }

func NewCronExpressionValidationError(schedule CronExpression) *CronExpressionValidationError {
	return &CronExpressionValidationError{newError(
		http.StatusUnprocessableEntity,
		"CronExpressionValidationError",
		"Invalid cron expression",
		fmt.Sprintf("Invalid cron expression %q", schedule),
	)}
}

// JsonValidationError reports template_args that violate the template's
// argument schema. The error source points at the offending document part
// and meta carries the schema so clients can self-correct.
type JsonValidationError struct{ jsonapi.APIError }

func NewJsonValidationError(detail string, schema map[string]any) *JsonValidationError {
	err := newError(
		http.StatusUnprocessableEntity,
		"JsonValidationError",
		"Json validation error",
		detail,
	)
	err.Object.Source = &jsonapi.ErrorSource{Pointer: "/data/attributes/metadata/template_args/"}
	if schema != nil {
		err.Object.Meta = map[string]any{"schema": schema}
	}
	return &JsonValidationError{err}
}

// NewCheckClientSpecifiedId reports a create request that carried an id.
type NewCheckClientSpecifiedId struct{ jsonapi.APIError }

func NewNewCheckClientSpecifiedId() *NewCheckClientSpecifiedId {
	return &NewCheckClientSpecifiedId{newError(
		http.StatusForbidden,
		"NewCheckClientSpecifiedId",
		"Client must not specify id",
		"The id of a new check is assigned by the service",
	)}
}

// ErrorFromObject reconstructs the typed error matching a JSON:API error
// object's code. Unknown codes yield the base error so that status and
// payload still round-trip.
func ErrorFromObject(object jsonapi.Error) error {
	base := jsonapi.APIError{Object: object}
	switch object.Code {
	case "CheckTemplateIdError":
		return &CheckTemplateIdError{base}
	case "CheckIdError":
		return &CheckIdError{base}
	case "CheckIdNonUniqueError":
		return &CheckIdNonUniqueError{base}
	case "CheckConnectionError":
		return &CheckConnectionError{base}
	case "CronExpressionValidationError":
		return &CronExpressionValidationError{base}
	case "JsonValidationError":
		return &JsonValidationError{base}
	case "NewCheckClientSpecifiedId":
		return &NewCheckClientSpecifiedId{base}
	case "InternalError":
		return &jsonapi.InternalError{APIError: base}
	case "Forbidden":
		return &jsonapi.ForbiddenError{APIError: base}
	case "Unauthorized":
		return &jsonapi.UnauthorizedError{APIError: base}
	case "UserInputError":
		return &jsonapi.UserInputError{APIError: base}
	default:
		return &base
	}
}
