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
	"net/http"
	"strconv"
)

// StatusError is implemented by every domain error. It maps the error to an
// HTTP status and a JSON:API error object.
type StatusError interface {
	error
	StatusCode() int
	ErrorObject() Error
}

// APIError is the base domain error: a single JSON:API error object exposed
// as a Go error. Concrete error kinds embed it so that errors.As can match
// them individually.
type APIError struct {
	Object Error
}

func (e *APIError) Error() string {
	if e.Object.Detail == "" {
		return e.Object.Title
	}
	return e.Object.Title + ": " + e.Object.Detail
}

// StatusCode parses the error object's status, defaulting to 500.
func (e *APIError) StatusCode() int {
	status, err := strconv.Atoi(e.Object.Status)
	if err != nil {
		return http.StatusInternalServerError
	}
	return status
}

func (e *APIError) ErrorObject() Error { return e.Object }

// ErrorGroup carries several error objects under one HTTP status, for
// responses that report more than one failure.
type ErrorGroup struct {
	Status int
	Errors []Error
}

func (g *ErrorGroup) Error() string {
	if len(g.Errors) == 1 {
		return g.Errors[0].Title
	}
	return strconv.Itoa(len(g.Errors)) + " errors (status " + strconv.Itoa(g.Status) + ")"
}

func newError(status int, code, title, detail string) APIError {
	return APIError{Object: Error{
		Status: strconv.Itoa(status),
		Code:   code,
		Title:  title,
		Detail: detail,
	}}
}

// InternalError reports an unexpected condition. Its detail never carries
// internal state when produced by the translator below.
type InternalError struct{ APIError }

func NewInternalError(detail string) *InternalError {
	return &InternalError{newError(http.StatusInternalServerError, "InternalError", "API internal error", detail)}
}

// ForbiddenError reports a policy denial.
type ForbiddenError struct{ APIError }

func NewForbiddenError(title, detail string) *ForbiddenError {
	return &ForbiddenError{newError(http.StatusForbidden, "Forbidden", title, detail)}
}

// UnauthorizedError reports missing or invalid authentication.
type UnauthorizedError struct{ APIError }

func NewUnauthorizedError(title, detail string) *UnauthorizedError {
	return &UnauthorizedError{newError(http.StatusUnauthorized, "Unauthorized", title, detail)}
}

// UserInputError reports generically invalid input.
type UserInputError struct{ APIError }

func NewUserInputError(title, detail string) *UserInputError {
	return &UserInputError{newError(http.StatusUnprocessableEntity, "UserInputError", title, detail)}
}

// StatusAndErrors translates any error into an HTTP status and the error
// objects to serialise. Domain errors pass through; everything else collapses
// to a bare 500 so that internals never leak to clients.
func StatusAndErrors(err error) (int, []Error) {
	var group *ErrorGroup
	if errors.As(err, &group) {
		return group.Status, group.Errors
	}
	var statusErr StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode(), []Error{statusErr.ErrorObject()}
	}
	return http.StatusInternalServerError, []Error{NewInternalError("Internal server error").ErrorObject()}
}
