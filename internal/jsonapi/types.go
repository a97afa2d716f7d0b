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

// Package jsonapi holds the JSON:API document shapes shared by the HTTP
// surface and the remote backend client, plus the error types they exchange.
package jsonapi

import (
	"encoding/json"
	"fmt"
)

// MediaType is the content type of every JSON:API response body.
const MediaType = "application/vnd.api+json"

// Link is either a bare URL or an object with an href and a title. A Link
// with an empty Title marshals as a plain JSON string.
type Link struct {
	Href  string `json:"href"`
	Title string `json:"title,omitempty"`
}

// MarshalJSON emits a string when no title is set, an object otherwise.
func (l Link) MarshalJSON() ([]byte, error) {
	if l.Title == "" {
		return json.Marshal(l.Href)
	}
	type alias Link
	return json.Marshal(alias(l))
}

// UnmarshalJSON accepts both the string and the object form.
func (l *Link) UnmarshalJSON(data []byte) error {
	var href string
	if err := json.Unmarshal(data, &href); err == nil {
		*l = Link{Href: href}
		return nil
	}
	type alias Link
	var obj alias
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("link must be a string or a link object: %w", err)
	}
	*l = Link(obj)
	return nil
}

// Links maps link relation names ("self", "root", ...) to targets.
type Links map[string]Link

// Resource is a JSON:API resource object.
type Resource[T any] struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Attributes T              `json:"attributes"`
	Links      Links          `json:"links,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// OKResponse wraps a single resource.
type OKResponse[T any] struct {
	Data  Resource[T] `json:"data"`
	Links Links       `json:"links,omitempty"`
}

// OKResponseList wraps a resource collection with optional collection meta.
type OKResponseList[T any] struct {
	Data  []Resource[T]  `json:"data"`
	Meta  map[string]any `json:"meta,omitempty"`
	Links Links          `json:"links,omitempty"`
}

// ErrorResponse is the error document: one or more error objects.
type ErrorResponse struct {
	Errors []Error `json:"errors"`
}

// ErrorSource locates the offending part of the request.
type ErrorSource struct {
	Pointer   string `json:"pointer,omitempty"`
	Parameter string `json:"parameter,omitempty"`
	Header    string `json:"header,omitempty"`
}

// Error is a JSON:API error object. Status is the HTTP status as a string;
// Code identifies the error kind and is stable across service boundaries.
type Error struct {
	Status string         `json:"status"`
	Code   string         `json:"code"`
	Title  string         `json:"title"`
	Detail string         `json:"detail,omitempty"`
	Source *ErrorSource   `json:"source,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
}
