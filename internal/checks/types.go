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

// Package checks defines the domain model of the check manager: templates,
// check attributes, tenant identity and the typed error taxonomy.
package checks

// CheckID identifies a check. Assigned by the service at creation (a fresh
// UUIDv4), never by the client.
type CheckID string

// CheckTemplateID identifies a loaded check template.
type CheckTemplateID string

// CronExpression is a five-field cron schedule string.
type CronExpression string

// UserInfo is the structured tenant identity produced by the on_auth hook
// chain from raw authentication material.
type UserInfo struct {
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// CheckTemplateMetadata is the informational part of a template.
type CheckTemplateMetadata struct {
	Label       string `json:"label,omitempty"`
	Description string `json:"description,omitempty"`
}

// CheckTemplateAttributes carries template metadata plus the JSON Schema
// its arguments are validated against.
type CheckTemplateAttributes struct {
	Metadata CheckTemplateMetadata `json:"metadata"`
	// Arguments is a JSON Schema document.
	Arguments map[string]any `json:"arguments"`
}

// CheckTemplate is a loaded template as exposed on the API.
type CheckTemplate struct {
	ID         CheckTemplateID         `json:"id"`
	Attributes CheckTemplateAttributes `json:"attributes"`
}

// InCheckMetadata is the client-supplied part of a check.
type InCheckMetadata struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	TemplateID   CheckTemplateID `json:"template_id"`
	TemplateArgs map[string]any  `json:"template_args"`
}

// InCheckAttributes is the creation payload: metadata plus a schedule.
type InCheckAttributes struct {
	Metadata InCheckMetadata `json:"metadata"`
	Schedule CronExpression  `json:"schedule"`
}

// OutCheckMetadata mirrors InCheckMetadata on the way out. All fields are
// optional: a check materialised outside this service may lack any of them.
type OutCheckMetadata struct {
	Name         string          `json:"name,omitempty"`
	Description  string          `json:"description,omitempty"`
	TemplateID   CheckTemplateID `json:"template_id,omitempty"`
	TemplateArgs map[string]any  `json:"template_args,omitempty"`
}

// OutcomeFilter is the bridge to telemetry consumers: attribute keys mapped
// to the value (or values) that identify this check's spans.
type OutcomeFilter struct {
	ResourceAttributes map[string]any `json:"resource_attributes,omitempty"`
	ScopeAttributes    map[string]any `json:"scope_attributes,omitempty"`
	SpanAttributes     map[string]any `json:"span_attributes,omitempty"`
}

// OutCheckAttributes is the stored form of a check.
type OutCheckAttributes struct {
	Metadata      OutCheckMetadata `json:"metadata"`
	Schedule      CronExpression   `json:"schedule"`
	OutcomeFilter OutcomeFilter    `json:"outcome_filter"`
}

// OutCheck is a materialised check.
type OutCheck struct {
	ID         CheckID            `json:"id"`
	Attributes OutCheckAttributes `json:"attributes"`
}
