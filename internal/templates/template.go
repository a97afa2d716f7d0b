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

// Package templates holds the cronjob template contract, the registry that
// owns the loaded set, and the decoration every produced cronjob receives:
// identifying annotations, a fresh check id, and telemetry wiring.
package templates

import (
	"encoding/json"
	"sort"

	batchv1 "k8s.io/api/batch/v1"

	"github.com/eoepca/check-manager/internal/checks"
)

// CronjobTemplate is the plugin contract: a template describes itself (with
// the JSON Schema of its arguments) and builds a cronjob from validated
// arguments. The registry decorates the produced cronjob; templates do not
// assign names or telemetry wiring themselves.
type CronjobTemplate interface {
	CheckTemplate() checks.CheckTemplate
	MakeCronjob(args map[string]any, schedule checks.CronExpression, user *checks.UserInfo) (*batchv1.CronJob, error)
}

// CheckMaker is optionally implemented by templates that want to control how
// a materialised cronjob is read back into a check.
type CheckMaker interface {
	MakeCheck(cronjob *batchv1.CronJob) (checks.OutCheck, error)
}

// Registry owns the loaded templates, each wrapped in a CronjobMaker.
// Populated once at process start, immutable afterwards.
type Registry struct {
	templates map[checks.CheckTemplateID]*CronjobMaker
}

func NewRegistry() *Registry {
	return &Registry{templates: make(map[checks.CheckTemplateID]*CronjobMaker)}
}

// Register wraps and stores a template under its own id. A template
// re-registered under the same id replaces the previous one.
func (r *Registry) Register(template CronjobTemplate) {
	r.templates[template.CheckTemplate().ID] = &CronjobMaker{template: template}
}

// Get returns the wrapped template for an id.
func (r *Registry) Get(id checks.CheckTemplateID) (*CronjobMaker, bool) {
	maker, ok := r.templates[id]
	return maker, ok
}

// Templates lists the loaded templates, all of them when ids is nil,
// otherwise only those of the requested ids that exist. Sorted by id.
func (r *Registry) Templates(ids []checks.CheckTemplateID) []checks.CheckTemplate {
	var out []checks.CheckTemplate
	if ids == nil {
		for _, maker := range r.templates {
			out = append(out, maker.CheckTemplate())
		}
	} else {
		for _, id := range ids {
			if maker, ok := r.templates[id]; ok {
				out = append(out, maker.CheckTemplate())
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// MakeCheck reads a materialised cronjob back into a check, delegating to
// the originating template when it customises the inversion. Cronjobs with
// a missing or unknown template annotation fall back to the default
// inversion, which preserves whatever annotations exist.
func (r *Registry) MakeCheck(cronjob *batchv1.CronJob) (checks.OutCheck, error) {
	id := checks.CheckTemplateID(cronjob.Annotations[AnnotationTemplateID])
	if maker, ok := r.templates[id]; ok {
		if custom, ok := maker.template.(CheckMaker); ok {
			return custom.MakeCheck(cronjob)
		}
	}
	return DefaultMakeCheck(cronjob)
}

// DefaultMakeCheck inverts the annotation tagging of CronjobMaker: the
// cronjob name is the check id, metadata comes from the annotations, the
// schedule from the spec, and the outcome filter selects the telemetry
// resource attribute stamped at creation.
func DefaultMakeCheck(cronjob *batchv1.CronJob) (checks.OutCheck, error) {
	metadata := checks.OutCheckMetadata{
		Name:        cronjob.Annotations[AnnotationName],
		Description: cronjob.Annotations[AnnotationDescription],
		TemplateID:  checks.CheckTemplateID(cronjob.Annotations[AnnotationTemplateID]),
	}
	if raw, ok := cronjob.Annotations[AnnotationTemplateArgs]; ok {
		if err := json.Unmarshal([]byte(raw), &metadata.TemplateArgs); err != nil {
			return checks.OutCheck{}, err
		}
	}
	return checks.OutCheck{
		ID: checks.CheckID(cronjob.Name),
		Attributes: checks.OutCheckAttributes{
			Metadata: metadata,
			Schedule: checks.CronExpression(cronjob.Spec.Schedule),
			OutcomeFilter: checks.OutcomeFilter{
				ResourceAttributes: map[string]any{"k8s.cronjob.name": cronjob.Name},
			},
		},
	}, nil
}
