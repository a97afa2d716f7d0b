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

package templates

import (
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/eoepca/check-manager/internal/checks"
)

// ValidateArguments checks template_args against a template's argument
// schema. Violations surface as JsonValidationError carrying the schema, so
// clients can self-correct.
func ValidateArguments(template checks.CheckTemplate, args map[string]any) error {
	schema := template.Attributes.Arguments
	if args == nil {
		args = map[string]any{}
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(args),
	)
	if err != nil {
		return checks.NewJsonValidationError(err.Error(), schema)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, violation := range result.Errors() {
			details = append(details, violation.String())
		}
		return checks.NewJsonValidationError(strings.Join(details, "; "), schema)
	}
	return nil
}
