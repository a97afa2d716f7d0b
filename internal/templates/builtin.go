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
	"fmt"

	"github.com/eoepca/check-manager/internal/checks"
)

// simplePingScript probes a single endpoint and asserts the status code.
// Shipped as a data URL so the runner needs no script hosting.
const simplePingScript = `from os import environ
import requests

GENERIC_ENDPOINT: str = environ["GENERIC_ENDPOINT"]
EXPECTED_STATUS_CODE: int = int(environ["EXPECTED_STATUS_CODE"])


def test_ping() -> None:
    response = requests.get(
        GENERIC_ENDPOINT,
    )
    assert response.status_code == EXPECTED_STATUS_CODE
`

func stringArg(args map[string]any, key string) string {
	value, _ := args[key].(string)
	return value
}

// DefaultK8sTemplate runs an arbitrary user script, given by URL or data
// URL, with optional requirements.
func DefaultK8sTemplate() *SimpleRunnerTemplate {
	return &SimpleRunnerTemplate{
		TemplateID:  "default_k8s_template",
		Label:       "Default Kubernetes template",
		Description: "Default template for checks in the Kubernetes backend.",
		ArgumentsSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"script": map[string]any{
					"type":   "string",
					"format": "textarea",
				},
				"requirements": map[string]any{
					"type":    "string",
					"format":  "textarea",
					"default": "",
				},
			},
			"required": []any{"script"},
		},
		ScriptURLFromArgs: func(args map[string]any) string {
			return stringArg(args, "script")
		},
		RequirementsURLFromArgs: func(args map[string]any) string {
			return stringArg(args, "requirements")
		},
		RunnerEnv: func(args map[string]any, user *checks.UserInfo) map[string]string {
			return nil
		},
	}
}

// SimplePingTemplate pings one endpoint on a schedule and reports whether
// the expected status code came back.
func SimplePingTemplate() *SimpleRunnerTemplate {
	return &SimpleRunnerTemplate{
		TemplateID:  "simple_ping",
		Label:       "Simple ping template",
		Description: "Simple template with preset script for pinging single endpoint.",
		ArgumentsSchema: map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"endpoint": map[string]any{
					"type":   "string",
					"format": "textarea",
				},
				"expected_status_code": map[string]any{
					"type":             "integer",
					"minimum":          100,
					"exclusiveMaximum": 600,
					"default":          200,
				},
			},
			"required": []any{"endpoint"},
		},
		ScriptURL: SrcToDataURL(simplePingScript),
		RunnerEnv: func(args map[string]any, user *checks.UserInfo) map[string]string {
			expected := 200
			if value, ok := args["expected_status_code"].(float64); ok {
				expected = int(value)
			}
			return map[string]string{
				"GENERIC_ENDPOINT":     stringArg(args, "endpoint"),
				"EXPECTED_STATUS_CODE": fmt.Sprintf("%d", expected),
			}
		},
		OTLPTLSSecret: "resource-health-healthchecks-certificate",
	}
}

// RegisterBuiltins loads the templates shipped with the service.
func RegisterBuiltins(registry *Registry) {
	registry.Register(DefaultK8sTemplate())
	registry.Register(SimplePingTemplate())
}
