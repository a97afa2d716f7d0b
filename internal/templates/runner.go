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
	"encoding/base64"
	"os"
	"sort"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/eoepca/check-manager/internal/checks"
)

const (
	DefaultRunnerImage    = "docker.io/eoepca/healthcheck_runner:2.0.0-beta2"
	DefaultMitmproxyImage = "docker.io/eoepca/oidc-mitmproxy:latest"
)

// RunnerImage resolves the script runner image, overridable per deployment.
func RunnerImage() string {
	if image := os.Getenv("RH_CHECK_K8S_DEFAULT_RUNNER_IMAGE"); image != "" {
		return image
	}
	return DefaultRunnerImage
}

// MitmproxyImage resolves the OIDC sidecar image.
func MitmproxyImage() string {
	if image := os.Getenv("RH_CHECK_K8S_DEFAULT_OIDC_MITMPROXY_IMAGE"); image != "" {
		return image
	}
	return DefaultMitmproxyImage
}

// SrcToDataURL packs a script into a data URL the runner can fetch without
// any network access.
func SrcToDataURL(src string) string {
	return "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte(src))
}

// sortedEnv renders an env map as a stable env var list.
func sortedEnv(env map[string]string) []corev1.EnvVar {
	names := make([]string, 0, len(env))
	for name := range env {
		names = append(names, name)
	}
	sort.Strings(names)
	vars := make([]corev1.EnvVar, 0, len(names))
	for _, name := range names {
		vars = append(vars, corev1.EnvVar{Name: name, Value: env[name]})
	}
	return vars
}

// RunnerOptions configures the script runner container.
type RunnerOptions struct {
	// ScriptURL locates the test script, typically a data URL.
	ScriptURL string
	// RequirementsURL optionally locates additional dependencies.
	RequirementsURL string
	// Env is extra environment the script reads.
	Env map[string]string
	// Args overrides the image's default arguments.
	Args []string
}

// RunnerContainer builds the container that executes a user script under
// OpenTelemetry instrumentation.
func RunnerContainer(opts RunnerOptions) corev1.Container {
	env := []corev1.EnvVar{
		{Name: "RESOURCE_HEALTH_RUNNER_SCRIPT", Value: opts.ScriptURL},
	}
	if opts.RequirementsURL != "" {
		env = append(env, corev1.EnvVar{
			Name:  "RESOURCE_HEALTH_RUNNER_REQUIREMENTS",
			Value: opts.RequirementsURL,
		})
	}
	env = append(env, sortedEnv(opts.Env)...)
	return corev1.Container{
		Name:            "healthcheck",
		Image:           RunnerImage(),
		ImagePullPolicy: corev1.PullIfNotPresent,
		Args:            opts.Args,
		Env:             env,
	}
}

// SecretRef names a key inside a secret.
type SecretRef struct {
	Name string
	Key  string
}

func (s SecretRef) envSource() *corev1.EnvVarSource {
	return &corev1.EnvVarSource{
		SecretKeyRef: &corev1.SecretKeySelector{
			LocalObjectReference: corev1.LocalObjectReference{Name: s.Name},
			Key:                  s.Key,
		},
	}
}

// MitmproxyOptions configures the OIDC forwarding sidecar. The sidecar
// listens on localhost:8080 and forwards authenticated requests to the
// remote domain.
type MitmproxyOptions struct {
	RemoteDomain       string
	OpenIDConnectURL   string
	ClientIDSecret     SecretRef
	ClientSecretSecret SecretRef
	RefreshTokenSecret SecretRef
}

// OIDCMitmproxyContainer builds the sidecar that lets a check probe an
// OIDC-protected upstream.
func OIDCMitmproxyContainer(opts MitmproxyOptions) corev1.Container {
	return corev1.Container{
		Name:            "oidc-mitmproxy",
		Image:           MitmproxyImage(),
		ImagePullPolicy: corev1.PullIfNotPresent,
		Env: []corev1.EnvVar{
			{Name: "REMOTE_DOMAIN", Value: opts.RemoteDomain},
			{Name: "OPEN_ID_CONNECT_URL", Value: opts.OpenIDConnectURL},
			{Name: "OPEN_ID_CONNECT_CLIENT_ID", ValueFrom: opts.ClientIDSecret.envSource()},
			{Name: "OPEN_ID_CONNECT_CLIENT_SECRET", ValueFrom: opts.ClientSecretSecret.envSource()},
			{Name: "OPEN_ID_REFRESH_TOKEN", ValueFrom: opts.RefreshTokenSecret.envSource()},
		},
	}
}

// BaseCronjob assembles the cronjob skeleton every template produces:
// schedule set, empty annotations, OnFailure restart policy.
func BaseCronjob(schedule checks.CronExpression, containers ...corev1.Container) *batchv1.CronJob {
	return &batchv1.CronJob{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "batch/v1",
			Kind:       "CronJob",
		},
		ObjectMeta: metav1.ObjectMeta{
			Annotations: map[string]string{},
		},
		Spec: batchv1.CronJobSpec{
			Schedule: string(schedule),
			JobTemplate: batchv1.JobTemplateSpec{
				Spec: batchv1.JobSpec{
					Template: corev1.PodTemplateSpec{
						Spec: corev1.PodSpec{
							Containers:    containers,
							RestartPolicy: corev1.RestartPolicyOnFailure,
						},
					},
				},
			},
		},
	}
}

// SimpleRunnerTemplate is the common template shape: one script runner
// container, optionally extra sidecars, built from a declarative argument
// schema. It satisfies CronjobTemplate.
type SimpleRunnerTemplate struct {
	TemplateID  checks.CheckTemplateID
	Label       string
	Description string
	// ArgumentsSchema is the JSON Schema of the template arguments. The
	// draft-07 $schema marker is stamped on if absent.
	ArgumentsSchema map[string]any

	// ScriptURL is the script location; ScriptURLFromArgs takes precedence
	// when templates derive it from the arguments.
	ScriptURL         string
	ScriptURLFromArgs func(args map[string]any) string
	// RequirementsURLFromArgs optionally derives a requirements location.
	RequirementsURLFromArgs func(args map[string]any) string
	// RunnerEnv supplies extra env for the runner container.
	RunnerEnv func(args map[string]any, user *checks.UserInfo) map[string]string
	// ExtraContainers appends sidecars (e.g. the OIDC proxy).
	ExtraContainers func(args map[string]any, user *checks.UserInfo) []corev1.Container
	// OTLPTLSSecret mounts a TLS secret for the exporter when set.
	OTLPTLSSecret string
}

func (t *SimpleRunnerTemplate) CheckTemplate() checks.CheckTemplate {
	schema := make(map[string]any, len(t.ArgumentsSchema)+1)
	for key, value := range t.ArgumentsSchema {
		schema[key] = value
	}
	if _, ok := schema["$schema"]; !ok {
		schema["$schema"] = "http://json-schema.org/draft-07/schema"
	}
	return checks.CheckTemplate{
		ID: t.TemplateID,
		Attributes: checks.CheckTemplateAttributes{
			Metadata: checks.CheckTemplateMetadata{
				Label:       t.Label,
				Description: t.Description,
			},
			Arguments: schema,
		},
	}
}

func (t *SimpleRunnerTemplate) MakeCronjob(args map[string]any, schedule checks.CronExpression, user *checks.UserInfo) (*batchv1.CronJob, error) {
	scriptURL := t.ScriptURL
	if t.ScriptURLFromArgs != nil {
		scriptURL = t.ScriptURLFromArgs(args)
	}
	opts := RunnerOptions{ScriptURL: scriptURL}
	if t.RequirementsURLFromArgs != nil {
		opts.RequirementsURL = t.RequirementsURLFromArgs(args)
	}
	if t.RunnerEnv != nil {
		opts.Env = t.RunnerEnv(args, user)
	}

	containers := []corev1.Container{RunnerContainer(opts)}
	if t.ExtraContainers != nil {
		containers = append(containers, t.ExtraContainers(args, user)...)
	}

	cronjob := BaseCronjob(schedule, containers...)
	if t.OTLPTLSSecret != "" {
		mountCollectorTLSSecret(cronjob, t.OTLPTLSSecret)
	}
	return cronjob, nil
}
