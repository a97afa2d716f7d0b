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
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"

	"github.com/eoepca/check-manager/internal/checks"
)

// Annotation keys persisted on every materialised cronjob. Reading them
// back reconstructs the check.
const (
	AnnotationName         = "name"
	AnnotationDescription  = "description"
	AnnotationTemplateID   = "template_id"
	AnnotationTemplateArgs = "template_args"
)

// Environment variables consulted while decorating a cronjob.
const (
	EnvOTLPEndpoint       = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvCollectorTLSSecret = "CHECK_MANAGER_COLLECTOR_TLS_SECRET"
)

// CronjobMaker wraps a template and applies the deterministic decoration on
// every produced cronjob: identifying annotations and a fresh UUID name,
// then OpenTelemetry resource attributes, then exporter configuration.
type CronjobMaker struct {
	template CronjobTemplate
}

func (m *CronjobMaker) CheckTemplate() checks.CheckTemplate {
	return m.template.CheckTemplate()
}

// MakeCronjob builds the cronjob for a creation request. The returned
// cronjob's name is the new check's id.
func (m *CronjobMaker) MakeCronjob(attributes checks.InCheckAttributes, user *checks.UserInfo) (*batchv1.CronJob, error) {
	cronjob, err := m.template.MakeCronjob(attributes.Metadata.TemplateArgs, attributes.Schedule, user)
	if err != nil {
		return nil, err
	}
	if err := tagMetadata(cronjob, attributes); err != nil {
		return nil, err
	}
	if err := addOtelResourceAttributes(cronjob, attributes.Metadata.Name, user); err != nil {
		return nil, err
	}
	if err := addOtelExporterVariables(cronjob); err != nil {
		return nil, err
	}
	return cronjob, nil
}

func tagMetadata(cronjob *batchv1.CronJob, attributes checks.InCheckAttributes) error {
	args, err := json.Marshal(attributes.Metadata.TemplateArgs)
	if err != nil {
		return err
	}
	if cronjob.Annotations == nil {
		cronjob.Annotations = map[string]string{}
	}
	cronjob.Annotations[AnnotationName] = attributes.Metadata.Name
	cronjob.Annotations[AnnotationDescription] = attributes.Metadata.Description
	cronjob.Annotations[AnnotationTemplateID] = string(attributes.Metadata.TemplateID)
	cronjob.Annotations[AnnotationTemplateArgs] = string(args)
	cronjob.Name = uuid.NewString()
	return nil
}

func firstContainer(cronjob *batchv1.CronJob) (*corev1.Container, error) {
	containers := cronjob.Spec.JobTemplate.Spec.Template.Spec.Containers
	if len(containers) == 0 {
		return nil, fmt.Errorf("cronjob %s has no containers", cronjob.Name)
	}
	return &containers[0], nil
}

func addOtelResourceAttributes(cronjob *batchv1.CronJob, checkName string, user *checks.UserInfo) error {
	container, err := firstContainer(cronjob)
	if err != nil {
		return err
	}
	var username string
	if user != nil {
		username = user.Username
	}
	container.Env = append(container.Env, corev1.EnvVar{
		Name: "OTEL_RESOURCE_ATTRIBUTES",
		Value: fmt.Sprintf("k8s.cronjob.name=%s,user.id=%s,health_check.name=%s",
			cronjob.Name, username, checkName),
	})
	return nil
}

func addOtelExporterVariables(cronjob *batchv1.CronJob) error {
	container, err := firstContainer(cronjob)
	if err != nil {
		return err
	}
	if endpoint := os.Getenv(EnvOTLPEndpoint); endpoint != "" {
		container.Env = append(container.Env, corev1.EnvVar{
			Name:  EnvOTLPEndpoint,
			Value: endpoint,
		})
	}
	if secret := os.Getenv(EnvCollectorTLSSecret); secret != "" {
		mountCollectorTLSSecret(cronjob, secret)
	}
	return nil
}

// mountCollectorTLSSecret mounts a TLS secret at /tls in the first container
// and points the OTLP exporter at it. A second call is a no-op: the tls
// volume is mounted at most once.
func mountCollectorTLSSecret(cronjob *batchv1.CronJob, secretName string) {
	podSpec := &cronjob.Spec.JobTemplate.Spec.Template.Spec
	for _, volume := range podSpec.Volumes {
		if volume.Name == "tls" {
			return
		}
	}
	container := &podSpec.Containers[0]
	container.Env = append(container.Env,
		corev1.EnvVar{Name: "OTEL_EXPORTER_OTLP_CERTIFICATE", Value: "/tls/ca.crt"},
		corev1.EnvVar{Name: "OTEL_EXPORTER_OTLP_CLIENT_KEY", Value: "/tls/tls.key"},
		corev1.EnvVar{Name: "OTEL_EXPORTER_OTLP_CLIENT_CERTIFICATE", Value: "/tls/tls.crt"},
	)
	container.VolumeMounts = append(container.VolumeMounts, corev1.VolumeMount{
		Name:      "tls",
		MountPath: "/tls",
		ReadOnly:  true,
	})
	podSpec.Volumes = append(podSpec.Volumes, corev1.Volume{
		Name: "tls",
		VolumeSource: corev1.VolumeSource{
			Secret: &corev1.SecretVolumeSource{SecretName: secretName},
		},
	})
}
