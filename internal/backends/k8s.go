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

package backends

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	batchv1 "k8s.io/api/batch/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/utils/ptr"

	"github.com/eoepca/check-manager/internal/checks"
	"github.com/eoepca/check-manager/internal/cron"
	"github.com/eoepca/check-manager/internal/hooks"
	"github.com/eoepca/check-manager/internal/jsonapi"
	"github.com/eoepca/check-manager/internal/templates"
)

// DefaultNamespace receives the materialised cronjobs unless the
// get_k8s_namespace hook decides otherwise.
const DefaultNamespace = "resource-health"

// K8sBackend materialises checks as CronJobs. The cluster is the store of
// record: no check state is held in the process. The cluster configuration
// is resolved through the hook table on every operation, so credentials may
// rotate without a restart.
type K8sBackend struct {
	templates *templates.Registry
	hooks     *hooks.Registry

	// newClient is swapped for a fake in tests.
	newClient func(ctx context.Context) (kubernetes.Interface, error)
}

// NewK8sBackend builds the backend and fails fast when no hook can produce
// a cluster configuration.
func NewK8sBackend(ctx context.Context, templateRegistry *templates.Registry, hookRegistry *hooks.Registry) (*K8sBackend, error) {
	backend := &K8sBackend{
		templates: templateRegistry,
		hooks:     hookRegistry,
	}
	backend.newClient = backend.clientFromHooks
	config, err := hookRegistry.K8sConfig(ctx)
	if err != nil {
		return nil, err
	}
	if config == nil {
		return nil, fmt.Errorf("no get_k8s_config hook produced a cluster configuration")
	}
	return backend, nil
}

func (b *K8sBackend) clientFromHooks(ctx context.Context) (kubernetes.Interface, error) {
	config, err := b.hooks.K8sConfig(ctx)
	if err != nil {
		return nil, err
	}
	if config == nil {
		return nil, jsonapi.NewInternalError("No cluster configuration available")
	}
	return kubernetes.NewForConfig(config)
}

func (b *K8sBackend) namespace(ctx context.Context) (string, error) {
	namespace, err := b.hooks.K8sNamespace(ctx)
	if err != nil {
		return "", err
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return namespace, nil
}

// clusterError maps transport failures to CheckConnectionError. API status
// errors pass through for the caller to interpret.
func clusterError(err error) error {
	var statusErr *apierrors.StatusError
	if errors.As(err, &statusErr) {
		return err
	}
	return checks.NewCheckConnectionError("Cannot connect to cluster")
}

func (b *K8sBackend) GetCheckTemplates(ctx context.Context, user *checks.UserInfo, ids []checks.CheckTemplateID) ([]checks.CheckTemplate, error) {
	return b.templates.Templates(ids), nil
}

func (b *K8sBackend) CreateCheck(ctx context.Context, user *checks.UserInfo, attributes checks.InCheckAttributes) (checks.OutCheck, error) {
	maker, ok := b.templates.Get(attributes.Metadata.TemplateID)
	if !ok {
		return checks.OutCheck{}, checks.NewCheckTemplateIdError(attributes.Metadata.TemplateID)
	}
	if err := templates.ValidateArguments(maker.CheckTemplate(), attributes.Metadata.TemplateArgs); err != nil {
		return checks.OutCheck{}, err
	}
	if err := cron.Validate(attributes.Schedule); err != nil {
		return checks.OutCheck{}, err
	}

	cronjob, err := maker.MakeCronjob(attributes, user)
	if err != nil {
		return checks.OutCheck{}, err
	}

	client, err := b.newClient(ctx)
	if err != nil {
		return checks.OutCheck{}, err
	}
	namespace, err := b.namespace(ctx)
	if err != nil {
		return checks.OutCheck{}, err
	}

	// Hooks may mutate the cronjob (owner annotation) and provision per-user
	// resources before submission.
	if err := b.hooks.CronjobCreate(ctx, client, namespace, user, cronjob); err != nil {
		return checks.OutCheck{}, err
	}

	created, err := client.BatchV1().CronJobs(namespace).Create(ctx, cronjob, metav1.CreateOptions{})
	if err != nil {
		if apierrors.IsInvalid(err) {
			return checks.OutCheck{}, jsonapi.NewInternalError("Unprocessable content")
		}
		return checks.OutCheck{}, clusterError(err)
	}
	return b.templates.MakeCheck(created)
}

func (b *K8sBackend) GetChecks(ctx context.Context, user *checks.UserInfo, ids []checks.CheckID) ([]checks.OutCheck, error) {
	client, err := b.newClient(ctx)
	if err != nil {
		return nil, err
	}
	namespace, err := b.namespace(ctx)
	if err != nil {
		return nil, err
	}

	list, err := client.BatchV1().CronJobs(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, clusterError(err)
	}

	wanted := map[checks.CheckID]bool{}
	for _, id := range ids {
		wanted[id] = true
	}

	var out []checks.OutCheck
	for i := range list.Items {
		cronjob := &list.Items[i]
		if ids != nil && !wanted[checks.CheckID(cronjob.Name)] {
			continue
		}
		allowed, err := b.hooks.AllowCronjob(ctx, user, cronjob)
		if err != nil {
			return nil, err
		}
		if !allowed {
			continue
		}
		check, err := b.templates.MakeCheck(cronjob)
		if err != nil {
			return nil, err
		}
		out = append(out, check)
	}
	return out, nil
}

// readCronjob fetches a cronjob and enforces the access hook; a missing
// object or a hook denial both surface as typed errors.
func (b *K8sBackend) readCronjob(ctx context.Context, client kubernetes.Interface, namespace string, user *checks.UserInfo, id checks.CheckID) (*batchv1.CronJob, error) {
	cronjob, err := client.BatchV1().CronJobs(namespace).Get(ctx, string(id), metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, checks.NewCheckIdError(id)
		}
		return nil, clusterError(err)
	}
	if err := b.hooks.CronjobAccess(ctx, user, cronjob); err != nil {
		return nil, err
	}
	return cronjob, nil
}

func (b *K8sBackend) RemoveCheck(ctx context.Context, user *checks.UserInfo, id checks.CheckID) error {
	client, err := b.newClient(ctx)
	if err != nil {
		return err
	}
	namespace, err := b.namespace(ctx)
	if err != nil {
		return err
	}

	cronjob, err := b.readCronjob(ctx, client, namespace, user, id)
	if err != nil {
		return err
	}
	if err := b.hooks.CronjobRemove(ctx, client, namespace, user, cronjob); err != nil {
		return err
	}

	if err := client.BatchV1().CronJobs(namespace).Delete(ctx, string(id), metav1.DeleteOptions{}); err != nil {
		if apierrors.IsNotFound(err) {
			return checks.NewCheckIdError(id)
		}
		return clusterError(err)
	}
	return nil
}

func (b *K8sBackend) RunCheck(ctx context.Context, user *checks.UserInfo, id checks.CheckID) error {
	client, err := b.newClient(ctx)
	if err != nil {
		return err
	}
	namespace, err := b.namespace(ctx)
	if err != nil {
		return err
	}

	cronjob, err := b.readCronjob(ctx, client, namespace, user, id)
	if err != nil {
		return err
	}
	if err := b.hooks.CronjobRun(ctx, client, namespace, user, cronjob); err != nil {
		return err
	}

	job := &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:        uuid.NewString(),
			Annotations: cronjob.Spec.JobTemplate.Annotations,
			OwnerReferences: []metav1.OwnerReference{{
				APIVersion: "batch/v1",
				Kind:       "Cronjob",
				Name:       cronjob.Name,
				UID:        cronjob.UID,
				Controller: ptr.To(true),
			}},
		},
		Spec: cronjob.Spec.JobTemplate.Spec,
	}
	if _, err := client.BatchV1().Jobs(namespace).Create(ctx, job, metav1.CreateOptions{}); err != nil {
		return clusterError(err)
	}
	return nil
}

func (b *K8sBackend) Close(ctx context.Context) error { return nil }
