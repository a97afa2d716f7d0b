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

// Package hooks runs the policy hook pipeline. Hook sets are registered
// under a name; within a stage, hooks execute in the alphabetical order of
// the set names they came from. Each stage composes its hooks in one of
// three modes: first non-nil result, run-all (errors propagate), or
// check-if-allow (a deny-set error from any hook vetoes the item).
package hooks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"

	batchv1 "k8s.io/api/batch/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/eoepca/check-manager/internal/checks"
	"github.com/eoepca/check-manager/internal/jsonapi"
)

// Stage identifies a point in the request or backend pipeline where hooks
// run. The string value is the default hook name looked up in every set.
type Stage string

const (
	GetSecurity     Stage = "get_fastapi_security"
	OnAuth          Stage = "on_auth"
	TemplateAccess  Stage = "on_template_access"
	CheckAccess     Stage = "on_check_access"
	CheckCreate     Stage = "on_check_create"
	CheckRemove     Stage = "on_check_remove"
	CheckRun        Stage = "on_check_run"
	GetK8sConfig    Stage = "get_k8s_config"
	GetK8sNamespace Stage = "get_k8s_namespace"
	CronjobAccess   Stage = "on_k8s_cronjob_access"
	CronjobCreate   Stage = "on_k8s_cronjob_create"
	CronjobRemove   Stage = "on_k8s_cronjob_remove"
	CronjobRun      Stage = "on_k8s_cronjob_run"
	GetMockUsername Stage = "get_mock_username"
)

var allStages = []Stage{
	GetSecurity, OnAuth, TemplateAccess, CheckAccess, CheckCreate,
	CheckRemove, CheckRun, GetK8sConfig, GetK8sNamespace, CronjobAccess,
	CronjobCreate, CronjobRemove, CronjobRun, GetMockUsername,
}

// Typed hook signatures, one per stage family.
type (
	// SecurityHook extracts raw authentication material from a request.
	SecurityHook func(r *http.Request) (any, error)
	// AuthHook projects raw material into the structured tenant identity.
	AuthHook func(ctx context.Context, credentials any) (*checks.UserInfo, error)
	// TemplateAccessHook decides visibility of one template.
	TemplateAccessHook func(ctx context.Context, user *checks.UserInfo, template checks.CheckTemplate) error
	// CheckAccessHook decides visibility of one check.
	CheckAccessHook func(ctx context.Context, user *checks.UserInfo, check checks.OutCheck) error
	// CheckCreateHook runs before creation; it may reject or mutate attrs.
	CheckCreateHook func(ctx context.Context, user *checks.UserInfo, attributes *checks.InCheckAttributes) error
	// CheckOpHook runs before remove or run of an existing check.
	CheckOpHook func(ctx context.Context, user *checks.UserInfo, id checks.CheckID) error
	// K8sConfigHook yields the cluster configuration for one operation.
	K8sConfigHook func(ctx context.Context) (*rest.Config, error)
	// K8sNamespaceHook yields the target namespace, "" when undecided.
	K8sNamespaceHook func(ctx context.Context) (string, error)
	// CronjobAccessHook decides visibility of one materialised cronjob.
	CronjobAccessHook func(ctx context.Context, user *checks.UserInfo, cronjob *batchv1.CronJob) error
	// CronjobMutateHook runs around cronjob create/remove/run with cluster
	// access, e.g. to stamp ownership or provision secrets.
	CronjobMutateHook func(ctx context.Context, client kubernetes.Interface, namespace string, user *checks.UserInfo, cronjob *batchv1.CronJob) error
	// MockUsernameHook maps the tenant identity to a mock partition key.
	MockUsernameHook func(ctx context.Context, user *checks.UserInfo) (string, error)
)

// Set is one plugin's contribution: hook name to typed hook function. The
// values must match the signature of the stage they are resolved for.
type Set map[string]any

// Registry holds the registered hook sets and the per-stage hook names,
// which default to the stage identifiers and can be overridden through the
// environment. Immutable after loading.
type Registry struct {
	sets  []namedSet
	names map[Stage]string
}

type namedSet struct {
	name string
	set  Set
}

// NewRegistry builds an empty registry with hook names resolved from the
// process environment.
func NewRegistry() *Registry {
	return newRegistry(os.Getenv)
}

func newRegistry(getenv func(string) string) *Registry {
	names := make(map[Stage]string, len(allStages))
	for _, stage := range allStages {
		names[stage] = string(stage)
		if override := getenv(overrideVar(stage)); override != "" {
			names[stage] = override
		}
	}
	return &Registry{names: names}
}

func overrideVar(stage Stage) string {
	if stage == GetSecurity {
		return "GET_FASTAPI_SECURITY_HOOK_NAME"
	}
	return "RH_CHECK_" + strings.ToUpper(string(stage)) + "_HOOK_NAME"
}

// Register adds a hook set. Sets sharing a name are both kept; ordering
// among them follows registration order.
func (r *Registry) Register(name string, set Set) {
	r.sets = append(r.sets, namedSet{name: name, set: set})
	sort.SliceStable(r.sets, func(i, j int) bool { return r.sets[i].name < r.sets[j].name })
}

// collect gathers the hooks registered under a stage's resolved name, in
// set-name order, asserting the stage's signature.
func collect[F any](r *Registry, stage Stage) ([]F, error) {
	name := r.names[stage]
	var funcs []F
	for _, s := range r.sets {
		value, ok := s.set[name]
		if !ok {
			continue
		}
		fn, ok := value.(F)
		if !ok {
			return nil, fmt.Errorf("hook %q in set %q has the wrong signature (%T)", name, s.name, value)
		}
		funcs = append(funcs, fn)
	}
	return funcs, nil
}

// deniedBy reports whether an error belongs to the check-if-allow deny set.
func deniedBy(err error) bool {
	var forbidden *jsonapi.ForbiddenError
	var checkID *checks.CheckIdError
	var templateID *checks.CheckTemplateIdError
	return errors.As(err, &forbidden) || errors.As(err, &checkID) || errors.As(err, &templateID)
}

// Security returns the first non-nil raw authentication material, nil when
// no hook produced any.
func (r *Registry) Security(req *http.Request) (any, error) {
	funcs, err := collect[SecurityHook](r, GetSecurity)
	if err != nil {
		return nil, err
	}
	for _, fn := range funcs {
		credentials, err := fn(req)
		if err != nil {
			return nil, err
		}
		if credentials != nil {
			return credentials, nil
		}
	}
	return nil, nil
}

// Auth returns the first non-nil tenant identity.
func (r *Registry) Auth(ctx context.Context, credentials any) (*checks.UserInfo, error) {
	funcs, err := collect[AuthHook](r, OnAuth)
	if err != nil {
		return nil, err
	}
	for _, fn := range funcs {
		user, err := fn(ctx, credentials)
		if err != nil {
			return nil, err
		}
		if user != nil {
			return user, nil
		}
	}
	return nil, nil
}

// AllowTemplate filters one template in check-if-allow mode.
func (r *Registry) AllowTemplate(ctx context.Context, user *checks.UserInfo, template checks.CheckTemplate) (bool, error) {
	funcs, err := collect[TemplateAccessHook](r, TemplateAccess)
	if err != nil {
		return false, err
	}
	for _, fn := range funcs {
		if err := fn(ctx, user, template); err != nil {
			if deniedBy(err) {
				return false, nil
			}
			return false, err
		}
	}
	return true, nil
}

// TemplateAccess enforces template visibility; hook errors propagate.
func (r *Registry) TemplateAccess(ctx context.Context, user *checks.UserInfo, template checks.CheckTemplate) error {
	funcs, err := collect[TemplateAccessHook](r, TemplateAccess)
	if err != nil {
		return err
	}
	for _, fn := range funcs {
		if err := fn(ctx, user, template); err != nil {
			return err
		}
	}
	return nil
}

// AllowCheck filters one check in check-if-allow mode.
func (r *Registry) AllowCheck(ctx context.Context, user *checks.UserInfo, check checks.OutCheck) (bool, error) {
	funcs, err := collect[CheckAccessHook](r, CheckAccess)
	if err != nil {
		return false, err
	}
	for _, fn := range funcs {
		if err := fn(ctx, user, check); err != nil {
			if deniedBy(err) {
				return false, nil
			}
			return false, err
		}
	}
	return true, nil
}

// CheckAccess enforces check visibility; hook errors propagate.
func (r *Registry) CheckAccess(ctx context.Context, user *checks.UserInfo, check checks.OutCheck) error {
	funcs, err := collect[CheckAccessHook](r, CheckAccess)
	if err != nil {
		return err
	}
	for _, fn := range funcs {
		if err := fn(ctx, user, check); err != nil {
			return err
		}
	}
	return nil
}

// CheckCreate runs all creation hooks in order.
func (r *Registry) CheckCreate(ctx context.Context, user *checks.UserInfo, attributes *checks.InCheckAttributes) error {
	funcs, err := collect[CheckCreateHook](r, CheckCreate)
	if err != nil {
		return err
	}
	for _, fn := range funcs {
		if err := fn(ctx, user, attributes); err != nil {
			return err
		}
	}
	return nil
}

// CheckRemove runs all removal hooks in order.
func (r *Registry) CheckRemove(ctx context.Context, user *checks.UserInfo, id checks.CheckID) error {
	return r.runCheckOp(ctx, CheckRemove, user, id)
}

// CheckRun runs all run hooks in order.
func (r *Registry) CheckRun(ctx context.Context, user *checks.UserInfo, id checks.CheckID) error {
	return r.runCheckOp(ctx, CheckRun, user, id)
}

func (r *Registry) runCheckOp(ctx context.Context, stage Stage, user *checks.UserInfo, id checks.CheckID) error {
	funcs, err := collect[CheckOpHook](r, stage)
	if err != nil {
		return err
	}
	for _, fn := range funcs {
		if err := fn(ctx, user, id); err != nil {
			return err
		}
	}
	return nil
}

// K8sConfig returns the first non-nil cluster configuration, nil when no
// hook provides one.
func (r *Registry) K8sConfig(ctx context.Context) (*rest.Config, error) {
	funcs, err := collect[K8sConfigHook](r, GetK8sConfig)
	if err != nil {
		return nil, err
	}
	for _, fn := range funcs {
		config, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		if config != nil {
			return config, nil
		}
	}
	return nil, nil
}

// K8sNamespace returns the first non-empty namespace, "" when undecided.
func (r *Registry) K8sNamespace(ctx context.Context) (string, error) {
	funcs, err := collect[K8sNamespaceHook](r, GetK8sNamespace)
	if err != nil {
		return "", err
	}
	for _, fn := range funcs {
		namespace, err := fn(ctx)
		if err != nil {
			return "", err
		}
		if namespace != "" {
			return namespace, nil
		}
	}
	return "", nil
}

// AllowCronjob filters one cronjob in check-if-allow mode.
func (r *Registry) AllowCronjob(ctx context.Context, user *checks.UserInfo, cronjob *batchv1.CronJob) (bool, error) {
	funcs, err := collect[CronjobAccessHook](r, CronjobAccess)
	if err != nil {
		return false, err
	}
	for _, fn := range funcs {
		if err := fn(ctx, user, cronjob); err != nil {
			if deniedBy(err) {
				return false, nil
			}
			return false, err
		}
	}
	return true, nil
}

// CronjobAccess enforces cronjob visibility; hook errors propagate.
func (r *Registry) CronjobAccess(ctx context.Context, user *checks.UserInfo, cronjob *batchv1.CronJob) error {
	funcs, err := collect[CronjobAccessHook](r, CronjobAccess)
	if err != nil {
		return err
	}
	for _, fn := range funcs {
		if err := fn(ctx, user, cronjob); err != nil {
			return err
		}
	}
	return nil
}

// CronjobCreate runs all cronjob creation hooks. Hooks may mutate the
// cronjob before it is submitted to the cluster.
func (r *Registry) CronjobCreate(ctx context.Context, client kubernetes.Interface, namespace string, user *checks.UserInfo, cronjob *batchv1.CronJob) error {
	return r.runCronjobMutate(ctx, CronjobCreate, client, namespace, user, cronjob)
}

// CronjobRemove runs all cronjob removal hooks.
func (r *Registry) CronjobRemove(ctx context.Context, client kubernetes.Interface, namespace string, user *checks.UserInfo, cronjob *batchv1.CronJob) error {
	return r.runCronjobMutate(ctx, CronjobRemove, client, namespace, user, cronjob)
}

// CronjobRun runs all cronjob run hooks.
func (r *Registry) CronjobRun(ctx context.Context, client kubernetes.Interface, namespace string, user *checks.UserInfo, cronjob *batchv1.CronJob) error {
	return r.runCronjobMutate(ctx, CronjobRun, client, namespace, user, cronjob)
}

func (r *Registry) runCronjobMutate(ctx context.Context, stage Stage, client kubernetes.Interface, namespace string, user *checks.UserInfo, cronjob *batchv1.CronJob) error {
	funcs, err := collect[CronjobMutateHook](r, stage)
	if err != nil {
		return err
	}
	for _, fn := range funcs {
		if err := fn(ctx, client, namespace, user, cronjob); err != nil {
			return err
		}
	}
	return nil
}

// MockUsername returns the first non-empty partition key for the mock
// backend, "" when no hook decides.
func (r *Registry) MockUsername(ctx context.Context, user *checks.UserInfo) (string, error) {
	funcs, err := collect[MockUsernameHook](r, GetMockUsername)
	if err != nil {
		return "", err
	}
	for _, fn := range funcs {
		username, err := fn(ctx, user)
		if err != nil {
			return "", err
		}
		if username != "" {
			return username, nil
		}
	}
	return "", nil
}
