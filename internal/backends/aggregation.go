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

	"golang.org/x/sync/errgroup"

	"github.com/eoepca/check-manager/internal/checks"
	"github.com/eoepca/check-manager/internal/jsonapi"
)

// serviceIndexKey routes creation requests to one member of an aggregation.
const serviceIndexKey = "service_index"

// AggregationBackend composes several backends behind one interface. Lists
// concatenate in member order; creation routes by the service_index
// argument; remove and run fan out and reduce, since only the member that
// holds the id can act on it.
type AggregationBackend struct {
	backends []CheckBackend
}

func NewAggregationBackend(backends ...CheckBackend) *AggregationBackend {
	return &AggregationBackend{backends: backends}
}

func (a *AggregationBackend) GetCheckTemplates(ctx context.Context, user *checks.UserInfo, ids []checks.CheckTemplateID) ([]checks.CheckTemplate, error) {
	var out []checks.CheckTemplate
	for _, backend := range a.backends {
		templates, err := backend.GetCheckTemplates(ctx, user, ids)
		if err != nil {
			return nil, err
		}
		out = append(out, templates...)
	}
	return out, nil
}

// serviceIndex pops the routing argument from template_args, defaulting to
// the first member. The argument never reaches the chosen backend.
func serviceIndex(args map[string]any) (int, error) {
	raw, ok := args[serviceIndexKey]
	if !ok {
		return 0, nil
	}
	delete(args, serviceIndexKey)
	switch value := raw.(type) {
	case int:
		return value, nil
	case float64:
		return int(value), nil
	default:
		return 0, jsonapi.NewUserInputError("Invalid input", fmt.Sprintf("service_index must be an integer, got %T", raw))
	}
}

func (a *AggregationBackend) CreateCheck(ctx context.Context, user *checks.UserInfo, attributes checks.InCheckAttributes) (checks.OutCheck, error) {
	index, err := serviceIndex(attributes.Metadata.TemplateArgs)
	if err != nil {
		return checks.OutCheck{}, err
	}
	if index < 0 || index >= len(a.backends) {
		return checks.OutCheck{}, jsonapi.NewUserInputError("Invalid input", fmt.Sprintf("service_index %d out of range", index))
	}
	return a.backends[index].CreateCheck(ctx, user, attributes)
}

func (a *AggregationBackend) GetChecks(ctx context.Context, user *checks.UserInfo, ids []checks.CheckID) ([]checks.OutCheck, error) {
	var out []checks.OutCheck
	for _, backend := range a.backends {
		found, err := backend.GetChecks(ctx, user, ids)
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}
	return out, nil
}

// fanOut runs op against every member in parallel and captures each
// outcome; the caller reduces.
func (a *AggregationBackend) fanOut(ctx context.Context, op func(context.Context, CheckBackend) error) []error {
	group, ctx := errgroup.WithContext(ctx)
	results := make([]error, len(a.backends))
	for i, backend := range a.backends {
		group.Go(func() error {
			results[i] = op(ctx, backend)
			return nil
		})
	}
	_ = group.Wait()
	return results
}

// reduceFanOut implements the ambiguity rule: exactly one success wins, two
// or more mean the id is not unique across members, and with no successes
// the most interesting failure surfaces (everything-not-found collapses to
// the first not-found).
func reduceFanOut(results []error, id checks.CheckID) error {
	successes := 0
	var firstFailure, firstInteresting error
	for _, err := range results {
		if err == nil {
			successes++
			continue
		}
		if firstFailure == nil {
			firstFailure = err
		}
		var notFound *checks.CheckIdError
		if !errors.As(err, &notFound) && firstInteresting == nil {
			firstInteresting = err
		}
	}
	switch {
	case successes == 1:
		return nil
	case successes > 1:
		return checks.NewCheckIdNonUniqueError(id)
	case firstInteresting != nil:
		return firstInteresting
	case firstFailure != nil:
		return firstFailure
	default:
		return checks.NewCheckIdError(id)
	}
}

func (a *AggregationBackend) RemoveCheck(ctx context.Context, user *checks.UserInfo, id checks.CheckID) error {
	results := a.fanOut(ctx, func(ctx context.Context, backend CheckBackend) error {
		return backend.RemoveCheck(ctx, user, id)
	})
	return reduceFanOut(results, id)
}

func (a *AggregationBackend) RunCheck(ctx context.Context, user *checks.UserInfo, id checks.CheckID) error {
	results := a.fanOut(ctx, func(ctx context.Context, backend CheckBackend) error {
		return backend.RunCheck(ctx, user, id)
	})
	return reduceFanOut(results, id)
}

func (a *AggregationBackend) Close(ctx context.Context) error {
	results := a.fanOut(ctx, func(ctx context.Context, backend CheckBackend) error {
		return backend.Close(ctx)
	})
	for _, err := range results {
		if err != nil {
			return err
		}
	}
	return nil
}
