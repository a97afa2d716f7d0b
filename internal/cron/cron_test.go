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

package cron

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eoepca/check-manager/internal/checks"
)

func TestValidateAcceptsWellFormedSchedules(t *testing.T) {
	for _, schedule := range []checks.CronExpression{
		"* * * * *",
		"0 0 1 1 0",
		"*/5 * * * *",
		"0,30 9-17 * * 1-5",
		"59 23 31 12 7",
		"15 2 1,15 * *",
		"0 */6 * * *",
	} {
		assert.NoError(t, Validate(schedule), "schedule %q", schedule)
	}
}

func TestValidateRejectsMalformedSchedules(t *testing.T) {
	for _, schedule := range []checks.CronExpression{
		"",
		"not a cron",
		"* * * *",
		"* * * * * *",
		"60 * * * *",
		"* 24 * * *",
		"* * 0 * *",
		"* * 32 * *",
		"* * * 13 *",
		"* * * * 8",
		"@hourly",
		"-5 * * * *",
		"5- * * * *",
	} {
		err := Validate(schedule)
		require.Error(t, err, "schedule %q", schedule)
		var validationErr *checks.CronExpressionValidationError
		assert.True(t, errors.As(err, &validationErr), "schedule %q", schedule)
	}
}

func TestNextRunAdvisory(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)

	next, ok := NextRun("*/15 * * * *", now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 45, 0, 0, time.UTC), next)

	_, ok = NextRun("not a cron", now)
	assert.False(t, ok)
}
