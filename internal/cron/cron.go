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

// Package cron validates five-field cron schedules structurally. Acceptance
// is decided by the field grammar alone; the standard parser is consulted
// only to compute an advisory next-run time, since its dialect differs from
// the grammar (names, @-macros).
package cron

import (
	"regexp"
	"strings"
	"time"

	robfig "github.com/robfig/cron/v3"

	"github.com/eoepca/check-manager/internal/checks"
)

var fieldPatterns = [5]*regexp.Regexp{
	// minute
	regexp.MustCompile(`^(\*|[0-5]?\d)(/\d+)?([-,][0-5]?\d)*$`),
	// hour
	regexp.MustCompile(`^(\*|[01]?\d|2[0-3])(/\d+)?([-,]([01]?\d|2[0-3]))*$`),
	// day of month
	regexp.MustCompile(`^(\*|[1-9]|[12]\d|3[01])(/\d+)?([-,]([1-9]|[12]\d|3[01]))*$`),
	// month
	regexp.MustCompile(`^(\*|1[0-2]|0?[1-9])(/\d+)?([-,](1[0-2]|0?[1-9]))*$`),
	// day of week
	regexp.MustCompile(`^(\*|[0-7])(/\d+)?([-,][0-7])*$`),
}

// Validate checks a schedule against the grammar. Exactly five whitespace
// separated fields, each matching its pattern.
func Validate(schedule checks.CronExpression) error {
	fields := strings.Fields(string(schedule))
	if len(fields) != len(fieldPatterns) {
		return checks.NewCronExpressionValidationError(schedule)
	}
	for i, field := range fields {
		if !fieldPatterns[i].MatchString(field) {
			return checks.NewCronExpressionValidationError(schedule)
		}
	}
	return nil
}

// NextRun returns the next execution after now, when the schedule also
// parses under the standard dialect. Advisory only: a false return says
// nothing about validity.
func NextRun(schedule checks.CronExpression, now time.Time) (time.Time, bool) {
	spec, err := robfig.ParseStandard(string(schedule))
	if err != nil {
		return time.Time{}, false
	}
	return spec.Next(now), true
}
