// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package splitter

import (
	"fmt"

	"go.opentelemetry.io/otel"
	otelmetric "go.opentelemetry.io/otel/metric"
)

var (
	rowsProcessedCounter otelmetric.Int64Counter
	rowsMatchedCounter   otelmetric.Int64Counter
	rowsUnmatchedCounter otelmetric.Int64Counter
	resolveErrorsCounter otelmetric.Int64Counter
	writeErrorsCounter   otelmetric.Int64Counter
)

func init() {
	meter := otel.Meter("github.com/cardinalhq/groupsplit/internal/splitter")

	var err error
	rowsProcessedCounter, err = meter.Int64Counter(
		"groupsplit.splitter.rows.processed",
		otelmetric.WithDescription("Number of input data rows processed by the split engine"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create rows.processed counter: %w", err))
	}

	rowsMatchedCounter, err = meter.Int64Counter(
		"groupsplit.splitter.rows.matched",
		otelmetric.WithDescription("Number of destination writes performed (per-write counting)"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create rows.matched counter: %w", err))
	}

	rowsUnmatchedCounter, err = meter.Int64Counter(
		"groupsplit.splitter.keys.unmatched",
		otelmetric.WithDescription("Number of distinct keys that resolved to zero groups"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create keys.unmatched counter: %w", err))
	}

	resolveErrorsCounter, err = meter.Int64Counter(
		"groupsplit.splitter.resolve.errors",
		otelmetric.WithDescription("Number of group lookups that failed and were isolated"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create resolve.errors counter: %w", err))
	}

	writeErrorsCounter, err = meter.Int64Counter(
		"groupsplit.splitter.write.errors",
		otelmetric.WithDescription("Number of per-group writer failures that were isolated"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create write.errors counter: %w", err))
	}
}
