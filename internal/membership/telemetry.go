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

package membership

import (
	"fmt"

	"go.opentelemetry.io/otel"
	otelmetric "go.opentelemetry.io/otel/metric"
)

var (
	lookupCallsCounter  otelmetric.Int64Counter
	lookupMissesCounter otelmetric.Int64Counter
	lookupErrorsCounter otelmetric.Int64Counter
)

func init() {
	meter := otel.Meter("github.com/cardinalhq/groupsplit/internal/membership")

	var err error
	lookupCallsCounter, err = meter.Int64Counter(
		"groupsplit.membership.lookup.calls",
		otelmetric.WithDescription("Total number of group lookups requested through the cached resolver"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create lookup.calls counter: %w", err))
	}

	lookupMissesCounter, err = meter.Int64Counter(
		"groupsplit.membership.lookup.misses",
		otelmetric.WithDescription("Number of group lookups that went to the backing resolver"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create lookup.misses counter: %w", err))
	}

	lookupErrorsCounter, err = meter.Int64Counter(
		"groupsplit.membership.lookup.errors",
		otelmetric.WithDescription("Number of group lookups that failed at the backing resolver"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create lookup.errors counter: %w", err))
	}
}
