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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultHTTPTimeout = 10 * time.Second

// httpProvider resolves membership from a remote service:
//
//	GET {base}/v1/groups?key={key}  -> {"groups": ["EU", "VIP"]}
//	GET {base}/v1/groups/{id}       -> {"id": "EU", "name": "Europe", ...}
type httpProvider struct {
	baseURL string
	client  *http.Client
}

var _ Resolver = (*httpProvider)(nil)

// NewHTTPProvider creates a resolver backed by the membership service at
// baseURL. A nil client uses a default with a 10s timeout.
func NewHTTPProvider(baseURL string, client *http.Client) Resolver {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &httpProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Initialize probes the service so misconfiguration fails before the row
// loop starts rather than on the first key.
func (p *httpProvider) Initialize(ctx context.Context) error {
	if _, err := p.get(ctx, p.baseURL+"/v1/groups?key="); err != nil {
		return fmt.Errorf("membership service not reachable: %w", err)
	}
	return nil
}

func (p *httpProvider) GroupsForKey(ctx context.Context, key string) ([]GroupID, error) {
	body, err := p.get(ctx, p.baseURL+"/v1/groups?key="+url.QueryEscape(key))
	if err != nil {
		return nil, fmt.Errorf("lookup groups for key %q: %w", key, err)
	}

	var resp struct {
		Groups []GroupID `json:"groups"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode groups response for key %q: %w", key, err)
	}
	return resp.Groups, nil
}

func (p *httpProvider) GroupInfo(ctx context.Context, id GroupID) (GroupInfo, error) {
	body, err := p.get(ctx, p.baseURL+"/v1/groups/"+url.PathEscape(string(id)))
	if err != nil {
		return GroupInfo{}, fmt.Errorf("lookup group info for %s: %w", id, err)
	}

	var info GroupInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return GroupInfo{}, fmt.Errorf("decode group info for %s: %w", id, err)
	}
	if info.ID == "" {
		info.ID = id
	}
	return info, nil
}

func (p *httpProvider) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrUnknownGroup
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, u)
	}

	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}
