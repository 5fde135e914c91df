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
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type groupConfig struct {
	ID          GroupID  `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Keys        []string `yaml:"keys"`
}

type fileConfig struct {
	Groups []groupConfig `yaml:"groups"`
}

// fileProvider resolves membership from a static yaml document. Lookup
// state is built once in Initialize; lookups after that are pure map hits.
type fileProvider struct {
	config      fileConfig
	byKey       map[string][]GroupID
	infos       map[GroupID]GroupInfo
	initialized bool
}

var _ Resolver = (*fileProvider)(nil)

// NewFileProvider loads membership data from the named yaml file. A
// filename of the form "env:VAR" reads the document from that environment
// variable instead.
func NewFileProvider(filename string) (Resolver, error) {
	if after, ok := strings.CutPrefix(filename, "env:"); ok {
		contents := os.Getenv(after)
		if contents == "" {
			return nil, fmt.Errorf("environment variable %s is not set", after)
		}
		return newFileProviderFromContents(filename, []byte(contents))
	}

	contents, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read membership config from file %s: %w", filename, err)
	}

	return newFileProviderFromContents(filename, contents)
}

func newFileProviderFromContents(filename string, contents []byte) (Resolver, error) {
	var config fileConfig

	dec := yaml.NewDecoder(bytes.NewReader(contents))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal membership config from file %s: %w", filename, err)
	}

	for i, group := range config.Groups {
		if group.ID == "" {
			return nil, fmt.Errorf("membership config %s: group %d has no id", filename, i)
		}
	}

	return &fileProvider{config: config}, nil
}

func (p *fileProvider) Initialize(ctx context.Context) error {
	if p.initialized {
		return nil
	}

	p.byKey = make(map[string][]GroupID)
	p.infos = make(map[GroupID]GroupInfo, len(p.config.Groups))

	for _, group := range p.config.Groups {
		p.infos[group.ID] = GroupInfo{
			ID:          group.ID,
			Name:        group.Name,
			Description: group.Description,
		}
		for _, key := range group.Keys {
			p.byKey[key] = append(p.byKey[key], group.ID)
		}
	}

	p.initialized = true
	return nil
}

func (p *fileProvider) GroupsForKey(ctx context.Context, key string) ([]GroupID, error) {
	if !p.initialized {
		return nil, ErrNotInitialized
	}
	return p.byKey[key], nil
}

func (p *fileProvider) GroupInfo(ctx context.Context, id GroupID) (GroupInfo, error) {
	if !p.initialized {
		return GroupInfo{}, ErrNotInitialized
	}
	info, ok := p.infos[id]
	if !ok {
		return GroupInfo{}, fmt.Errorf("%w: %s", ErrUnknownGroup, id)
	}
	return info, nil
}
