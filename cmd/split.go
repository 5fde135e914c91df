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

package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"

	"github.com/cardinalhq/groupsplit/config"
	"github.com/cardinalhq/groupsplit/internal/logctx"
	"github.com/cardinalhq/groupsplit/internal/membership"
	"github.com/cardinalhq/groupsplit/internal/splitter"
)

type splitOptions struct {
	input         string
	headers       []string
	outputDir     string
	inputFormat   string
	outputFormat  string
	keyColumn     int
	groupsFile    string
	membershipURL string
	cacheTTL      time.Duration
	noCache       bool
}

func init() {
	opts := &splitOptions{}

	cmd := &cobra.Command{
		Use:   "split",
		Short: "Split one input file into per-group output files",
		RunE: func(_ *cobra.Command, _ []string) error {
			servicename := "groupsplit-split"
			doneCtx, doneFx, err := setupTelemetry(servicename, nil)
			if err != nil {
				return fmt.Errorf("failed to setup telemetry: %w", err)
			}
			defer func() {
				if err := doneFx(); err != nil {
					logctx.FromContext(doneCtx).Error("telemetry shutdown failed", "error", err.Error())
				}
			}()
			return runSplit(doneCtx, opts)
		},
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().StringVar(&opts.input, "input", "", "input file to split (required)")
	_ = cmd.MarkFlagRequired("input")
	cmd.Flags().StringSliceVar(&opts.headers, "headers", nil, "output column headers, comma separated (required)")
	_ = cmd.MarkFlagRequired("headers")
	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "", "directory for per-group output files")
	cmd.Flags().StringVar(&opts.inputFormat, "format", "", "input format: csv or parquet")
	cmd.Flags().StringVar(&opts.outputFormat, "output-format", "", "output format: csv or parquet")
	cmd.Flags().IntVar(&opts.keyColumn, "key-column", -1, "zero-based index of the partition key column")
	cmd.Flags().StringVar(&opts.groupsFile, "groups-file", "", "YAML group membership file")
	cmd.Flags().StringVar(&opts.membershipURL, "membership-url", "", "base URL of a group membership service")
	cmd.Flags().DurationVar(&opts.cacheTTL, "cache-ttl", 0, "TTL for cached membership lookups")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable membership lookup caching")
}

func runSplit(ctx context.Context, opts *splitOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applySplitDefaults(opts, cfg)

	resolver, cleanup, err := buildResolver(opts, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ll := logctx.FromContext(ctx)
	startTime := time.Now()

	result, err := splitter.Split(ctx, splitter.Config{
		InputPath:    opts.input,
		InputFormat:  opts.inputFormat,
		Headers:      opts.headers,
		KeyColumn:    opts.keyColumn,
		OutputDir:    opts.outputDir,
		OutputFormat: opts.outputFormat,
		Resolver:     resolver,
	})
	if err != nil {
		return err
	}

	runDuration.Record(ctx, time.Since(startTime).Seconds(),
		metric.WithAttributeSet(commonAttributes))

	if !result.Success {
		return errors.New(result.Error)
	}

	for id, out := range result.OutputFiles {
		ll.Info("wrote group output",
			"group", string(id), "file", out.Filename, "rows", out.RowCount)
	}
	for _, ge := range result.GroupErrors {
		ll.Warn("group error during run",
			"group", string(ge.GroupID), "key", ge.Key, "stage", ge.Stage, "error", ge.Error)
	}
	ll.Info("split finished",
		"total_rows", result.TotalRows,
		"matched_rows", result.MatchedRows,
		"groups", len(result.OutputFiles),
		"unmatched_keys", len(result.UnmatchedKeys),
		"group_errors", len(result.GroupErrors))

	if len(result.GroupErrors) > 0 {
		return fmt.Errorf("%d group errors during run", len(result.GroupErrors))
	}
	return nil
}

// applySplitDefaults fills unset flags from the loaded configuration.
func applySplitDefaults(opts *splitOptions, cfg *config.Config) {
	if opts.outputDir == "" {
		opts.outputDir = cfg.Split.OutputDir
	}
	if opts.inputFormat == "" {
		opts.inputFormat = cfg.Split.InputFormat
	}
	if opts.outputFormat == "" {
		opts.outputFormat = cfg.Split.OutputFormat
	}
	if opts.keyColumn < 0 {
		opts.keyColumn = cfg.Split.KeyColumn
	}
	if opts.groupsFile == "" {
		opts.groupsFile = cfg.Membership.File
	}
	if opts.membershipURL == "" {
		opts.membershipURL = cfg.Membership.URL
	}
	if opts.cacheTTL <= 0 {
		opts.cacheTTL = cfg.Membership.CacheTTL
	}
	if !cfg.Membership.CacheEnabled {
		opts.noCache = true
	}
}

// buildResolver picks the membership source: an HTTP service when a URL is
// configured, otherwise a local YAML file. The cleanup func stops the cache
// janitor when caching is enabled.
func buildResolver(opts *splitOptions, cfg *config.Config) (membership.Resolver, func(), error) {
	var inner membership.Resolver
	switch {
	case opts.membershipURL != "":
		inner = membership.NewHTTPProvider(opts.membershipURL, nil)
	case opts.groupsFile != "":
		fp, err := membership.NewFileProvider(opts.groupsFile)
		if err != nil {
			return nil, nil, fmt.Errorf("load groups file: %w", err)
		}
		inner = fp
	default:
		return nil, nil, errors.New("no membership source: set --groups-file or --membership-url")
	}

	if opts.noCache {
		return inner, func() {}, nil
	}

	cached := membership.NewCachedResolver(inner, opts.cacheTTL)
	return cached, cached.Stop, nil
}
