package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/phylo-tools/strainfilter/internal/config"
	"github.com/phylo-tools/strainfilter/internal/filter"
	"github.com/phylo-tools/strainfilter/internal/metadata"
	"github.com/phylo-tools/strainfilter/internal/model"
	"github.com/phylo-tools/strainfilter/internal/query"
	"github.com/phylo-tools/strainfilter/internal/report"
	"github.com/phylo-tools/strainfilter/internal/store"
)

var (
	filterMetadata  string
	filterIDColumns []string

	filterGroupBy  []string
	filterTotal    int
	filterPerGroup int
	filterSeed     int64

	filterMinDate    string
	filterMaxDate    string
	filterDateColumn string

	filterExclude      []string
	filterInclude      []string
	filterForceInclude []string

	filterQuery    string
	filterQuality  []string
	filterPriority string

	filterOutputIDs    string
	filterOutputReport string
	filterFormat       string

	filterEmptyOutput    string
	filterCacheDecisions bool
	filterSaveRun        bool
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Filter and subsample a metadata file",
	Long:  "Applies exclusion, inclusion, date, query, and quality predicates to every record, then optionally subsamples the survivors across groups to a target size.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		opts, err := buildFilterOptions(cmd)
		if err != nil {
			return err
		}

		source, err := openSource(filterMetadata, filterIDColumns)
		if err != nil {
			return err
		}

		var evaluator filter.QueryEvaluator
		if opts.Query != "" {
			evaluator, err = query.Compile(opts.Query)
			if err != nil {
				return err
			}
		}

		var policy filter.PriorityPolicy
		if filterPriority != "" {
			scores, err := metadata.ReadPriorityScores(filterPriority)
			if err != nil {
				return err
			}
			policy = filter.NewScorePolicy(scores)
		}

		format, err := report.ParseFormat(filterFormat)
		if err != nil {
			return err
		}

		engine, err := filter.NewEngine(opts, source, evaluator, policy)
		if err != nil {
			return err
		}

		var st store.Store
		var run *model.FilterRun
		if filterSaveRun {
			st, run, err = beginRun(ctx, filterMetadata, opts)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
		}

		outcome, err := engine.Run(ctx)
		if err != nil {
			if run != nil {
				if ferr := st.FailRun(ctx, run.ID, err.Error()); ferr != nil {
					zap.L().Warn("record failed run", zap.Error(ferr))
				}
			}
			return err
		}

		if run != nil {
			if err := st.CompleteRun(ctx, run.ID, outcome); err != nil {
				zap.L().Warn("record completed run", zap.Error(err))
			}
		}

		return writeOutputs(outcome, format)
	},
}

// buildFilterOptions assembles the per-run options from flags, loading the
// identifier list files up front so missing files fail before streaming.
func buildFilterOptions(cmd *cobra.Command) (*config.FilterOptions, error) {
	opts := &config.FilterOptions{
		GroupBy:           filterGroupBy,
		SubsampleTotal:    filterTotal,
		SubsamplePerGroup: filterPerGroup,
		Seed:              filterSeed,
		Seeded:            cmd.Flags().Changed("seed"),
		MinDate:           filterMinDate,
		MaxDate:           filterMaxDate,
		Query:             filterQuery,
		DateColumn:        filterDateColumn,
		EmptyOutput:       config.EmptyOutputPolicy(filterEmptyOutput),
		CacheDecisions:    filterCacheDecisions,
	}

	var err error
	if opts.ExcludeIDs, err = loadIDFiles(filterExclude); err != nil {
		return nil, err
	}
	if opts.IncludeIDs, err = loadIDFiles(filterInclude); err != nil {
		return nil, err
	}
	if opts.ForceIncludeIDs, err = loadIDFiles(filterForceInclude); err != nil {
		return nil, err
	}

	if len(filterQuality) > 0 {
		opts.QualityThresholds = make(map[string]float64, len(filterQuality))
		for _, spec := range filterQuality {
			key, valStr, ok := strings.Cut(spec, "=")
			if !ok {
				return nil, eris.Wrapf(config.ErrInvalid, "quality threshold %q (want min:<column>=<bound>)", spec)
			}
			val, err := strconv.ParseFloat(valStr, 64)
			if err != nil {
				return nil, eris.Wrapf(config.ErrInvalid, "quality threshold %q: bad bound %q", spec, valStr)
			}
			opts.QualityThresholds[key] = val
		}
	}

	return opts, nil
}

// loadIDFiles reads and unions identifier lists from several files.
func loadIDFiles(paths []string) (map[string]bool, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	ids := make(map[string]bool)
	for _, path := range paths {
		set, err := metadata.ReadIDFile(path)
		if err != nil {
			return nil, err
		}
		for id := range set {
			ids[id] = true
		}
	}
	return ids, nil
}

// openSource picks the source type from the file extension.
func openSource(path string, idColumns []string) (metadata.Source, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return metadata.NewXLSX(path, idColumns)
	}
	return metadata.NewTabular(path, idColumns)
}

// beginRun opens the run-history store and records the start of this run.
func beginRun(ctx context.Context, metadataPath string, opts *config.FilterOptions) (store.Store, *model.FilterRun, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, nil, err
	}

	optJSON, err := json.Marshal(opts)
	if err != nil {
		st.Close() //nolint:errcheck
		return nil, nil, eris.Wrap(err, "marshal options")
	}

	run, err := st.CreateRun(ctx, metadataPath, optJSON)
	if err != nil {
		st.Close() //nolint:errcheck
		return nil, nil, err
	}
	return st, run, nil
}

// writeOutputs writes the kept identifiers and the report concurrently. The
// id list goes to stdout when no path is given; the report goes to stderr so
// the two never interleave.
func writeOutputs(outcome *model.Outcome, format report.Format) error {
	var g errgroup.Group

	g.Go(func() error {
		if filterOutputIDs == "" || filterOutputIDs == "-" {
			return writeIDs(os.Stdout, outcome.Kept)
		}
		f, err := os.Create(filterOutputIDs)
		if err != nil {
			return eris.Wrap(err, "create id output")
		}
		defer f.Close() //nolint:errcheck
		return writeIDs(f, outcome.Kept)
	})

	g.Go(func() error {
		if filterOutputReport == "" {
			return report.Write(os.Stderr, outcome, format)
		}
		f, err := os.Create(filterOutputReport)
		if err != nil {
			return eris.Wrap(err, "create report output")
		}
		defer f.Close() //nolint:errcheck
		if err := report.Write(f, outcome, format); err != nil {
			return err
		}
		if format == report.FormatText {
			return report.WriteGroups(f, outcome)
		}
		return nil
	})

	return g.Wait()
}

func writeIDs(f *os.File, ids []string) error {
	for _, id := range ids {
		if _, err := fmt.Fprintln(f, id); err != nil {
			return eris.Wrap(err, "write ids")
		}
	}
	return nil
}

func init() {
	filterCmd.Flags().StringVar(&filterMetadata, "metadata", "", "metadata file (.tsv, .csv, or .xlsx) (required)")
	filterCmd.Flags().StringSliceVar(&filterIDColumns, "id-column", nil, "identifier column candidates, in priority order (default strain, name)")

	filterCmd.Flags().StringSliceVar(&filterGroupBy, "group-by", nil, "grouping columns; year, month, and week derive from the date column")
	filterCmd.Flags().IntVar(&filterTotal, "subsample-total", 0, "target total output size, spread across groups")
	filterCmd.Flags().IntVar(&filterPerGroup, "subsample-per-group", 0, "fixed keep-count per group")
	filterCmd.Flags().Int64Var(&filterSeed, "seed", 0, "random seed for reproducible subsampling")

	filterCmd.Flags().StringVar(&filterMinDate, "min-date", "", "drop records dated strictly before this date")
	filterCmd.Flags().StringVar(&filterMaxDate, "max-date", "", "drop records dated strictly after this date")
	filterCmd.Flags().StringVar(&filterDateColumn, "date-column", "date", "metadata column holding collection dates")

	filterCmd.Flags().StringSliceVar(&filterExclude, "exclude", nil, "file(s) of identifiers to drop")
	filterCmd.Flags().StringSliceVar(&filterInclude, "include", nil, "file(s) of identifiers; records outside the union are dropped")
	filterCmd.Flags().StringSliceVar(&filterForceInclude, "force-include", nil, "file(s) of identifiers kept regardless of all other filters")

	filterCmd.Flags().StringVar(&filterQuery, "query", "", "ad-hoc predicate, e.g. \"region == Europe and coverage >= 0.9\"")
	filterCmd.Flags().StringSliceVar(&filterQuality, "quality", nil, "numeric bound, e.g. min:coverage=0.9 or max:missing=100")
	filterCmd.Flags().StringVar(&filterPriority, "priority", "", "TSV of id<TAB>score ranking records within groups")

	filterCmd.Flags().StringVar(&filterOutputIDs, "output-ids", "-", "kept identifier list output (- for stdout)")
	filterCmd.Flags().StringVar(&filterOutputReport, "output-report", "", "report output file (default stderr)")
	filterCmd.Flags().StringVar(&filterFormat, "format", "text", "report format: text, json, or yaml")

	filterCmd.Flags().StringVar(&filterEmptyOutput, "empty-output", "fail", "empty-result policy: fail, warn, or allow")
	filterCmd.Flags().BoolVar(&filterCacheDecisions, "cache-decisions", false, "keep pass-1 verdicts in memory instead of re-evaluating in pass 2")
	filterCmd.Flags().BoolVar(&filterSaveRun, "save-run", false, "record this run in the run-history store")

	_ = filterCmd.MarkFlagRequired("metadata")
	rootCmd.AddCommand(filterCmd)
}
