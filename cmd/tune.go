package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/adi64/hyrise/plancache"
	"github.com/adi64/hyrise/planner"
	"github.com/adi64/hyrise/statistics"
	"github.com/adi64/hyrise/storage"
	"github.com/adi64/hyrise/tuning"
	tuningindex "github.com/adi64/hyrise/tuning/index"
	"github.com/adi64/hyrise/utils"
)

type tuneCmdOpt struct {
	schemaPath    string
	dataPath      string
	workloadPath  string
	memoryBudget  float64
	maxNewIndexes int
	indexType     string
	confidenceTie bool
	maintenance   float64
	passes        int
	chunkCapacity uint
	walkBudget    time.Duration
	outputPath    string
}

// NewTuneCmd creates the command running tuning passes over a workload.
func NewTuneCmd() *cobra.Command {
	var opt tuneCmdOpt
	var logLevel string
	cmd := &cobra.Command{
		Use:   "tune",
		Short: "run index tuning passes over the specified workload",
		Long:  `load a schema and workload into the in-process engine, then run index tuning passes and apply the resulting index changes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			utils.SetLogLevel(logLevel)

			catalog := storage.NewCatalog()
			if err := loadSchema(catalog, opt.schemaPath, opt.chunkCapacity); err != nil {
				return err
			}
			if opt.dataPath != "" {
				if err := loadData(catalog, opt.dataPath); err != nil {
					return err
				}
			}

			queries, err := planner.LoadWorkload(opt.workloadPath)
			if err != nil {
				return err
			}

			defaultType, err := storage.ParseIndexType(opt.indexType)
			if err != nil {
				return err
			}

			cache := plancache.NewPlanCache(0)
			stats := statistics.New(catalog)
			env := &tuningindex.TuningContext{
				Catalog:     catalog,
				Statistics:  stats,
				Cache:       cache,
				Invalidator: cache,
			}
			evaluatorOpts := []tuningindex.EvaluatorOption{
				tuningindex.WithDefaultIndexType(defaultType),
			}
			if opt.maintenance > 0 {
				evaluatorOpts = append(evaluatorOpts, tuningindex.WithMaintenanceCostWeight(opt.maintenance))
			}
			selector := &tuning.GreedySelector{
				ConfidenceTiebreak: opt.confidenceTie,
				MaxAccepts:         opt.maxNewIndexes,
			}
			tuner := tuning.NewTuner(selector, tuning.Config{
				MemoryBudget:       opt.memoryBudget,
				EvaluateTimeBudget: opt.walkBudget,
			})
			tuner.AddEvaluator(tuningindex.NewEvaluator(env, evaluatorOpts...))

			builder := planner.NewBuilder(catalog)
			ctx := context.Background()
			for pass := 1; pass <= opt.passes; pass++ {
				// applied operations clear the cache, so each pass replays
				// the workload into it
				if err := populateCache(builder, cache, queries); err != nil {
					return err
				}
				report, err := tuner.Execute(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("pass %d: %d access records, %d candidates, %d creates, %d drops, memory %.2f -> %.2f MiB\n",
					pass, report.AccessRecords, report.Candidates, report.Creates, report.Drops,
					report.MemoryBefore, report.MemoryAfter)
				if report.Creates == 0 && report.Drops == 0 {
					break
				}
			}

			summary := formatIndexes(catalog)
			fmt.Print(summary)
			if opt.outputPath != "" {
				if err := utils.SaveContentTo(opt.outputPath, summary); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opt.schemaPath, "schema-path", "", "file holding the CREATE TABLE statements")
	cmd.Flags().StringVar(&opt.dataPath, "data-path", "", "directory holding <table>.csv data files")
	cmd.Flags().StringVar(&opt.workloadPath, "workload-path", "", "workload file or directory of *.sql files")
	cmd.Flags().Float64Var(&opt.memoryBudget, "memory-budget", tuning.Unbounded, "index memory budget in MiB")
	cmd.Flags().IntVar(&opt.maxNewIndexes, "max-new-indexes", 0, "max number of indexes created per pass, 0 means no limit")
	cmd.Flags().StringVar(&opt.indexType, "default-index-type", storage.IndexGroupKey.String(), "index type proposed for new indexes")
	cmd.Flags().BoolVar(&opt.confidenceTie, "confidence-tiebreak", true, "break saved-work ties by evaluator confidence")
	cmd.Flags().Float64Var(&opt.maintenance, "maintenance-cost-weight", 0, "per-row maintenance penalty subtracted from saved work")
	cmd.Flags().IntVar(&opt.passes, "passes", 1, "number of tuning passes to run")
	cmd.Flags().UintVar(&opt.chunkCapacity, "chunk-capacity", 0, "rows per chunk, 0 uses the storage default")
	cmd.Flags().DurationVar(&opt.walkBudget, "walk-time-budget", 0, "soft time budget for the cache walk, 0 means no limit")
	cmd.Flags().StringVar(&opt.outputPath, "output-path", "", "also save the final index summary to this file")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level")
	return cmd
}

func populateCache(builder *planner.Builder, cache *plancache.PlanCache, queries []planner.WorkloadQuery) error {
	for _, q := range queries {
		for i := uint64(0); i < q.Frequency; i++ {
			if _, ok := cache.Get(q.SQL); ok {
				continue
			}
			logical, err := builder.BuildLogicalPlan(q.SQL)
			if err != nil {
				utils.Warningf("skipping workload query %q: %v", q.SQL, err)
				break
			}
			cache.Put(q.SQL, &plancache.CachedPlan{
				SQL:      q.SQL,
				Logical:  logical,
				Physical: planner.TranslatePhysical(logical, false),
			})
		}
	}
	return nil
}

func formatIndexes(catalog *storage.Catalog) string {
	content := "===================== live indexes =====================\n"
	for _, tableName := range catalog.TableNames() {
		infos, err := catalog.Indexes(tableName)
		utils.Must(err, tableName)
		table, err := catalog.Table(tableName)
		utils.Must(err, tableName)
		for _, info := range infos {
			names := make([]string, 0, len(info.ColumnIDs))
			for _, id := range info.ColumnIDs {
				names = append(names, table.ColumnName(id))
			}
			content += fmt.Sprintf("  %v(%v) %v, %.2f MiB\n", tableName, names, info.Type,
				float64(info.MemoryConsumption)/(1<<20))
		}
	}
	return content
}
