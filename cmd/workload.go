package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adi64/hyrise/plancache"
	"github.com/adi64/hyrise/planner"
	"github.com/adi64/hyrise/storage"
	"github.com/adi64/hyrise/utils"
)

type workloadCmdOpt struct {
	schemaPath    string
	workloadPath  string
	chunkCapacity uint
}

// NewWorkloadCmd creates the command inspecting a workload: it plans every
// statement, fills the plan cache, and prints the entries in tuning order.
func NewWorkloadCmd() *cobra.Command {
	var opt workloadCmdOpt
	var logLevel string
	cmd := &cobra.Command{
		Use:   "workload",
		Short: "plan the specified workload and print its cache entries",
		Long:  `plan all statements of the specified workload, fill the plan cache, and print the entries in the priority order a tuning pass would walk them`,
		RunE: func(cmd *cobra.Command, args []string) error {
			utils.SetLogLevel(logLevel)

			catalog := storage.NewCatalog()
			if err := loadSchema(catalog, opt.schemaPath, opt.chunkCapacity); err != nil {
				return err
			}
			queries, err := planner.LoadWorkload(opt.workloadPath)
			if err != nil {
				return err
			}

			cache := plancache.NewPlanCache(0)
			builder := planner.NewBuilder(catalog)
			if err := populateCache(builder, cache, queries); err != nil {
				return err
			}

			fmt.Printf("%d workload queries, %d cache entries\n", len(queries), cache.Size())
			for _, entry := range cache.Values() {
				fmt.Printf("  freq=%-6d prio=%-10.4g nodes=%-3d %s\n",
					entry.Frequency, entry.Priority, entry.Value.Logical.Len(), entry.Value.SQL)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opt.schemaPath, "schema-path", "", "file holding the CREATE TABLE statements")
	cmd.Flags().StringVar(&opt.workloadPath, "workload-path", "", "workload file or directory of *.sql files")
	cmd.Flags().UintVar(&opt.chunkCapacity, "chunk-capacity", 0, "rows per chunk, 0 uses the storage default")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level")
	return cmd
}
