package matchengine

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/openincentives/matchengine/pkg/alert"
	"github.com/openincentives/matchengine/pkg/checkpoint"
	"github.com/openincentives/matchengine/pkg/config"
	"github.com/openincentives/matchengine/pkg/types"
)

var (
	programsPath string
	orgsPath     string
	outputPath   string
	exportLedger string
	resumeDir    string
	showCosts    bool
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank candidate organizations against funding programs",
	Long: `Runs the full ranking pipeline for every program in the input file:
semantic retrieval over the organization pool, deterministic rubric
scoring, and generative re-ranking, fused into a final ordered list.

Results are written as a JSON array of match runs, one per program.`,
	RunE: runMatch,
}

func init() {
	matchCmd.Flags().StringVar(&programsPath, "programs", "", "path to a JSON array of funding programs (required)")
	matchCmd.Flags().StringVar(&orgsPath, "organizations", "", "path to a JSON array of candidate organizations (required)")
	matchCmd.Flags().StringVarP(&outputPath, "output", "o", "", "write results to this file instead of stdout")
	matchCmd.Flags().StringVar(&exportLedger, "export-ledger", "", "write the cost ledger to this parquet file")
	matchCmd.Flags().StringVar(&resumeDir, "resume-dir", "", "checkpoint directory; completed programs are skipped on rerun")
	matchCmd.Flags().BoolVar(&showCosts, "show-costs", false, "print aggregated cost statistics to stderr")
	matchCmd.MarkFlagRequired("programs")
	matchCmd.MarkFlagRequired("organizations")
	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var programs []*types.Program
	if err := readJSONFile(programsPath, &programs); err != nil {
		return fmt.Errorf("reading programs: %w", err)
	}
	var orgs []*types.Organization
	if err := readJSONFile(orgsPath, &orgs); err != nil {
		return fmt.Errorf("reading organizations: %w", err)
	}
	if len(programs) == 0 {
		return fmt.Errorf("no programs in %s", programsPath)
	}

	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.close()

	var checkpoints *checkpoint.Store
	if resumeDir != "" {
		checkpoints, err = checkpoint.NewStore(resumeDir)
		if err != nil {
			return fmt.Errorf("opening checkpoint store: %w", err)
		}
	}

	resumed, pending, err := splitResumable(checkpoints, programs, eng.logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if err := eng.matcher.AddCandidates(ctx, orgs); err != nil {
		return fmt.Errorf("indexing organizations: %w", err)
	}
	eng.logger.Info("candidate pool indexed",
		"organizations", eng.matcher.CandidateCount(),
		"programs", len(pending),
		"resumed", len(resumed))

	runs, err := eng.matcher.MatchAll(ctx, pending)
	if err != nil {
		// Partial failures leave nil slots in runs; report but still
		// emit whatever completed.
		eng.logger.Error("some match runs failed", "error", err)
	}

	completed := resumed
	for i, run := range runs {
		recordCheckpoint(checkpoints, pending[i].ID, run, eng.logger)
		if run != nil {
			completed = append(completed, run)
		}
	}
	if err := writeResults(completed); err != nil {
		return err
	}

	if exportLedger != "" {
		if err := eng.tracker.ExportParquet(exportLedger); err != nil {
			return fmt.Errorf("exporting ledger: %w", err)
		}
		eng.logger.Info("cost ledger exported", "path", exportLedger)
	}
	if showCosts {
		printCostStats(eng)
	}

	watcher := alert.NewBudgetWatcher(alert.NewEmailAlerter(cfg.Alert), cfg.Alert.BudgetUSD)
	if exceeded, alertErr := watcher.Check(eng.matcher.CostStats()); exceeded {
		eng.logger.Warn("API spend budget exceeded",
			"budget_usd", cfg.Alert.BudgetUSD,
			"total_cost", eng.matcher.CostStats().TotalCost)
		if alertErr != nil {
			eng.logger.Warn("failed to send budget alert", "error", alertErr)
		}
	}

	if len(completed) < len(programs) {
		return fmt.Errorf("%d of %d match runs failed", len(programs)-len(completed), len(programs))
	}
	return nil
}

// splitResumable partitions programs into runs already completed in a
// previous invocation and those still pending. A nil store leaves all
// programs pending.
func splitResumable(store *checkpoint.Store, programs []*types.Program, log *slog.Logger) ([]*types.MatchRun, []*types.Program, error) {
	if store == nil {
		return nil, programs, nil
	}

	var resumed []*types.MatchRun
	var pending []*types.Program
	for _, program := range programs {
		cp, err := store.Load(program.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("loading checkpoint for %s: %w", program.ID, err)
		}
		if cp != nil && cp.Status == checkpoint.StatusCompleted && cp.Run != nil {
			log.Info("skipping completed program", "target_id", program.ID)
			resumed = append(resumed, cp.Run)
			continue
		}
		pending = append(pending, program)
	}
	return resumed, pending, nil
}

// recordCheckpoint persists the outcome of one run. Checkpoint write
// failures are logged but never fail the batch.
func recordCheckpoint(store *checkpoint.Store, targetID string, run *types.MatchRun, log *slog.Logger) {
	if store == nil {
		return
	}
	cp, err := store.Load(targetID)
	if err != nil || cp == nil {
		cp = checkpoint.NewRunCheckpoint(targetID)
	}
	if run != nil {
		cp.MarkCompleted(run)
	} else {
		cp.MarkFailed(errors.New("match run failed"))
	}
	if err := store.Save(cp); err != nil {
		log.Warn("failed to save checkpoint", "target_id", targetID, "error", err)
	}
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeResults(runs []*types.MatchRun) error {
	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	data = append(data, '\n')
	if outputPath == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(outputPath, data, 0o644)
}

func printCostStats(eng *engine) {
	stats := eng.matcher.CostStats()
	fmt.Fprintf(os.Stderr, "External calls: %d (cache hits: %d, hit rate: %.1f%%)\n",
		stats.TotalCalls, stats.CacheHits, stats.HitRate*100)
	fmt.Fprintf(os.Stderr, "Total cost: $%.6f (estimated savings from cache: $%.6f)\n",
		stats.TotalCost, stats.EstSavings)
	for _, ts := range stats.PerType {
		fmt.Fprintf(os.Stderr, "  %-18s calls=%d in=%d out=%d cost=$%.6f\n",
			ts.Type, ts.CallCount, ts.TotalInputUnits, ts.TotalOutputUnits, ts.TotalCost)
	}
	if stats.FailureCount > 0 {
		fmt.Fprintf(os.Stderr, "Failed operations: %d\n", stats.FailureCount)
	}
}
