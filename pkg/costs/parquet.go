package costs

import (
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"
)

// ledgerRow is the flat Parquet schema for one ledger entry.
type ledgerRow struct {
	ID           string    `parquet:"id"`
	Timestamp    time.Time `parquet:"timestamp"`
	Type         string    `parquet:"operation_type"`
	Model        string    `parquet:"model"`
	TargetID     string    `parquet:"target_id"`
	InputTokens  int64     `parquet:"input_tokens"`
	OutputTokens int64     `parquet:"output_tokens"`
	Cost         float64   `parquet:"cost_usd"`
	CacheHit     bool      `parquet:"cache_hit"`
	Success      bool      `parquet:"success"`
	Error        string    `parquet:"error"`
}

// ExportParquet writes the full ledger to a Parquet file for the external
// reporting collaborator.
func (t *Tracker) ExportParquet(path string) error {
	ops := t.Ledger()
	rows := make([]ledgerRow, len(ops))
	for i, op := range ops {
		rows[i] = ledgerRow{
			ID:           op.ID,
			Timestamp:    op.Timestamp,
			Type:         string(op.Type),
			Model:        op.Model,
			TargetID:     op.TargetID,
			InputTokens:  int64(op.InputTokens),
			OutputTokens: int64(op.OutputTokens),
			Cost:         op.Cost,
			CacheHit:     op.CacheHit,
			Success:      op.Success,
			Error:        op.Error,
		}
	}

	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("write cost ledger parquet: %w", err)
	}
	return nil
}
