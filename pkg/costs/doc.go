// Package costs records every external call the engine makes, embedding
// and generative alike, with token counts, computed cost, cache hit/miss, and
// success. Aggregated statistics are queryable after a batch of runs and
// the full ledger can be exported to Parquet for the reporting collaborator.
package costs
