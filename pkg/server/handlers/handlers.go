// Package handlers implements the HTTP API endpoints.
package handlers

import (
	"context"

	"github.com/openincentives/matchengine/pkg/costs"
	"github.com/openincentives/matchengine/pkg/types"
)

// Engine is the matcher surface the handlers operate on.
type Engine interface {
	AddCandidates(ctx context.Context, orgs []*types.Organization) error
	RemoveCandidate(id string)
	CandidateCount() int
	Match(ctx context.Context, target *types.Program) (*types.MatchRun, error)
	MatchAll(ctx context.Context, targets []*types.Program) ([]*types.MatchRun, error)
	CostStats() costs.Stats
}
