package dto

import (
	"errors"

	"github.com/openincentives/matchengine/pkg/types"
)

// IngestOrganizationsRequest carries candidate organizations to index.
type IngestOrganizationsRequest struct {
	Organizations []*types.Organization `json:"organizations" binding:"required"`
}

// Validate performs validation on IngestOrganizationsRequest
func (r *IngestOrganizationsRequest) Validate() error {
	if len(r.Organizations) == 0 {
		return errors.New("organizations array cannot be empty")
	}
	for _, org := range r.Organizations {
		if org == nil {
			return errors.New("organizations array cannot contain null entries")
		}
		if err := org.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// MatchRequest carries one funding program to rank the pool against.
type MatchRequest struct {
	Program *types.Program `json:"program" binding:"required"`
}

// Validate performs validation on MatchRequest
func (r *MatchRequest) Validate() error {
	if r.Program == nil {
		return errors.New("program is required")
	}
	return r.Program.Validate()
}

// BatchMatchRequest carries several programs for one batch run.
type BatchMatchRequest struct {
	Programs []*types.Program `json:"programs" binding:"required"`
}

// Validate performs validation on BatchMatchRequest
func (r *BatchMatchRequest) Validate() error {
	if len(r.Programs) == 0 {
		return errors.New("programs array cannot be empty")
	}
	for _, program := range r.Programs {
		if program == nil {
			return errors.New("programs array cannot contain null entries")
		}
		if err := program.Validate(); err != nil {
			return err
		}
	}
	return nil
}
