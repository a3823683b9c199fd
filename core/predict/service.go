package predict

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
)

type (
	// Repository lists graded pairs joined with student and subject names.
	// Missing scores come back as 0; Composite is the stored value.
	Repository interface {
		QueryScoreRows(ctx context.Context, filter Filter) ([]Row, error)
	}

	Service struct {
		repo   Repository
		scorer *Scorer
	}
)

func NewService(repo Repository, scorer *Scorer) *Service {
	return &Service{repo: repo, scorer: scorer}
}

// Rows returns the score table with composites rounded to 2 decimals.
func (svc *Service) Rows(ctx context.Context, filter Filter) ([]Row, error) {
	rows, err := svc.repo.QueryScoreRows(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying score rows")
	}
	for i := range rows {
		rows[i].Composite = core.Round(rows[i].Composite, 2)
	}
	return rows, nil
}

// Analyze returns the score table augmented with tiers and fail risks.
func (svc *Service) Analyze(ctx context.Context, filter Filter) ([]Row, error) {
	rows, err := svc.Rows(ctx, filter)
	if err != nil {
		return nil, err
	}
	return svc.scorer.Score(rows), nil
}
