// Package rating keeps a company's cached average_rating and total_reviews
// equal to the aggregate of its reviews.
package rating

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/kirinyoku/travelgo/internal/domain"
	"github.com/kirinyoku/travelgo/internal/repository"
)

var ErrCompanyNotFound = domain.Errorf(domain.ErrNotFound, "company not found")

// Aggregate returns the mean of ratings rounded to one decimal place and
// their count. No ratings yields (0, 0).
func Aggregate(ratings []int) (float64, int) {
	if len(ratings) == 0 {
		return 0, 0
	}

	sum := 0
	for _, r := range ratings {
		sum += r
	}

	mean := float64(sum) / float64(len(ratings))
	return math.Round(mean*10) / 10, len(ratings)
}

// Recompute rescans the company's reviews and writes the aggregate back.
// It must run inside the transaction that changed the reviews; the company
// row is locked first so concurrent recomputations for the same company
// serialize and the last writer always sees every committed review.
func Recompute(ctx context.Context, tx repository.Repos, companyID uuid.UUID) (float64, int, error) {
	const op = "service.rating.Recompute"

	if err := tx.Companies().Lock(ctx, companyID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, 0, fmt.Errorf("%s:%w", op, ErrCompanyNotFound)
		}
		return 0, 0, fmt.Errorf("%s:%w", op, err)
	}

	ratings, err := tx.Reviews().RatingsByCompany(ctx, companyID)
	if err != nil {
		return 0, 0, fmt.Errorf("%s:%w", op, err)
	}

	avg, total := Aggregate(ratings)

	if err := tx.Companies().SetRating(ctx, companyID, avg, total); err != nil {
		return 0, 0, fmt.Errorf("%s:%w", op, err)
	}

	return avg, total, nil
}
