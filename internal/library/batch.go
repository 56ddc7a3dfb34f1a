package library

import (
	"context"
	"errors"
	"fmt"
)

// BatchSummary counts the outcome of a batch run.
type BatchSummary struct {
	Total     int     `yaml:"total"`
	Succeeded int     `yaml:"succeeded"`
	Failed    int     `yaml:"failed"`
	FailedIDs []int64 `yaml:"failed_ids,omitempty"`
}

// UpdateMissingCovers tries to find a cover for every book without one.
// With refresh the whole record is rebuilt from the sources first.
// A book counts as succeeded when it ends up with a cover. On cancellation
// the summary so far is returned with the context error.
func (s *Service) UpdateMissingCovers(ctx context.Context, refresh bool) (BatchSummary, error) {
	ids, err := s.books.BookIDsMissingCover(ctx)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("listing books without cover: %w", err)
	}

	summary := BatchSummary{Total: len(ids)}
	if len(ids) == 0 {
		s.logger.Info("No books without cover")
		return summary, nil
	}

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("Cover batch interrupted", "processed", i, "total", len(ids))
			return summary, err
		}

		s.logger.Debug("Getting cover", "id", id, "number", i+1, "total", len(ids))
		if err := s.updateCover(ctx, id, refresh); err != nil {
			summary.Failed++
			summary.FailedIDs = append(summary.FailedIDs, id)
			s.logger.Debug("Cover not added", "id", id, "error", err)
			continue
		}
		summary.Succeeded++
	}

	s.logger.Info("Cover batch completed",
		"total", summary.Total,
		"covers_found", summary.Succeeded,
		"covers_not_found", summary.Failed)
	return summary, nil
}

var errNoCover = errors.New("no cover found")

func (s *Service) updateCover(ctx context.Context, id int64, refresh bool) error {
	record, err := s.books.GetBook(ctx, id)
	if err != nil {
		return err
	}
	if record.ISBN == "" {
		return fmt.Errorf("book %d has no ISBN", id)
	}

	if refresh {
		newID, err := s.AddOrUpdateBook(ctx, record.ISBN)
		if err != nil {
			return err
		}
		refreshed, err := s.books.GetBook(ctx, newID)
		if err != nil {
			return err
		}
		if !refreshed.HasCover() {
			return errNoCover
		}
		return nil
	}

	if !s.attachCover(ctx, record) {
		return errNoCover
	}
	record.UpdatedAt = s.now().UTC()
	if _, err := s.books.SaveBook(ctx, record); err != nil {
		return fmt.Errorf("saving book %d: %w", id, err)
	}
	return nil
}
