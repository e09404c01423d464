package availability

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/faylib/equipment-calendar/internal/model"
)

// WeekSource returns the upstream availability of one group for the 7-day
// window starting at weekStart (YYYY-MM-DD).
type WeekSource interface {
	FetchWeek(ctx context.Context, groupID, weekStart string) (*model.WeekResponse, error)
}

// Fetcher builds AssetAvailability values from weekly upstream windows.
type Fetcher struct {
	source WeekSource
	logger *zap.Logger
}

// NewFetcher returns a Fetcher reading weeks from source.
func NewFetcher(source WeekSource, logger *zap.Logger) *Fetcher {
	if source == nil {
		panic("nil week source passed to NewFetcher")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{source: source, logger: logger}
}

// FetchAsset fetches the five weekly windows of one group from start.
func (f *Fetcher) FetchAsset(ctx context.Context, assetID string, start time.Time) model.AssetAvailability {
	return f.FetchAll(ctx, []string{assetID}, start)[0]
}

// FetchAll dispatches every week of every asset at once and waits for all
// of them to settle.  A failed week is logged and dropped; it never fails
// the asset or the batch.  The result follows the order of assetIDs.
func (f *Fetcher) FetchAll(ctx context.Context, assetIDs []string, start time.Time) []model.AssetAvailability {
	starts := WeekStarts(start)
	weeks := make([][]*model.WeekResponse, len(assetIDs))
	for i := range weeks {
		weeks[i] = make([]*model.WeekResponse, len(starts))
	}

	var g errgroup.Group
	for a, id := range assetIDs {
		for w, ws := range starts {
			a, w, id, date := a, w, id, FormatDate(ws)
			g.Go(func() error {
				week, err := f.source.FetchWeek(ctx, id, date)
				if err != nil {
					f.logger.Warn("week fetch failed, skipping",
						zap.String("asset_id", id),
						zap.String("week_start", date),
						zap.Int("week_index", w),
						zap.Error(err),
					)
					return nil
				}
				weeks[a][w] = week
				return nil
			})
		}
	}
	_ = g.Wait()

	out := make([]model.AssetAvailability, len(assetIDs))
	for a, id := range assetIDs {
		out[a] = Aggregate(id, start, weeks[a])
	}
	f.logger.Debug("availability fetched",
		zap.Int("assets", len(assetIDs)),
		zap.String("start", FormatDate(start)),
	)
	return out
}
