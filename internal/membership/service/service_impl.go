package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/estateloyalty/internal/clock"
	"github.com/smallbiznis/estateloyalty/internal/membership/domain"
	obscontext "github.com/smallbiznis/estateloyalty/internal/observability/context"
	obslogger "github.com/smallbiznis/estateloyalty/internal/observability/logger"
	"github.com/smallbiznis/estateloyalty/internal/observability/metrics"
	"github.com/smallbiznis/estateloyalty/internal/session"
	"github.com/smallbiznis/estateloyalty/internal/spend"
	"github.com/smallbiznis/estateloyalty/pkg/db"
	"github.com/smallbiznis/estateloyalty/pkg/db/pagination"
	"github.com/smallbiznis/estateloyalty/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	Sessions  *session.Manager
	Spend     spend.Aggregator
	Presenter domain.Presenter
	Clock     clock.Clock
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	sessions  *session.Manager
	spend     spend.Aggregator
	presenter domain.Presenter
	clock     clock.Clock
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("membership.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		sessions:  p.Sessions,
		spend:     p.Spend,
		presenter: p.Presenter,
		clock:     p.Clock,
		metrics:   p.Metrics,
	}
}

func (s *Service) StartSession(ctx context.Context, req domain.StartSessionRequest) (domain.Snapshot, error) {
	customerID := strings.TrimSpace(req.CustomerID)
	if customerID == "" {
		return domain.Snapshot{}, domain.ErrInvalidCustomer
	}

	sess, err := s.sessions.Open(customerID)
	if err != nil {
		return domain.Snapshot{}, s.mapSessionErr(err)
	}
	s.metrics.RecordSession(ctx, "opened")

	ctx = obscontext.WithSession(ctx, sess.ID, sess.CustomerID)
	log := obslogger.WithContext(ctx, s.log)

	// a new session reads spend fresh from upstream on its first refresh
	if cache, ok := s.spend.(spend.Invalidator); ok {
		if err := cache.Invalidate(ctx, sess.CustomerID); err != nil {
			log.Warn("spend cache invalidation failed", zap.Error(err))
		}
	}
	log.Info("membership session started")

	return s.snapshot(sess)
}

func (s *Service) EndSession(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.ErrInvalidSession
	}
	if err := s.sessions.Close(sessionID); err != nil {
		return s.mapSessionErr(err)
	}
	s.metrics.RecordSession(ctx, "closed")

	obslogger.WithContext(obscontext.WithSession(ctx, sessionID, ""), s.log).Info("membership session ended")
	return nil
}

// Refresh fetches the customer's lifetime spend and updates the session's
// tier. A failed fetch leaves the tier untouched. A fetch that completes
// after a later-initiated one has already been applied is dropped.
func (s *Service) Refresh(ctx context.Context, sessionID string) (domain.Snapshot, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return domain.Snapshot{}, err
	}

	ctx = obscontext.WithSession(ctx, sess.ID, sess.CustomerID)
	log := obslogger.WithContext(ctx, s.log)

	ticket := sess.Membership.Begin()
	start := s.clock.Now()
	total, err := s.spend.TotalSpent(ctx, sess.CustomerID)
	elapsed := s.clock.Now().Sub(start)
	if err != nil {
		reason := spendFailureReason(err)
		s.metrics.RecordSpendFetch(ctx, elapsed, "error")
		s.metrics.RecordSpendFailure(ctx, reason)
		s.metrics.RecordRefresh(ctx, "failed")
		log.Warn("spend fetch failed, keeping current tier",
			zap.Uint64("ticket", ticket.Seq()),
			zap.String("reason", reason),
			zap.String("tier", sess.Membership.Current().String()),
			zap.Error(err),
		)
		return domain.Snapshot{}, fmt.Errorf("%w: %w", domain.ErrSpendUnavailable, err)
	}
	s.metrics.RecordSpendFetch(ctx, elapsed, "ok")

	now := s.clock.Now()
	obs, err := sess.RecordSpend(ticket, total, now)
	if err != nil {
		return domain.Snapshot{}, err
	}

	if !obs.Applied {
		s.metrics.RecordRefresh(ctx, "stale")
		s.metrics.RecordStaleDropped(ctx, domain.Classify(total).String())
		log.Info("stale spend result dropped",
			zap.Uint64("ticket", ticket.Seq()),
			zap.Bool("latest", sess.Membership.Latest(ticket)),
			zap.String("tier", obs.Tier.String()),
		)
		return s.snapshot(sess)
	}
	s.metrics.RecordRefresh(ctx, "applied")

	if obs.PreviousTier != obs.Tier {
		s.metrics.RecordTierChange(ctx, obs.PreviousTier.String(), obs.Tier.String())
		log.Info("membership tier changed",
			zap.String("previous_tier", obs.PreviousTier.String()),
			zap.String("tier", obs.Tier.String()),
		)
		s.recordTierChange(ctx, log, sess, obs, total, now)
	}

	return s.snapshot(sess)
}

func (s *Service) Snapshot(ctx context.Context, sessionID string) (domain.Snapshot, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return s.snapshot(sess)
}

func (s *Service) Quote(ctx context.Context, totalSpent float64) (domain.Quote, error) {
	if math.IsNaN(totalSpent) || math.IsInf(totalSpent, 0) {
		return domain.Quote{}, domain.ErrInvalidTotalSpent
	}

	tier := domain.Classify(totalSpent)
	discount, err := domain.DiscountFor(tier)
	if err != nil {
		return domain.Quote{}, err
	}
	deal, err := s.presenter.Present(tier, discount)
	if err != nil {
		return domain.Quote{}, err
	}

	return domain.Quote{
		TotalSpent:      totalSpent,
		TotalSpentText:  money.FormatKES(totalSpent),
		Tier:            tier,
		DiscountPercent: discount,
		Deal:            deal,
		Progress:        domain.ProgressFor(totalSpent),
	}, nil
}

func (s *Service) ListTiers(ctx context.Context) ([]domain.TierInfo, error) {
	thresholds := domain.Thresholds()
	tiers := make([]domain.TierInfo, 0, len(thresholds))
	for _, th := range thresholds {
		discount, err := domain.DiscountFor(th.Tier)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, domain.TierInfo{
			Tier:            th.Tier,
			MinSpend:        th.MinSpend,
			MinSpendText:    money.FormatKES(th.MinSpend),
			DiscountPercent: discount,
		})
	}
	return tiers, nil
}

func (s *Service) ListTierChanges(ctx context.Context, req domain.ListTierChangesRequest) (domain.ListTierChangesResponse, error) {
	customerID := strings.TrimSpace(req.CustomerID)
	if customerID == "" {
		return domain.ListTierChangesResponse{}, domain.ErrInvalidCustomer
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	items, err := s.repo.ListTierChanges(ctx, s.db, customerID, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListTierChangesResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, int32(pageSize), func(change *domain.TierChange) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        change.ID.String(),
			CreatedAt: change.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	changes := make([]domain.TierChange, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		changes = append(changes, *item)
	}

	resp := domain.ListTierChangesResponse{Changes: changes}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) recordTierChange(ctx context.Context, log *zap.Logger, sess *session.Session, obs session.Observation, total float64, at time.Time) {
	change := domain.TierChange{
		ID:           s.genID.Generate(),
		SessionID:    sess.ID,
		CustomerID:   sess.CustomerID,
		PreviousTier: obs.PreviousTier,
		Tier:         obs.Tier,
		TotalSpent:   total,
		Metadata: datatypes.JSONMap{
			"request_id": obscontext.RequestIDFromContext(ctx),
		},
		CreatedAt: at,
	}

	// The session already holds the new tier; a failed audit write is logged, not surfaced.
	if err := s.repo.InsertTierChange(ctx, s.db, &change); err != nil {
		if db.IsDuplicateKeyErr(err) {
			log.Warn("tier change already recorded", zap.String("change_id", change.ID.String()))
			return
		}
		log.Error("failed to record tier change", zap.Error(err))
	}
}

func (s *Service) snapshot(sess *session.Session) (domain.Snapshot, error) {
	tier, total, refreshedAt := sess.View()
	discount, err := domain.DiscountFor(tier)
	if err != nil {
		return domain.Snapshot{}, err
	}
	deal, err := s.presenter.Present(tier, discount)
	if err != nil {
		return domain.Snapshot{}, err
	}

	snap := domain.Snapshot{
		SessionID:       sess.ID,
		CustomerID:      sess.CustomerID,
		Tier:            tier,
		DiscountPercent: discount,
		Deal:            deal,
		TotalSpent:      total,
		RefreshedAt:     refreshedAt,
	}
	if total != nil {
		snap.TotalSpentText = money.FormatKES(*total)
		progress := domain.ProgressFor(*total)
		snap.Progress = &progress
	}
	return snap, nil
}

func (s *Service) lookup(sessionID string) (*session.Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, domain.ErrInvalidSession
	}
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, s.mapSessionErr(err)
	}
	return sess, nil
}

func (s *Service) mapSessionErr(err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return domain.ErrSessionNotFound
	case errors.Is(err, session.ErrInvalidCustomer):
		return domain.ErrInvalidCustomer
	default:
		return err
	}
}

func spendFailureReason(err error) string {
	var httpErr *spend.HTTPError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &httpErr):
		return "upstream_status"
	case errors.Is(err, spend.ErrInvalidTotal):
		return "invalid_total"
	default:
		return "transport"
	}
}
