package pipeline

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/presenca/discovery-audit/internal/config"
	"github.com/presenca/discovery-audit/internal/model"
	"github.com/presenca/discovery-audit/internal/store"
	"github.com/presenca/discovery-audit/pkg/anthropic"
	"github.com/presenca/discovery-audit/pkg/places"
)

// Dispatcher pushes a completed audit to its messaging destination. The
// orchestrator treats dispatch as fire-and-forget: delivery failures never
// touch the audit status.
type Dispatcher interface {
	Deliver(ctx context.Context, auditID string) (*model.DeliveryAttempt, error)
}

// Pipeline drives one audit from pending to a terminal state.
type Pipeline struct {
	cfg        *config.Config
	store      store.Store
	places     places.Client
	anthropic  anthropic.Client
	dispatcher Dispatcher
}

// New creates a Pipeline with all dependencies. dispatcher may be nil; then
// messaging-mode audits complete without a delivery attempt.
func New(cfg *config.Config, st store.Store, placesClient places.Client, aiClient anthropic.Client, dispatcher Dispatcher) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		store:      st,
		places:     placesClient,
		anthropic:  aiClient,
		dispatcher: dispatcher,
	}
}

// Run executes the full audit for one id. A second Run for the same audit is
// a no-op: the processing transition only succeeds once.
func (p *Pipeline) Run(ctx context.Context, auditID string) error {
	log := zap.L().With(zap.String("audit_id", auditID))
	start := time.Now()

	if err := p.store.MarkProcessing(ctx, auditID); err != nil {
		if eris.Is(err, store.ErrInvalidTransition) {
			log.Warn("pipeline: audit not pending, skipping")
			return nil
		}
		return eris.Wrap(err, "pipeline: mark processing")
	}
	log.Info("pipeline: audit started")

	result, runErr := p.execute(ctx, auditID, log)
	if runErr != nil {
		log.Error("pipeline: audit failed", zap.Error(runErr))
		if failErr := p.store.FailAudit(ctx, auditID, failureMessage(runErr)); failErr != nil {
			log.Error("pipeline: failed to persist failure", zap.Error(failErr))
		}
		return runErr
	}

	result.ProcessingSeconds = int(time.Since(start).Seconds())
	if err := p.store.CompleteAudit(ctx, auditID, result); err != nil {
		return eris.Wrap(err, "pipeline: complete audit")
	}
	log.Info("pipeline: audit completed",
		zap.Int("discovery_score", result.DiscoveryScore),
		zap.Int("processing_seconds", result.ProcessingSeconds),
	)

	p.dispatch(ctx, auditID, log)
	return nil
}

func (p *Pipeline) execute(ctx context.Context, auditID string, log *zap.Logger) (result *model.AuditResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline: panic during audit",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			result, err = nil, errInternal
		}
	}()

	audit, err := p.store.GetAudit(ctx, auditID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load audit")
	}
	business, err := p.store.GetBusiness(ctx, audit.BusinessID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load business")
	}

	// Stage: refresh profile details. The lookup snapshot from creation is
	// enough to proceed, so a refresh failure degrades.
	stageErr := p.trackStage(log, "details", func() error {
		fresh, detailErr := p.places.GetDetails(ctx, business.PlaceID)
		if detailErr != nil {
			if isFatalStage(detailErr) {
				return detailErr
			}
			log.Warn("pipeline: details refresh failed, using stored profile", zap.Error(detailErr))
			return nil
		}
		fresh.ID = business.ID
		if updated, upsertErr := p.store.UpsertBusiness(ctx, *fresh); upsertErr == nil {
			business = updated
		} else {
			log.Warn("pipeline: failed to persist refreshed profile", zap.Error(upsertErr))
			business = fresh
		}
		return nil
	})
	if stageErr != nil {
		return nil, stageErr
	}

	// Stage: competitor discovery.
	var competitors []model.Competitor
	stageErr = p.trackStage(log, "competitors", func() error {
		found, discErr := DiscoverCompetitors(ctx, p.places, business,
			float64(p.cfg.Places.RadiusMeters), p.cfg.Places.CompetitorLimit)
		if discErr != nil {
			return discErr
		}
		competitors = found
		return nil
	})
	if stageErr != nil {
		if isFatalStage(stageErr) {
			return nil, stageErr
		}
		log.Warn("pipeline: proceeding without competitors", zap.Error(stageErr))
		competitors = nil
	}

	// Stage: review sample.
	var reviews []model.Review
	stageErr = p.trackStage(log, "reviews", func() error {
		fetched, revErr := p.places.GetReviews(ctx, business.PlaceID, p.cfg.Audit.ReviewSampleSize)
		if revErr != nil {
			return revErr
		}
		reviews = fetched
		if saveErr := p.store.SaveReviews(ctx, business.ID, fetched); saveErr != nil {
			log.Warn("pipeline: failed to persist reviews", zap.Error(saveErr))
		}
		return nil
	})
	if stageErr != nil {
		if isFatalStage(stageErr) {
			return nil, stageErr
		}
		log.Warn("pipeline: proceeding without reviews", zap.Error(stageErr))
	}

	// AI stages run in parallel; each degrades to its default on transient
	// failure, fatal errors abort the group.
	var (
		perception *model.AIPerception
		sentiment  *model.SentimentAnalysis
		queries    []model.ConversationalQuery
		mentions   map[string]bool
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.degradableStage(log, "perception", func() error {
			res, aiErr := AnalyzePerception(gCtx, p.anthropic, p.cfg.Anthropic, business, reviews)
			if aiErr != nil {
				return aiErr
			}
			perception = res
			return nil
		}, func() {
			perception = defaultPerception()
		})
	})
	g.Go(func() error {
		return p.degradableStage(log, "sentiment", func() error {
			res, aiErr := AnalyzeSentiment(gCtx, p.anthropic, p.cfg.Anthropic, business, reviews)
			if aiErr != nil {
				return aiErr
			}
			sentiment = res
			return nil
		}, func() {
			sentiment = defaultSentiment()
		})
	})
	g.Go(func() error {
		return p.degradableStage(log, "queries", func() error {
			qs, ms, aiErr := GenerateQueries(gCtx, p.anthropic, p.cfg.Anthropic, business, competitors, p.cfg.Audit.MaxQueries)
			if aiErr != nil {
				return aiErr
			}
			queries, mentions = qs, ms
			return nil
		}, func() {
			queries, mentions = nil, map[string]bool{}
		})
	})
	if err = g.Wait(); err != nil {
		return nil, err
	}

	// Persist competitors with their AI mention flags.
	if len(competitors) > 0 {
		for i := range competitors {
			competitors[i].AIMentioned = mentions[competitors[i].Name]
		}
		stored, createErr := p.store.CreateCompetitors(ctx, auditID, competitors)
		if createErr != nil {
			return nil, eris.Wrap(createErr, "pipeline: persist competitors")
		}
		competitors = stored
	}

	// Pure stages.
	visual := AuditVisual(business, p.cfg.Audit.PhotoTarget)
	matrix := BuildComparison(business, competitors)
	position := CompetitivePosition(matrix)
	gaps := AnalyzeGaps(matrix, mentions)
	recommendations := BuildRecommendations(business, gaps, sentiment)

	sentimentScore := SentimentAlignment(sentiment)
	score := ComputeScore(ScoreInput{
		AIConfidence: perception.Confidence,
		Completeness: Completeness(*business),
		Sentiment:    sentimentScore,
		Visual:       visual.Coverage,
		Competitive:  position,
	})

	result = &model.AuditResult{
		DiscoveryScore:  score,
		SentimentScore:  sentimentScore,
		VisualScore:     visual.Coverage,
		Perception:      *perception,
		Sentiment:       *sentiment,
		Queries:         queries,
		Visual:          visual,
		Recommendations: recommendations,
	}
	if position != nil {
		result.CompetitiveScore = position
		result.Competitive = &model.CompetitiveAnalysis{
			Matrix:     matrix,
			Gaps:       gaps,
			AIMentions: mentions,
			Score:      *position,
		}
	}
	return result, nil
}

// dispatch pushes the finished audit over the messaging gateway when the
// audit asked for it. Failures are recorded on the delivery attempt only.
func (p *Pipeline) dispatch(ctx context.Context, auditID string, log *zap.Logger) {
	if p.dispatcher == nil {
		return
	}
	audit, err := p.store.GetAudit(ctx, auditID)
	if err != nil {
		log.Warn("pipeline: dispatch skipped, audit unreadable", zap.Error(err))
		return
	}
	if audit.DeliveryMode != model.DeliveryModeMessaging || audit.Contact == "" {
		return
	}
	if _, err := p.dispatcher.Deliver(ctx, auditID); err != nil {
		log.Warn("pipeline: delivery failed, audit remains completed", zap.Error(err))
	}
}

// trackStage runs fn with duration logging, returning its error untouched.
func (p *Pipeline) trackStage(log *zap.Logger, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	duration := time.Since(start).Milliseconds()
	if err != nil {
		log.Error("pipeline: stage failed",
			zap.String("stage", name),
			zap.Int64("duration_ms", duration),
			zap.Error(err),
		)
		return err
	}
	log.Info("pipeline: stage complete",
		zap.String("stage", name),
		zap.Int64("duration_ms", duration),
	)
	return nil
}

// degradableStage runs an AI stage, substituting the default on any
// non-fatal failure.
func (p *Pipeline) degradableStage(log *zap.Logger, name string, fn func() error, degrade func()) error {
	err := p.trackStage(log, name, fn)
	if err == nil {
		return nil
	}
	if isFatalStage(err) {
		return err
	}
	log.Warn("pipeline: stage degraded to default",
		zap.String("stage", name),
		zap.Error(err),
	)
	degrade()
	return nil
}
