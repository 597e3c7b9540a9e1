package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/apperr"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/cache"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/events"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/ledger"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/metrics"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/models"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/repository"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/workflow"
)

// creditsPerGeneration is charged once per successful workflow run
const creditsPerGeneration = 1

// DefaultLockTTL bounds the per-user generation lock. It outlives the
// longest workflow timeout so a lock is never released under a live call.
const DefaultLockTTL = workflow.DefaultVideoTimeout + 30*time.Second

// GenerateInput is the body of every generation endpoint
type GenerateInput struct {
	Prompt   string `json:"prompt"`
	ImageURL string `json:"imageUrl"`
	AudioURL string `json:"audioUrl"`
}

// GenerationResult is returned after a successful, charged generation
type GenerationResult struct {
	Mode             workflow.Mode           `json:"mode"`
	ResultURL        string                  `json:"resultUrl"`
	RemainingCredits int                     `json:"remainingCredits"`
	Credits          models.Credits          `json:"credits"`
	Generation       models.GenerationRecord `json:"generation"`
}

// GenerationService proxies generation requests to the workflow backend and
// charges one credit per confirmed success
type GenerationService struct {
	users    repository.UserStore
	backend  workflow.Backend
	locker   cache.Locker
	events   events.Publisher
	metrics  *metrics.Metrics
	validate *validator.Validate
	lockTTL  time.Duration
	now      Clock
}

// NewGenerationService creates a new generation service
func NewGenerationService(
	store repository.Store,
	backend workflow.Backend,
	locker cache.Locker,
	publisher events.Publisher,
	m *metrics.Metrics,
) *GenerationService {
	return &GenerationService{
		users:    store.Users(),
		backend:  backend,
		locker:   locker,
		events:   publisher,
		metrics:  m,
		validate: validator.New(),
		lockTTL:  DefaultLockTTL,
		now:      systemClock,
	}
}

// Generate runs one generation for the user.
//
// Checks run in order: the user exists, has a plan, has credits, and sent
// the fields the mode needs. The credit is charged only after the workflow
// reports success, through the store's conditional decrement.
func (s *GenerationService) Generate(ctx context.Context, userID string, mode workflow.Mode, in GenerateInput) (*GenerationResult, error) {
	log := zerolog.Ctx(ctx).With().Str("user_id", userID).Str("mode", string(mode)).Logger()

	user, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}
	if user.Plan == models.PlanNone {
		return nil, apperr.PlanRequired()
	}
	if user.Credits.Balance <= 0 {
		s.metrics.RecordGeneration(string(mode), metrics.OutcomeInsufficient, 0)
		return nil, apperr.InsufficientCredits()
	}
	if err := s.validateInput(mode, in); err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, "generation:"+user.ID, s.lockTTL)
	switch {
	case errors.Is(err, cache.ErrLocked):
		s.metrics.RecordGeneration(string(mode), metrics.OutcomeBusy, 0)
		return nil, apperr.Conflict("A generation is already in progress for this account")
	case err != nil:
		// the conditional decrement still prevents overspending
		log.Warn().Err(err).Msg("generation lock unavailable, continuing without it")
		release = func() {}
	}
	defer release()

	payload := workflow.Payload{
		Prompt:   strings.TrimSpace(in.Prompt),
		ImageURL: strings.TrimSpace(in.ImageURL),
		AudioURL: strings.TrimSpace(in.AudioURL),
		UserID:   user.ID,
		Email:    user.Email,
	}

	start := time.Now()
	result, err := s.backend.Submit(ctx, mode, payload)
	elapsed := time.Since(start)
	if err != nil {
		appErr, outcome := classifyWorkflowError(err)
		s.metrics.RecordGeneration(string(mode), outcome, elapsed)
		log.Error().Err(err).Dur("elapsed", elapsed).Msg("workflow call failed")
		return nil, appErr
	}

	if result.URL == "" {
		log.Warn().Msg("workflow succeeded but no result url was found in the response")
	}

	record := models.GenerationRecord{
		ID:         uuid.New().String(),
		Mode:       string(mode),
		SourceURLs: sourceURLs(payload),
		ResultURL:  result.URL,
		Prompt:     payload.Prompt,
		CreatedAt:  s.now(),
	}

	// the workflow already ran; a client disconnect must not skip the charge
	chargeCtx := context.WithoutCancel(ctx)
	updated, err := s.users.ConsumeCredits(chargeCtx, user.ID, creditsPerGeneration, mode.Kind(), record)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientCredits) {
			s.metrics.RecordGeneration(string(mode), metrics.OutcomeInsufficient, elapsed)
			log.Warn().Msg("balance was spent by a concurrent request before the charge")
			return nil, apperr.InsufficientCredits()
		}
		return nil, fmt.Errorf("failed to charge credit: %w", err)
	}

	s.metrics.RecordGeneration(string(mode), metrics.OutcomeSuccess, elapsed)
	publish(chargeCtx, s.events, events.TypeGenerationCompleted, user.ID, events.GenerationCompleted{
		UserID:    user.ID,
		Mode:      string(mode),
		RecordID:  record.ID,
		ResultURL: record.ResultURL,
		Balance:   updated.Credits.Balance,
	})
	log.Info().
		Str("generation_id", record.ID).
		Int("balance", updated.Credits.Balance).
		Dur("elapsed", elapsed).
		Msg("generation completed")

	credits := ledger.View(updated.Credits)
	return &GenerationResult{
		Mode:             mode,
		ResultURL:        record.ResultURL,
		RemainingCredits: credits.Balance,
		Credits:          credits,
		Generation:       record,
	}, nil
}

func (s *GenerationService) validateInput(mode workflow.Mode, in GenerateInput) error {
	var details []string

	requirePrompt := func() {
		if strings.TrimSpace(in.Prompt) == "" {
			details = append(details, "prompt is required")
		}
	}
	requireURL := func(field, value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			details = append(details, field+" is required")
			return
		}
		if err := s.validate.Var(value, "http_url"); err != nil {
			details = append(details, field+" must be a valid http(s) URL")
		}
	}

	switch mode {
	case workflow.ModeImageEdit, workflow.ModeImageToVideo:
		requireURL("imageUrl", in.ImageURL)
		requirePrompt()
	case workflow.ModeTextToVideo:
		requirePrompt()
	case workflow.ModeAudioToVideo:
		requireURL("imageUrl", in.ImageURL)
		requireURL("audioUrl", in.AudioURL)
	default:
		return apperr.Validation("Unsupported generation mode")
	}

	if len(details) > 0 {
		return apperr.Validation("Validation failed", details...)
	}
	return nil
}

func classifyWorkflowError(err error) (*apperr.Error, string) {
	var upstream *workflow.UpstreamError
	switch {
	case errors.Is(err, workflow.ErrTimeout):
		return apperr.UpstreamTimeout().Wrap(err), metrics.OutcomeTimeout
	case errors.Is(err, workflow.ErrUnavailable):
		return apperr.UpstreamUnavailable().Wrap(err), metrics.OutcomeUnavailable
	case errors.As(err, &upstream):
		return apperr.Upstream(upstream.StatusCode, upstream.Message).Wrap(err), metrics.OutcomeUpstream
	default:
		return apperr.Upstream(0, "").Wrap(err), metrics.OutcomeUpstream
	}
}

func sourceURLs(p workflow.Payload) []string {
	var urls []string
	for _, u := range []string{p.ImageURL, p.AudioURL} {
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}
