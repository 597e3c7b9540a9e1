// Package service holds the account, plan, generation and admin use cases.
// Services return *apperr.Error for anything the client should see and
// plain wrapped errors for the rest.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/apperr"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/events"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/ledger"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/models"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/repository"
)

// Clock returns the current time. Tests replace it.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

// loadUser fetches a user, mapping a missing record to UserNotFound
func loadUser(ctx context.Context, users repository.UserStore, id string) (*models.User, error) {
	user, err := users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.UserNotFound()
		}
		return nil, err
	}
	return user, nil
}

// modifyUser applies fn to the latest stored copy of a user. Errors from fn
// come back as they are.
func modifyUser(ctx context.Context, users repository.UserStore, id string, fn repository.ModifyFunc) (*models.User, error) {
	user, err := users.Modify(ctx, id, fn)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.UserNotFound()
		}
		if _, ok := apperr.As(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// PublicUser clamps the credit figures of a user before it leaves the API
func PublicUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	c := *u
	c.Credits = ledger.View(u.Credits)
	if c.GeneratedImages == nil {
		c.GeneratedImages = []models.GenerationRecord{}
	}
	if c.GeneratedVideos == nil {
		c.GeneratedVideos = []models.GenerationRecord{}
	}
	return &c
}

// publish sends an event; broker failures are logged, never returned
func publish(ctx context.Context, pub events.Publisher, eventType, key string, data any) {
	if pub == nil {
		return
	}
	log := zerolog.Ctx(ctx)

	event, err := events.New(eventType, key, data)
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("failed to build event")
		return
	}
	if err := pub.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Str("type", eventType).Str("key", key).Msg("failed to publish event")
	}
}
