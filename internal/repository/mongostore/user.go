package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/ledger"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/models"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/repository"
)

type userStore struct{ s *Store }

func (u userStore) col() *mongo.Collection { return u.s.col(ColUsers) }

func (u userStore) Create(ctx context.Context, user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)
	repository.PrepareNewUser(user)
	// $push needs arrays, never null
	if user.GeneratedImages == nil {
		user.GeneratedImages = []models.GenerationRecord{}
	}
	if user.GeneratedVideos == nil {
		user.GeneratedVideos = []models.GenerationRecord{}
	}
	user.Version = 0
	return insertOne(ctx, u.col(), user)
}

func (u userStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	return findOne[models.User](ctx, u.col(), bson.D{{Key: "_id", Value: id}})
}

func (u userStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return findOne[models.User](ctx, u.col(), bson.D{{Key: "email", Value: models.NormalizeEmail(email)}})
}

// modifyAttempts bounds the compare-and-swap retries of Modify
const modifyAttempts = 5

// Modify reads the user, applies fn and writes back only if the version is
// unchanged. ConsumeCredits bumps the version too, so a charge landing
// between the read and the write forces a retry on fresh data.
func (u userStore) Modify(ctx context.Context, id string, fn repository.ModifyFunc) (*models.User, error) {
	for attempt := 0; attempt < modifyAttempts; attempt++ {
		user, err := u.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		version := user.Version
		if err := fn(user); err != nil {
			return nil, err
		}
		user.ID = id
		user.Email = models.NormalizeEmail(user.Email)
		user.UpdatedAt = time.Now().UTC()

		res, err := u.col().UpdateOne(ctx,
			bson.D{{Key: "_id", Value: id}, {Key: "version", Value: versionFilter(version)}},
			bson.D{
				{Key: "$set", Value: scalarFields(user)},
				{Key: "$inc", Value: bson.D{{Key: "version", Value: 1}}},
			})
		if err != nil {
			return nil, wrapError(err)
		}
		if res.MatchedCount == 1 {
			user.Version = version + 1
			return user, nil
		}
	}
	return nil, repository.ErrConflict
}

// versionFilter matches documents written before the version field existed
func versionFilter(v int64) any {
	if v == 0 {
		return bson.D{{Key: "$in", Value: bson.A{int64(0), nil}}}
	}
	return v
}

// scalarFields is everything Modify writes; history arrays are left alone
func scalarFields(user *models.User) bson.D {
	return bson.D{
		{Key: "email", Value: user.Email},
		{Key: "password_hash", Value: user.PasswordHash},
		{Key: "name", Value: user.Name},
		{Key: "google_id", Value: user.GoogleID},
		{Key: "role", Value: user.Role},
		{Key: "plan", Value: user.Plan},
		{Key: "plan_price", Value: user.PlanPrice},
		{Key: "plan_activated_at", Value: user.PlanActivatedAt},
		{Key: "credits", Value: user.Credits},
		{Key: "terms_accepted", Value: user.TermsAccepted},
		{Key: "is_verified", Value: user.IsVerified},
		{Key: "is_active", Value: user.IsActive},
		{Key: "is_blocked", Value: user.IsBlocked},
		{Key: "last_login_at", Value: user.LastLoginAt},
		{Key: "updated_at", Value: user.UpdatedAt},
	}
}

func (u userStore) List(ctx context.Context, limit, offset int) ([]*models.User, int, error) {
	total, err := u.col().CountDocuments(ctx, bson.D{})
	if err != nil {
		return nil, 0, wrapError(err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit)).
		SetProjection(bson.D{
			{Key: "generated_images", Value: 0},
			{Key: "generated_videos", Value: 0},
		})
	users, err := findMany[models.User](ctx, u.col(), bson.D{}, opts)
	if err != nil {
		return nil, 0, err
	}
	return users, int(total), nil
}

// ConsumeCredits matches only when the balance covers amount, so the
// decrement, counter bump and capped push happen in one document update.
func (u userStore) ConsumeCredits(ctx context.Context, userID string, amount int, kind models.MediaKind, rec models.GenerationRecord) (*models.User, error) {
	if amount < 1 {
		return nil, ledger.ErrInvalidAmount
	}

	counter, history := "credits.images_generated", "generated_images"
	if kind == models.MediaVideo {
		counter, history = "credits.videos_generated", "generated_videos"
	}

	filter := bson.D{
		{Key: "_id", Value: userID},
		{Key: "credits.balance", Value: bson.D{{Key: "$gte", Value: amount}}},
	}
	update := bson.D{
		{Key: "$inc", Value: bson.D{
			{Key: "credits.balance", Value: -amount},
			{Key: "credits.total_used", Value: amount},
			{Key: counter, Value: 1},
			{Key: "version", Value: 1},
		}},
		{Key: "$push", Value: bson.D{
			{Key: history, Value: bson.D{
				{Key: "$each", Value: []models.GenerationRecord{rec}},
				{Key: "$slice", Value: -ledger.HistoryLimit},
			}},
		}},
		{Key: "$set", Value: bson.D{{Key: "updated_at", Value: time.Now().UTC()}}},
	}

	var updated models.User
	err := u.col().FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, wrapError(err)
	}

	found, err := exists(ctx, u.col(), userID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, repository.ErrNotFound
	}
	return nil, repository.ErrInsufficientCredits
}
