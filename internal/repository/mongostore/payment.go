package mongostore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/models"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/repository"
)

type paymentStore struct{ s *Store }

func (p paymentStore) col() *mongo.Collection { return p.s.col(ColPayments) }

func (p paymentStore) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	payment.CreatedAt = now
	payment.UpdatedAt = now
	return insertOne(ctx, p.col(), payment)
}

func (p paymentStore) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	return findOne[models.Payment](ctx, p.col(), bson.D{{Key: "_id", Value: id}})
}

func (p paymentStore) ListByUser(ctx context.Context, userID string) ([]*models.Payment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return findMany[models.Payment](ctx, p.col(), bson.D{{Key: "user_id", Value: userID}}, opts)
}

func (p paymentStore) UpdateStatus(ctx context.Context, id string, from, to models.PaymentStatus) (*models.Payment, error) {
	filter := bson.D{{Key: "_id", Value: id}, {Key: "status", Value: from}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: to},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}}

	var updated models.Payment
	err := p.col().FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, wrapError(err)
	}

	found, err := exists(ctx, p.col(), id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, repository.ErrNotFound
	}
	return nil, repository.ErrConflict
}
