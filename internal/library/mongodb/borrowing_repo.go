// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package mongodb

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/libraryhub/libraryhub/internal/library"
)

// BorrowingRepository implements library.BorrowingRepository using MongoDB.
type BorrowingRepository struct {
	coll *mongo.Collection
}

// NewBorrowingRepository creates a new BorrowingRepository over the borrowings collection.
func NewBorrowingRepository(coll *mongo.Collection) *BorrowingRepository {
	return &BorrowingRepository{coll: coll}
}

// Get retrieves a borrowing by ID.
func (r *BorrowingRepository) Get(ctx context.Context, id ulid.ULID) (*library.Borrowing, error) {
	var doc borrowingDoc
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id.String()}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, library.BorrowingNotFound(id)
	}
	if err != nil {
		return nil, oops.With("operation", "get borrowing").With("id", id.String()).Wrap(err)
	}
	return doc.toBorrowing()
}

// Create persists a new borrowing. The partial unique index on active
// borrowings turns a duplicate request into a conflict.
func (r *BorrowingRepository) Create(ctx context.Context, b *library.Borrowing) error {
	_, err := r.coll.InsertOne(ctx, toBorrowingDoc(b))
	if mongo.IsDuplicateKeyError(err) {
		return library.DuplicateRequest(b.UserID, b.BookID)
	}
	if err != nil {
		return oops.With("operation", "create borrowing").With("id", b.ID.String()).Wrap(err)
	}
	return nil
}

// Transition applies a guarded status change with FindOneAndUpdate.
func (r *BorrowingRepository) Transition(ctx context.Context, t library.Transition) (*library.Borrowing, error) {
	filter := bson.D{
		{Key: "_id", Value: t.ID.String()},
		{Key: "status", Value: bson.D{{Key: "$in", Value: statusStrings(t.From)}}},
	}
	set := bson.D{
		{Key: "status", Value: string(t.To)},
		{Key: "active", Value: t.To.Active()},
		{Key: "updated_at", Value: t.At},
	}
	switch t.To {
	case library.StatusApproved:
		set = append(set, bson.E{Key: "approved_at", Value: t.At})
		if t.ApprovedBy != nil {
			set = append(set, bson.E{Key: "approved_by", Value: t.ApprovedBy.String()})
		}
	case library.StatusReturned:
		set = append(set, bson.E{Key: "return_date", Value: t.At})
	}
	if t.Notes != "" {
		set = append(set, bson.E{Key: "notes", Value: t.Notes})
	}

	var doc borrowingDoc
	err := r.coll.FindOneAndUpdate(ctx, filter, bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err == nil {
		return doc.toBorrowing()
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, oops.With("operation", "transition borrowing").With("id", t.ID.String()).Wrap(err)
	}

	var current struct {
		Status string `bson:"status"`
	}
	err = r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: t.ID.String()}},
		options.FindOne().SetProjection(bson.D{{Key: "status", Value: 1}})).Decode(&current)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, library.BorrowingNotFound(t.ID)
	}
	if err != nil {
		return nil, oops.With("operation", "read borrowing status").With("id", t.ID.String()).Wrap(err)
	}
	return nil, library.InvalidTransitionTo(t.ID, library.Status(current.Status), t.To)
}

// FindActive returns the user's active borrowing for the book.
func (r *BorrowingRepository) FindActive(ctx context.Context, userID, bookID ulid.ULID) (*library.Borrowing, error) {
	var doc borrowingDoc
	err := r.coll.FindOne(ctx, bson.D{
		{Key: "user_id", Value: userID.String()},
		{Key: "book_id", Value: bookID.String()},
		{Key: "status", Value: bson.D{{Key: "$in", Value: statusStrings(library.ActiveStatuses)}}},
	}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, library.NotFoundError("borrowing", "book_id", bookID.String())
	}
	if err != nil {
		return nil, oops.With("operation", "find active borrowing").
			With("user_id", userID.String()).
			With("book_id", bookID.String()).
			Wrap(err)
	}
	return doc.toBorrowing()
}

// ListByUser returns the user's borrowings, newest first.
func (r *BorrowingRepository) ListByUser(ctx context.Context, userID ulid.ULID) ([]*library.Borrowing, error) {
	return r.find(ctx, bson.D{{Key: "user_id", Value: userID.String()}})
}

// List returns every borrowing, newest first.
func (r *BorrowingRepository) List(ctx context.Context) ([]*library.Borrowing, error) {
	return r.find(ctx, bson.D{})
}

func (r *BorrowingRepository) find(ctx context.Context, filter bson.D) ([]*library.Borrowing, error) {
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, oops.With("operation", "list borrowings").Wrap(err)
	}
	var docs []borrowingDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, oops.With("operation", "decode borrowings").Wrap(err)
	}
	out := make([]*library.Borrowing, 0, len(docs))
	for _, d := range docs {
		b, err := d.toBorrowing()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// CountActiveByBook returns the number of copies on loan per book.
func (r *BorrowingRepository) CountActiveByBook(ctx context.Context) (map[ulid.ULID]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "status", Value: bson.D{{Key: "$in", Value: statusStrings(library.LoanStatuses)}}}}}},
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$book_id"}, {Key: "n", Value: bson.D{{Key: "$sum", Value: 1}}}}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, oops.With("operation", "count active loans").Wrap(err)
	}
	var rows []struct {
		BookID string `bson:"_id"`
		N      int    `bson:"n"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, oops.With("operation", "decode loan counts").Wrap(err)
	}
	counts := make(map[ulid.ULID]int, len(rows))
	for _, row := range rows {
		id, err := parseID(row.BookID, "book_id")
		if err != nil {
			return nil, err
		}
		counts[id] = row.N
	}
	return counts, nil
}
