// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package mongodb

import (
	"context"

	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ActiveBorrowingIndex is the partial unique index that allows one active
// borrowing per user and book.
const ActiveBorrowingIndex = "borrowings_active_user_book"

// IndexSpec pairs a collection with the index models it needs.
type IndexSpec struct {
	Collection string
	Models     []mongo.IndexModel
}

// Indexes returns every index the repositories rely on.
func Indexes() []IndexSpec {
	return []IndexSpec{
		{Collection: BooksCollection, Models: []mongo.IndexModel{
			{Keys: bson.D{{Key: "isbn", Value: 1}}, Options: options.Index().SetName("books_isbn_key").SetUnique(true)},
			{Keys: bson.D{{Key: "created_at", Value: -1}}, Options: options.Index().SetName("books_created_at_idx")},
		}},
		{Collection: UsersCollection, Models: []mongo.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("users_email_key").SetUnique(true)},
		}},
		{Collection: BorrowingsCollection, Models: []mongo.IndexModel{
			{
				Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "book_id", Value: 1}},
				Options: options.Index().
					SetName(ActiveBorrowingIndex).
					SetUnique(true).
					SetPartialFilterExpression(bson.D{{Key: "active", Value: true}}),
			},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}, Options: options.Index().SetName("borrowings_user_created_idx")},
			{Keys: bson.D{{Key: "book_id", Value: 1}, {Key: "status", Value: 1}}, Options: options.Index().SetName("borrowings_book_status_idx")},
		}},
	}
}

// EnsureIndexes creates any missing index. Existing indexes with the same
// definition are left alone. It returns the names of the indexes it ensured.
func EnsureIndexes(ctx context.Context, db *mongo.Database) ([]string, error) {
	var names []string
	for _, spec := range Indexes() {
		created, err := db.Collection(spec.Collection).Indexes().CreateMany(ctx, spec.Models)
		if err != nil {
			return names, oops.Code("INDEX_CREATE_FAILED").With("collection", spec.Collection).Wrap(err)
		}
		names = append(names, created...)
	}
	return names, nil
}
