// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/libraryhub/libraryhub/internal/library"
)

// newestFirst sorts by creation time, then id, descending.
var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

// BookRepository implements library.BookRepository using MongoDB.
type BookRepository struct {
	coll *mongo.Collection
}

// NewBookRepository creates a new BookRepository over the books collection.
func NewBookRepository(coll *mongo.Collection) *BookRepository {
	return &BookRepository{coll: coll}
}

// Get retrieves a book by ID.
func (r *BookRepository) Get(ctx context.Context, id ulid.ULID) (*library.Book, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id.String()}}, func() error { return library.BookNotFound(id) })
}

// GetByISBN retrieves a book by isbn.
func (r *BookRepository) GetByISBN(ctx context.Context, isbn string) (*library.Book, error) {
	return r.findOne(ctx, bson.D{{Key: "isbn", Value: isbn}}, func() error {
		return library.NotFoundError("book", "isbn", isbn)
	})
}

func (r *BookRepository) findOne(ctx context.Context, filter bson.D, notFound func() error) (*library.Book, error) {
	var doc bookDoc
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound()
	}
	if err != nil {
		return nil, oops.With("operation", "find book").Wrap(err)
	}
	return doc.toBook()
}

// List returns every book, newest first.
func (r *BookRepository) List(ctx context.Context) ([]*library.Book, error) {
	cur, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, oops.With("operation", "list books").Wrap(err)
	}
	var docs []bookDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, oops.With("operation", "decode books").Wrap(err)
	}
	books := make([]*library.Book, 0, len(docs))
	for _, d := range docs {
		b, err := d.toBook()
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, nil
}

// Create persists a new book.
func (r *BookRepository) Create(ctx context.Context, b *library.Book) error {
	_, err := r.coll.InsertOne(ctx, toBookDoc(b))
	if mongo.IsDuplicateKeyError(err) {
		return library.DuplicateISBN(b.ISBN)
	}
	if err != nil {
		return oops.With("operation", "create book").With("id", b.ID.String()).Wrap(err)
	}
	return nil
}

// Update replaces a book's descriptive fields and shifts available_copies by
// the change in total_copies with a single pipeline update.
func (r *BookRepository) Update(ctx context.Context, b *library.Book) error {
	delta := bson.D{{Key: "$subtract", Value: bson.A{b.TotalCopies, "$total_copies"}}}
	shifted := bson.D{{Key: "$add", Value: bson.A{"$available_copies", delta}}}

	filter := bson.D{
		{Key: "_id", Value: b.ID.String()},
		{Key: "$expr", Value: bson.D{{Key: "$gte", Value: bson.A{shifted, 0}}}},
	}
	// $literal keeps user text that starts with "$" from being read as a field path.
	update := mongo.Pipeline{{{Key: "$set", Value: bson.D{
		{Key: "title", Value: literal(b.Title)},
		{Key: "author", Value: literal(b.Author)},
		{Key: "isbn", Value: literal(b.ISBN)},
		{Key: "genre", Value: literal(b.Genre)},
		{Key: "description", Value: literal(b.Description)},
		{Key: "published_year", Value: b.PublishedYear},
		{Key: "image_url", Value: literal(b.ImageURL)},
		{Key: "available_copies", Value: shifted},
		{Key: "total_copies", Value: b.TotalCopies},
		{Key: "updated_at", Value: b.UpdatedAt},
	}}}}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if mongo.IsDuplicateKeyError(err) {
		return library.DuplicateISBN(b.ISBN)
	}
	if err != nil {
		return oops.With("operation", "update book").With("id", b.ID.String()).Wrap(err)
	}
	if res.MatchedCount == 0 {
		found, err := countByID(ctx, r.coll, b.ID.String())
		if err != nil {
			return err
		}
		if !found {
			return library.BookNotFound(b.ID)
		}
		return library.CopiesOnLoan(b.ID, b.TotalCopies)
	}
	return nil
}

// Delete removes a book by ID.
func (r *BookRepository) Delete(ctx context.Context, id ulid.ULID) error {
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id.String()}})
	if err != nil {
		return oops.With("operation", "delete book").With("id", id.String()).Wrap(err)
	}
	if res.DeletedCount == 0 {
		return library.BookNotFound(id)
	}
	return nil
}

// ReserveCopy takes one available copy with a guarded $inc.
func (r *BookRepository) ReserveCopy(ctx context.Context, id ulid.ULID, at time.Time) error {
	guard := bson.E{Key: "available_copies", Value: bson.D{{Key: "$gt", Value: 0}}}
	return r.shift(ctx, id, at, -1, guard, library.NoCopyLeft)
}

// ReleaseCopy puts one copy back, never past total_copies.
func (r *BookRepository) ReleaseCopy(ctx context.Context, id ulid.ULID, at time.Time) error {
	guard := bson.E{Key: "$expr", Value: bson.D{{Key: "$lt", Value: bson.A{"$available_copies", "$total_copies"}}}}
	return r.shift(ctx, id, at, 1, guard, library.AllCopiesShelved)
}

func (r *BookRepository) shift(ctx context.Context, id ulid.ULID, at time.Time, by int, guard bson.E, guardErr func(ulid.ULID) error) error {
	filter := bson.D{{Key: "_id", Value: id.String()}, guard}
	update := bson.D{
		{Key: "$inc", Value: bson.D{{Key: "available_copies", Value: by}}},
		{Key: "$set", Value: bson.D{{Key: "updated_at", Value: at}}},
	}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return oops.With("operation", "update available copies").With("id", id.String()).Wrap(err)
	}
	if res.MatchedCount == 1 {
		return nil
	}
	found, err := countByID(ctx, r.coll, id.String())
	if err != nil {
		return err
	}
	if !found {
		return library.BookNotFound(id)
	}
	return guardErr(id)
}

func literal(v string) bson.D {
	return bson.D{{Key: "$literal", Value: v}}
}
