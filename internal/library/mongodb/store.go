// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

// Package mongodb provides MongoDB implementations of the library repositories.
//
// Transactions need a replica set or sharded cluster; a standalone server
// rejects them.
package mongodb

import (
	"context"
	"time"

	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/libraryhub/libraryhub/internal/library"
)

// Connect opens a client for uri and pings the primary.
// The caller owns the client and must Disconnect it.
func Connect(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(uri)
	if timeout > 0 {
		opts.SetTimeout(timeout)
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect mongo").Wrap(err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx) //nolint:errcheck // ping error takes precedence
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "ping mongo").Wrap(err)
	}
	return client, nil
}

// NewStore returns the MongoDB repositories for db.
func NewStore(db *mongo.Database) library.Store {
	return library.Store{
		Books:      NewBookRepository(db.Collection(BooksCollection)),
		Users:      NewUserRepository(db.Collection(UsersCollection)),
		Borrowings: NewBorrowingRepository(db.Collection(BorrowingsCollection)),
		Tx:         NewTransactor(db.Client()),
	}
}

// Transactor implements library.Transactor with a client session.
// Repository calls made with the session context join the transaction.
type Transactor struct {
	client *mongo.Client
}

// NewTransactor creates a Transactor for client.
func NewTransactor(client *mongo.Client) *Transactor {
	return &Transactor{client: client}
}

// InTransaction runs fn in a multi-document transaction. The driver retries
// fn on transient transaction errors and retries the commit on unknown
// commit results. Calls nested in an open session join it.
func (t *Transactor) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	sess, err := t.client.StartSession()
	if err != nil {
		return oops.Code("TX_BEGIN_FAILED").Wrap(err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	if err != nil {
		return oops.With("operation", "mongo transaction").Wrap(err)
	}
	return nil
}

// countByID reports whether a document with id exists in coll.
func countByID(ctx context.Context, coll *mongo.Collection, id string) (bool, error) {
	n, err := coll.CountDocuments(ctx, bson.D{{Key: "_id", Value: id}}, options.Count().SetLimit(1))
	if err != nil {
		return false, oops.With("operation", "check "+coll.Name()+" exists").With("id", id).Wrap(err)
	}
	return n > 0, nil
}
