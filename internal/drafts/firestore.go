package drafts

import (
	"context"
	"errors"
	"net/url"
	"time"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/onclick-pay/onclick-web/internal/platform/firestore"
)

// FirestoreKV stores one document per key in a collection.
type FirestoreKV struct {
	provider   *pfirestore.Provider
	collection string
}

type kvDocument struct {
	Value     string    `firestore:"value"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// NewFirestoreKV builds a KV backed by the lazily created Firestore client.
func NewFirestoreKV(provider *pfirestore.Provider, collection string) (*FirestoreKV, error) {
	if provider == nil {
		return nil, errors.New("drafts: firestore provider is required")
	}
	if collection == "" {
		return nil, errors.New("drafts: firestore collection is required")
	}
	return &FirestoreKV{provider: provider, collection: collection}, nil
}

func (f *FirestoreKV) doc(ctx context.Context, key string) (*firestore.DocumentRef, error) {
	client, err := f.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	// Document ids may not contain '/'.
	return client.Collection(f.collection).Doc(url.PathEscape(key)), nil
}

func (f *FirestoreKV) Get(ctx context.Context, key string) ([]byte, error) {
	ref, err := f.doc(ctx, key)
	if err != nil {
		return nil, err
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		wrapped := pfirestore.WrapError("drafts.get", err)
		if pfirestore.IsNotFound(wrapped) {
			return nil, ErrNotFound
		}
		return nil, wrapped
	}
	var doc kvDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, err
	}
	return []byte(doc.Value), nil
}

func (f *FirestoreKV) Put(ctx context.Context, key string, value []byte) error {
	ref, err := f.doc(ctx, key)
	if err != nil {
		return err
	}
	_, err = ref.Set(ctx, kvDocument{Value: string(value), UpdatedAt: time.Now().UTC()})
	return pfirestore.WrapError("drafts.put", err)
}

func (f *FirestoreKV) Update(ctx context.Context, key string, fn UpdateFunc) error {
	ref, err := f.doc(ctx, key)
	if err != nil {
		return err
	}
	return f.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var current []byte
		snap, err := tx.Get(ref)
		switch {
		case err == nil:
			var doc kvDocument
			if err := snap.DataTo(&doc); err != nil {
				return err
			}
			current = []byte(doc.Value)
		case !pfirestore.IsNotFound(pfirestore.WrapError("drafts.update", err)):
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		return tx.Set(ref, kvDocument{Value: string(next), UpdatedAt: time.Now().UTC()})
	})
}

func (f *FirestoreKV) Close() error {
	return f.provider.Close()
}
