package models

import "time"

// Content is the metadata of a premium content item. The encrypted body lives
// in the blob store under StorageKey.
type Content struct {
	ID         string    `db:"id"`
	Tier       string    `db:"tier"`
	Teaser     string    `db:"teaser"`
	StorageKey string    `db:"storage_key"`
	CreatedAt  time.Time `db:"created_at"`
}
