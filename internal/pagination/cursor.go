// Package pagination provides keyset (cursor) pagination over the audit log.
// Cursors encode the (created_at, id) tuple of the last row in a page, so
// pages stay stable while new entries arrive: offset pagination would skip or
// duplicate rows as the log grows at its head.
package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Cursor points just past the last row of a page in (created_at DESC, id DESC)
// order.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// Encode serializes the cursor into an opaque URL-safe token.
func (c Cursor) Encode() string {
	raw := fmt.Sprintf("%s|%s", c.CreatedAt.UTC().Format(time.RFC3339Nano), c.ID)
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

// Decode parses a token produced by Encode.
func Decode(token string) (*Cursor, error) {
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor encoding: %w", err)
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, fmt.Errorf("invalid cursor format")
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid cursor timestamp: %w", err)
	}
	return &Cursor{CreatedAt: ts, ID: parts[1]}, nil
}

// Keyset returns a GORM scope that orders newest first and, when a cursor is
// present, filters to rows strictly older than it. The id tie-break keeps
// rows sharing a timestamp from being skipped or repeated across pages.
func Keyset(cursor *Cursor, limit int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Order("created_at DESC, id DESC")
		if limit > 0 {
			db = db.Limit(limit)
		}
		if cursor == nil {
			return db
		}
		return db.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
}
