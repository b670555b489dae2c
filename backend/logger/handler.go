package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/PhilHem/go-dashboard-shell/backend/models"

	"gorm.io/gorm"
)

// DBHandler is the local diagnostic channel: every record goes to stdout as
// JSON and into the log_entries table.
type DBHandler struct {
	db          *gorm.DB
	jsonHandler slog.Handler
	attrs       []slog.Attr
}

func NewDBHandler(db *gorm.DB) *DBHandler {
	return NewDBHandlerWriter(db, os.Stdout)
}

// NewDBHandlerWriter is NewDBHandler with the JSON copy sent to w.
func NewDBHandlerWriter(db *gorm.DB, w io.Writer) *DBHandler {
	return &DBHandler{
		db:          db,
		jsonHandler: slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}),
		attrs:       []slog.Attr{},
	}
}

func extractUserID(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return fmt.Sprint(v.Int64())
	case slog.KindUint64:
		return fmt.Sprint(v.Uint64())
	default:
		return ""
	}
}

func (h *DBHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return true
}

func (h *DBHandler) Handle(ctx context.Context, r slog.Record) error {
	_ = h.jsonHandler.Handle(ctx, r)

	attrs := make(map[string]any)
	var source string
	var userID *string

	collect := func(a slog.Attr) {
		switch a.Key {
		case "source":
			source = a.Value.String()
		case "user_id":
			if id := extractUserID(a.Value); id != "" {
				userID = &id
			}
		default:
			attrs[a.Key] = a.Value.Any()
		}
	}

	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		collect(a)
		return true
	})

	var data string
	if len(attrs) > 0 {
		b, _ := json.Marshal(attrs)
		data = string(b)
	}

	entry := models.LogEntry{
		CreatedAt: time.Now(),
		Level:     r.Level.String(),
		Message:   r.Message,
		Source:    source,
		UserID:    userID,
		Data:      data,
	}

	return h.db.Create(&entry).Error
}

func (h *DBHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	copy(newAttrs[len(h.attrs):], attrs)
	return &DBHandler{
		db:          h.db,
		jsonHandler: h.jsonHandler.WithAttrs(attrs),
		attrs:       newAttrs,
	}
}

func (h *DBHandler) WithGroup(name string) slog.Handler {
	return h
}

// PruneLogs deletes log rows older than maxAge and returns how many went.
func PruneLogs(db *gorm.DB, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	res := db.Where("created_at < ?", cutoff).Delete(&models.LogEntry{})
	return res.RowsAffected, res.Error
}

// UsedBytes reports how much of the database file holds live pages.
func UsedBytes(db *gorm.DB) (int64, error) {
	var pages, free, size int64
	if err := db.Raw("PRAGMA page_count").Scan(&pages).Error; err != nil {
		return 0, err
	}
	if err := db.Raw("PRAGMA freelist_count").Scan(&free).Error; err != nil {
		return 0, err
	}
	if err := db.Raw("PRAGMA page_size").Scan(&size).Error; err != nil {
		return 0, err
	}
	return (pages - free) * size, nil
}

// PruneToSize deletes the oldest log rows, a tenth of the table at a time,
// until the database uses at most maxBytes. maxBytes <= 0 disables it.
func PruneToSize(db *gorm.DB, maxBytes int64) (int64, error) {
	if maxBytes <= 0 {
		return 0, nil
	}
	var deleted int64
	for {
		used, err := UsedBytes(db)
		if err != nil || used <= maxBytes {
			return deleted, err
		}
		var total int64
		if err := db.Model(&models.LogEntry{}).Count(&total).Error; err != nil {
			return deleted, err
		}
		if total == 0 {
			return deleted, nil
		}
		batch := total / 10
		if batch == 0 {
			batch = 1
		}
		var ids []uint
		if err := db.Model(&models.LogEntry{}).Order("id").Limit(int(batch)).Pluck("id", &ids).Error; err != nil {
			return deleted, err
		}
		res := db.Where("id IN ?", ids).Delete(&models.LogEntry{})
		if res.Error != nil {
			return deleted, res.Error
		}
		if res.RowsAffected == 0 {
			return deleted, nil
		}
		deleted += res.RowsAffected
	}
}

// CleanupOldLogs prunes logs older than maxAge, then trims the oldest rows
// while the database is larger than maxBytes, every interval until ctx ends.
func CleanupOldLogs(ctx context.Context, db *gorm.DB, maxAge time.Duration, maxBytes int64, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := PruneLogs(db, maxAge); err != nil {
				slog.Error("log cleanup failed", "source", "logger", "error", err.Error())
			}
			if n, err := PruneToSize(db, maxBytes); err != nil {
				slog.Error("log size cleanup failed", "source", "logger", "error", err.Error())
			} else if n > 0 {
				slog.Warn("log table over size limit, oldest entries dropped", "source", "logger", "deleted", n, "max_bytes", maxBytes)
			}
		}
	}
}
