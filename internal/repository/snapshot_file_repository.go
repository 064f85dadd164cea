package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/models"
	"github.com/Kotbarsikow/Shed-parser-nuwee/pkg/storage"
)

// SnapshotFileRepository keeps the last synced schedule as a JSON array in one file.
type SnapshotFileRepository struct {
	store    *storage.LocalStorage
	filename string
}

// NewSnapshotFileRepository stores the snapshot under filename inside store.
func NewSnapshotFileRepository(store *storage.LocalStorage, filename string) *SnapshotFileRepository {
	return &SnapshotFileRepository{store: store, filename: filename}
}

// Load returns the stored schedule, or an empty one when the file is absent.
func (r *SnapshotFileRepository) Load(ctx context.Context) ([]models.LessonRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := r.store.Read(r.filename)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return []models.LessonRecord{}, nil
		}
		return nil, fmt.Errorf("load schedule snapshot: %w", err)
	}
	return decodeSnapshot(raw)
}

// Persist overwrites the snapshot file atomically.
func (r *SnapshotFileRepository) Persist(ctx context.Context, records []models.LessonRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := encodeSnapshot(records, true)
	if err != nil {
		return err
	}
	if err := r.store.WriteAtomic(r.filename, payload, 0o644); err != nil {
		return fmt.Errorf("persist schedule snapshot: %w", err)
	}
	return nil
}

func encodeSnapshot(records []models.LessonRecord, indent bool) ([]byte, error) {
	if records == nil {
		records = []models.LessonRecord{}
	}
	var (
		payload []byte
		err     error
	)
	if indent {
		payload, err = json.MarshalIndent(records, "", "  ")
	} else {
		payload, err = json.Marshal(records)
	}
	if err != nil {
		return nil, fmt.Errorf("encode schedule snapshot: %w", err)
	}
	return payload, nil
}

func decodeSnapshot(raw []byte) ([]models.LessonRecord, error) {
	records := []models.LessonRecord{}
	if len(raw) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode schedule snapshot: %w", err)
	}
	return records, nil
}
