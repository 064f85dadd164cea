package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/models"
	"github.com/Kotbarsikow/Shed-parser-nuwee/pkg/secret"
	"github.com/Kotbarsikow/Shed-parser-nuwee/pkg/storage"
)

// CookieRepository persists the timetable session cookies in one file, sealed when a
// sealer is configured.
type CookieRepository struct {
	store    *storage.LocalStorage
	filename string
	sealer   *secret.Sealer
	logger   *zap.Logger
}

// NewCookieRepository constructs the repository. A nil sealer keeps the file in plaintext.
func NewCookieRepository(store *storage.LocalStorage, filename string, sealer *secret.Sealer, logger *zap.Logger) *CookieRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CookieRepository{store: store, filename: filename, sealer: sealer, logger: logger}
}

// Load returns the stored cookies without expired entries. An absent file yields none.
func (r *CookieRepository) Load(ctx context.Context) ([]models.Cookie, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := r.store.Read(r.filename)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("load cookies: %w", err)
	}

	switch {
	case secret.IsSealed(raw) && r.sealer == nil:
		return nil, errors.New("cookie store is sealed but no key is configured")
	case secret.IsSealed(raw):
		if raw, err = r.sealer.Open(raw); err != nil {
			return nil, fmt.Errorf("open cookie store: %w", err)
		}
	case r.sealer != nil:
		r.logger.Warn("cookie store is plaintext, it will be sealed on next save")
	}

	var cookies []models.Cookie
	if err := json.Unmarshal(raw, &cookies); err != nil {
		return nil, fmt.Errorf("decode cookies: %w", err)
	}

	now := time.Now()
	live := cookies[:0]
	for _, c := range cookies {
		if !c.Expired(now) {
			live = append(live, c)
		}
	}
	return live, nil
}

// Save overwrites the cookie file.
func (r *CookieRepository) Save(ctx context.Context, cookies []models.Cookie) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cookies == nil {
		cookies = []models.Cookie{}
	}
	payload, err := json.Marshal(cookies)
	if err != nil {
		return fmt.Errorf("encode cookies: %w", err)
	}
	if r.sealer != nil {
		if payload, err = r.sealer.Seal(payload); err != nil {
			return fmt.Errorf("seal cookies: %w", err)
		}
	}
	if err := r.store.WriteAtomic(r.filename, payload, 0o600); err != nil {
		return fmt.Errorf("save cookies: %w", err)
	}
	r.logger.Info("cookie store updated", zap.Int("cookies", len(cookies)), zap.Bool("sealed", r.sealer != nil))
	return nil
}

// Clear removes the stored session.
func (r *CookieRepository) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.store.Delete(r.filename)
}

// Location returns the path of the cookie file.
func (r *CookieRepository) Location() string {
	return r.store.Path(r.filename)
}
