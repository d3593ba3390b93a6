package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vitalboard/server/internal/models"
	apperrors "github.com/vitalboard/server/pkg/errors"
	"github.com/vitalboard/server/pkg/logger"
)

const defaultFlushDelay = 500 * time.Millisecond

// ProfileService persists per-account dashboard customisations. Favorite
// updates arrive in rapid bursts as the user toggles cards, so writes
// are coalesced per email and flushed once the burst settles; reads see
// pending writes because Get flushes first.
type ProfileService struct {
	db         *gorm.DB
	flushDelay time.Duration
	log        *zap.Logger

	mu      sync.Mutex
	pending map[string]*pendingFavorites
}

type pendingFavorites struct {
	favorites datatypes.JSON
	timer     *time.Timer
}

// ProfileOption customises the profile service.
type ProfileOption func(*ProfileService)

// WithFlushDelay overrides how long a favorites burst may settle before
// the coalesced write is issued.
func WithFlushDelay(d time.Duration) ProfileOption {
	return func(s *ProfileService) {
		if d >= 0 {
			s.flushDelay = d
		}
	}
}

// NewProfileService constructs a ProfileService backed by the relational store.
func NewProfileService(db *gorm.DB, opts ...ProfileOption) (*ProfileService, error) {
	if db == nil {
		return nil, fmt.Errorf("profile service: db is required")
	}

	service := &ProfileService{
		db:         db,
		flushDelay: defaultFlushDelay,
		log:        logger.WithModule("profiles"),
		pending:    make(map[string]*pendingFavorites),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Get returns the profile for an email, flushing any pending favorites
// write first so callers never read behind their own updates. An account
// without a stored profile gets an empty one.
func (s *ProfileService) Get(ctx context.Context, email string) (models.Profile, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return models.Profile{}, apperrors.NewBadRequest("email is required")
	}

	if err := s.flush(ctx, email); err != nil {
		return models.Profile{}, err
	}

	var profile models.Profile
	err := s.db.WithContext(ctx).Where("user_email = ?", email).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Profile{UserEmail: email, Favorites: datatypes.JSON([]byte("[]"))}, nil
		}
		return models.Profile{}, apperrors.ErrInternalServer.WithInternal(err)
	}

	return profile, nil
}

// SetFavorites records the latest favorites list for an email and
// schedules a coalesced upsert. The call returns before the row is
// written; a later call within the settle window replaces the pending
// value and resets the timer.
func (s *ProfileService) SetFavorites(ctx context.Context, email string, favorites []string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperrors.NewBadRequest("email is required")
	}
	if favorites == nil {
		favorites = []string{}
	}

	encoded, err := json.Marshal(favorites)
	if err != nil {
		return apperrors.ErrInternalServer.WithInternal(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.pending[email]; ok {
		entry.favorites = datatypes.JSON(encoded)
		entry.timer.Reset(s.flushDelay)
		return nil
	}

	entry := &pendingFavorites{favorites: datatypes.JSON(encoded)}
	entry.timer = time.AfterFunc(s.flushDelay, func() {
		if err := s.flush(context.Background(), email); err != nil {
			s.log.Error("favorites flush failed", zap.String("email", email), zap.Error(err))
		}
	})
	s.pending[email] = entry

	return nil
}

// Flush writes out every pending favorites update. Called on shutdown.
func (s *ProfileService) Flush(ctx context.Context) error {
	s.mu.Lock()
	emails := make([]string, 0, len(s.pending))
	for email := range s.pending {
		emails = append(emails, email)
	}
	s.mu.Unlock()

	var firstErr error
	for _, email := range emails {
		if err := s.flush(ctx, email); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// flush upserts the pending favorites for one email, if any. The unique
// index on user_email makes the upsert atomic, so concurrent flushes for
// the same email cannot fork the row.
func (s *ProfileService) flush(ctx context.Context, email string) error {
	s.mu.Lock()
	entry, ok := s.pending[email]
	if ok {
		entry.timer.Stop()
		delete(s.pending, email)
	}
	s.mu.Unlock()

	if !ok {
		return nil
	}

	profile := models.Profile{
		UserEmail: email,
		Favorites: entry.favorites,
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_email"}},
			DoUpdates: clause.AssignmentColumns([]string{"favorites", "updated_at"}),
		}).
		Create(&profile).Error
	if err != nil {
		return apperrors.ErrInternalServer.WithInternal(err)
	}

	return nil
}
