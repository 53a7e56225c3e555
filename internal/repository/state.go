package repository

import (
	"context"
	"fmt"

	"github.com/cyclelog/platform/internal/domain"
	"github.com/google/uuid"
)

// PgStateStore persists gamification state across profiles.settings, missions
// and achievements. Save is all-or-nothing and writes the pass's events to
// the outbox in the same transaction.
//
// Writers are serialized across processes by the profile row: Save locks it
// and only commits when its gamification_version still equals the version
// the state was loaded at.
type PgStateStore struct {
	db           TxBeginner
	profiles     ProfileRepository
	missions     MissionRepository
	achievements AchievementRepository
	outbox       OutboxRepository
}

// NewPgStateStore creates a new PgStateStore.
func NewPgStateStore(db TxBeginner, profiles ProfileRepository, missions MissionRepository, achievements AchievementRepository, outbox OutboxRepository) *PgStateStore {
	return &PgStateStore{
		db:           db,
		profiles:     profiles,
		missions:     missions,
		achievements: achievements,
		outbox:       outbox,
	}
}

// Load reads the stored state. found is false when nothing was ever saved for the user.
func (s *PgStateStore) Load(ctx context.Context, userID uuid.UUID) (domain.StoredState, bool, error) {
	// The version is read first so that anything saved after it makes this
	// load stale rather than silently mixed.
	profile, version, found, err := s.profiles.FindGamification(ctx, s.db, userID)
	if err != nil {
		return domain.StoredState{}, false, err
	}
	quests, err := s.missions.ListByUser(ctx, s.db, userID)
	if err != nil {
		return domain.StoredState{}, false, err
	}
	unlocks, err := s.achievements.ListByUser(ctx, s.db, userID)
	if err != nil {
		return domain.StoredState{}, false, err
	}

	return domain.StoredState{
		UserID:  userID,
		Profile: profile,
		Quests:  quests,
		Unlocks: unlocks,
		Version: version,
	}, found || len(quests) > 0 || len(unlocks) > 0, nil
}

// Save writes the whole state and its events in one transaction.
func (s *PgStateStore) Save(ctx context.Context, state domain.StoredState, events []domain.Event) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := s.profiles.LockVersion(ctx, tx, state.UserID)
	if err != nil {
		return err
	}
	if current != state.Version {
		return domain.ErrConflict(fmt.Sprintf("gamification state is at version %d, pass loaded %d", current, state.Version))
	}

	if err := s.profiles.SaveGamification(ctx, tx, state.UserID, state.Profile); err != nil {
		return err
	}
	if err := s.missions.Upsert(ctx, tx, state.UserID, state.Quests); err != nil {
		return err
	}
	if err := s.achievements.Insert(ctx, tx, state.UserID, state.Unlocks); err != nil {
		return err
	}
	if err := s.outbox.Insert(ctx, tx, events); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
