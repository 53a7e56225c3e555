package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cyclelog/platform/internal/domain"
	"github.com/cyclelog/platform/internal/infra"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// gamificationKey is the key of the gamification document inside profiles.settings.
const gamificationKey = "gamification"

// PgProfileRepository implements ProfileRepository using pgx.
type PgProfileRepository struct{}

// NewPgProfileRepository creates a new PgProfileRepository.
func NewPgProfileRepository() *PgProfileRepository {
	return &PgProfileRepository{}
}

// FindGamification returns the stored profile merged over the defaults and
// the row's gamification version (0 when there is no row).
func (r *PgProfileRepository) FindGamification(ctx context.Context, db DBTX, userID uuid.UUID) (domain.Profile, int64, bool, error) {
	var (
		settings []byte
		version  int64
	)
	err := db.QueryRow(ctx,
		`SELECT settings, gamification_version FROM profiles WHERE id = $1`, userID).Scan(&settings, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DefaultProfile(), 0, false, nil
	}
	if err != nil {
		return domain.Profile{}, 0, false, fmt.Errorf("find profile settings: %w", err)
	}

	doc := infra.ParseDocument(settings)
	if _, ok := doc[gamificationKey]; !ok {
		return domain.DefaultProfile(), version, false, nil
	}
	return DecodeProfile(doc.Sub(gamificationKey)), version, true, nil
}

// LockVersion creates the profile row when missing, locks it for the rest of
// the transaction and returns its gamification version.
func (r *PgProfileRepository) LockVersion(ctx context.Context, db DBTX, userID uuid.UUID) (int64, error) {
	if _, err := db.Exec(ctx,
		`INSERT INTO profiles (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, userID); err != nil {
		return 0, fmt.Errorf("ensure profile row: %w", err)
	}
	var version int64
	err := db.QueryRow(ctx,
		`SELECT gamification_version FROM profiles WHERE id = $1 FOR UPDATE`, userID).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("lock profile row: %w", err)
	}
	return version, nil
}

// SaveGamification replaces settings.gamification, leaving other settings
// untouched, and bumps the gamification version.
func (r *PgProfileRepository) SaveGamification(ctx context.Context, db DBTX, userID uuid.UUID, profile domain.Profile) error {
	doc, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	_, err = db.Exec(ctx, `
		INSERT INTO profiles (id, settings, gamification_version)
		VALUES ($1, jsonb_build_object('gamification', $2::jsonb), 1)
		ON CONFLICT (id) DO UPDATE SET
		  settings = jsonb_set(COALESCE(profiles.settings, '{}'::jsonb), '{gamification}', $2::jsonb, true),
		  gamification_version = profiles.gamification_version + 1,
		  updated_at = now()`,
		userID, doc)
	if err != nil {
		return fmt.Errorf("save profile settings: %w", err)
	}
	return nil
}

// DecodeProfile reads a gamification document written by any client version.
// Older documents use camelCase keys and may store numbers as strings.
// Missing fields fall back to DefaultProfile.
func DecodeProfile(doc infra.Document) domain.Profile {
	p := domain.Profile{
		Level:          doc.Int("level"),
		CurrentXP:      doc.Int("current_xp", "currentXP", "xp"),
		NextLevelXP:    doc.Int("next_level_xp", "nextLevelXP"),
		TotalXP:        doc.Int("total_xp", "totalXP"),
		StreakDays:     doc.Int("streak_days", "streakDays", "streak"),
		LastActiveDate: doc.String("last_active_date", "lastActiveDate"),
		Titles:         doc.Strings("titles"),
		EquippedTitle:  doc.String("equipped_title", "equippedTitle", "active_title"),
	}
	return p.WithDefaults()
}
