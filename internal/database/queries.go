package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bsaff/better-reads/pkg/models"
)

// GetProfile retrieves the cached profile for a reader. A missing entry and a
// corrupt one are treated the same way: (nil, nil), forcing a re-scrape.
func (db *DB) GetProfile(userID string) (*models.Profile, error) {
	var data string
	err := db.QueryRow("SELECT data FROM profiles WHERE user_id = ?", userID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying profile: %w", err)
	}

	var profile models.Profile
	if err := json.Unmarshal([]byte(data), &profile); err != nil {
		return nil, nil
	}
	return &profile, nil
}

// PutProfile stores a profile, unconditionally replacing any existing entry
// for the same reader (last write wins).
func (db *DB) PutProfile(profile *models.Profile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshaling profile: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO profiles (user_id, data, cached_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, cached_at = excluded.cached_at`,
		profile.UserID, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting profile: %w", err)
	}
	return nil
}

// DeleteProfile removes a cached profile.
func (db *DB) DeleteProfile(userID string) error {
	_, err := db.Exec("DELETE FROM profiles WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("deleting profile: %w", err)
	}
	return nil
}

// TouchRecentProfile records that a reader was just viewed and prunes the
// list down to the most recent entries.
func (db *DB) TouchRecentProfile(userID string, userName *string, totalBooks int) error {
	_, err := db.Exec(`
		INSERT INTO recent_profiles (user_id, user_name, total_books, viewed_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET user_name = excluded.user_name,
			total_books = excluded.total_books, viewed_at = excluded.viewed_at`,
		userID, userName, totalBooks, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting recent profile: %w", err)
	}

	_, err = db.Exec(`
		DELETE FROM recent_profiles WHERE user_id NOT IN (
			SELECT user_id FROM recent_profiles ORDER BY viewed_at DESC LIMIT ?
		)`, maxRecentProfiles,
	)
	if err != nil {
		return fmt.Errorf("pruning recent profiles: %w", err)
	}
	return nil
}

// GetRecentProfiles retrieves recently viewed readers, newest first.
func (db *DB) GetRecentProfiles() ([]models.RecentProfile, error) {
	rows, err := db.Query("SELECT user_id, user_name, total_books, viewed_at FROM recent_profiles ORDER BY viewed_at DESC")
	if err != nil {
		return nil, fmt.Errorf("querying recent profiles: %w", err)
	}
	defer rows.Close()

	var recents []models.RecentProfile
	for rows.Next() {
		var recent models.RecentProfile
		var name sql.NullString
		if err := rows.Scan(&recent.UserID, &name, &recent.TotalBooks, &recent.ViewedAt); err != nil {
			return nil, fmt.Errorf("scanning recent profile: %w", err)
		}
		if name.Valid {
			recent.UserName = &name.String
		}
		recents = append(recents, recent)
	}

	return recents, rows.Err()
}
