package db_client

import (
	"errors"

	"Nocturne/queue"
	"Nocturne/session"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CatalogueSong is one catalogued track with its per-guild counters
type CatalogueSong struct {
	VideoID   string `gorm:"primaryKey"`
	GuildID   string `gorm:"primaryKey"`
	Title     string
	SourceURL string
	PlayCount int
	PickCount int
}

// GuildConfig is the persisted per-guild configuration
type GuildConfig struct {
	GuildID          string `gorm:"primaryKey"`
	Volume           int
	CommandChannelID string
	ElevatedRoleID   string
}

// Store implements the session layer's persistence collaborator on gorm
type Store struct {
	db *gorm.DB
}

// NewStore wraps a connected gorm handle
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// EnsureCatalogued inserts the song into the guild's catalogue if it isn't
// there yet.
func (s *Store) EnsureCatalogued(guildID string, song *queue.Song) error {
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&CatalogueSong{
		VideoID:   song.ID,
		GuildID:   guildID,
		Title:     song.Title,
		SourceURL: song.SourceURL,
	}).Error
}

// IncrementPlayCount bumps the play counter for a catalogued song
func (s *Store) IncrementPlayCount(guildID, songID string) error {
	return s.db.Model(&CatalogueSong{}).
		Where("guild_id = ? AND video_id = ?", guildID, songID).
		UpdateColumn("play_count", gorm.Expr("play_count + 1")).Error
}

// IncrementPickCount bumps the random-pick counter for a catalogued song
func (s *Store) IncrementPickCount(guildID, songID string) error {
	return s.db.Model(&CatalogueSong{}).
		Where("guild_id = ? AND video_id = ?", guildID, songID).
		UpdateColumn("pick_count", gorm.Expr("pick_count + 1")).Error
}

// RandomSongID draws one catalogued identifier for the guild
func (s *Store) RandomSongID(guildID string) (string, error) {
	var entry CatalogueSong
	err := s.db.Where("guild_id = ?", guildID).
		Order("random()").
		Limit(1).
		Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", session.ErrCatalogueEmpty
	}
	if err != nil {
		return "", err
	}
	return entry.VideoID, nil
}

// LoadSettings reads the guild's configuration, defaults when absent
func (s *Store) LoadSettings(guildID string) (session.GuildSettings, error) {
	var cfg GuildConfig
	err := s.db.Where("guild_id = ?", guildID).Take(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return session.GuildSettings{Volume: 100}, nil
	}
	if err != nil {
		return session.GuildSettings{}, err
	}
	return session.GuildSettings{
		Volume:           cfg.Volume,
		CommandChannelID: cfg.CommandChannelID,
		ElevatedRoleID:   cfg.ElevatedRoleID,
	}, nil
}

// SaveSettings upserts the guild's configuration
func (s *Store) SaveSettings(guildID string, settings session.GuildSettings) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "guild_id"}},
		UpdateAll: true,
	}).Create(&GuildConfig{
		GuildID:          guildID,
		Volume:           settings.Volume,
		CommandChannelID: settings.CommandChannelID,
		ElevatedRoleID:   settings.ElevatedRoleID,
	}).Error
}
