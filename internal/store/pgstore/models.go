package pgstore

import (
	"time"

	"github.com/DoyleJ11/cs-match-backend/internal/engine"
)

// matchRow keeps the aggregate as a json document. The columns next to it are
// copies used for filtering and for the version check.
type matchRow struct {
	ID        string       `gorm:"primaryKey"`
	Version   int          `gorm:"not null"`
	Status    string       `gorm:"index;not null"`
	ServerID  string       `gorm:"index"`
	GuildID   string       `gorm:"index"`
	Data      engine.Match `gorm:"serializer:json;type:jsonb;not null"`
	CreatedAt time.Time    `gorm:"index"`
	UpdatedAt time.Time
}

func (matchRow) TableName() string { return "matches" }

func newMatchRow(m engine.Match) matchRow {
	return matchRow{
		ID:        m.ID,
		Version:   m.Version,
		Status:    string(m.Status),
		ServerID:  m.ServerID,
		GuildID:   m.GuildID,
		Data:      m,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func (r matchRow) match() engine.Match {
	m := r.Data
	m.Version = r.Version
	return m
}

type eventRow struct {
	Seq       int64        `gorm:"primaryKey;autoIncrement"`
	MatchID   string       `gorm:"index;not null"`
	Version   int          `gorm:"not null"`
	Type      string       `gorm:"not null"`
	Data      engine.Event `gorm:"serializer:json;type:jsonb"`
	CreatedAt time.Time
}

func (eventRow) TableName() string { return "match_events" }

type mapRow struct {
	ID      string `gorm:"primaryKey"`
	Name    string `gorm:"uniqueIndex;not null"`
	Tag     string `gorm:"uniqueIndex;not null"`
	GuildID string
}

func (mapRow) TableName() string { return "maps" }

func (r mapRow) toMap() engine.Map {
	return engine.Map{ID: r.ID, Name: r.Name, Tag: r.Tag, GuildID: r.GuildID}
}

type poolRow struct {
	ID      string `gorm:"primaryKey"`
	Name    string `gorm:"not null"`
	GuildID string
	Maps    []engine.Map `gorm:"serializer:json;type:jsonb"`
}

func (poolRow) TableName() string { return "map_pools" }

func (r poolRow) toPool() engine.MapPool {
	return engine.MapPool{ID: r.ID, Name: r.Name, GuildID: r.GuildID, Maps: r.Maps}
}

type configRow struct {
	ID      string             `gorm:"primaryKey"`
	Name    string             `gorm:"not null"`
	GuildID string             `gorm:"index"`
	Data    engine.MatchConfig `gorm:"serializer:json;type:jsonb;not null"`
}

func (configRow) TableName() string { return "match_configs" }

type playerRow struct {
	ID        string `gorm:"primaryKey"`
	DiscordID string `gorm:"uniqueIndex;not null"`
	Username  string
	SteamID   string
	SteamName string
}

func (playerRow) TableName() string { return "players" }

func (r playerRow) toPlayer() engine.Player {
	return engine.Player{ID: r.ID, DiscordID: r.DiscordID, Username: r.Username, SteamID: r.SteamID, SteamName: r.SteamName}
}

type serverRow struct {
	ID         string `gorm:"primaryKey"`
	Name       string `gorm:"not null"`
	Host       string `gorm:"not null"`
	Port       int    `gorm:"not null"`
	Password   string
	WebhookURL string
	GuildID    string
}

func (serverRow) TableName() string { return "servers" }

func (r serverRow) toServer() engine.Server {
	return engine.Server{
		ID:         r.ID,
		Name:       r.Name,
		Host:       r.Host,
		Port:       r.Port,
		Password:   r.Password,
		WebhookURL: r.WebhookURL,
		GuildID:    r.GuildID,
	}
}
