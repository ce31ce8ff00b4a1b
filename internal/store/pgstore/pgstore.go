// Package pgstore is the postgres implementation of store.Store.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DoyleJ11/cs-match-backend/internal/engine"
	"github.com/DoyleJ11/cs-match-backend/internal/store"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const uniqueViolation = "23505"

type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

func Open(dsn string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.New(zap.NewStdLog(log.Named("gorm")), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return &Store{db: db}, nil
}

// Migrate creates or updates the tables.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&matchRow{},
		&eventRow{},
		&mapRow{},
		&poolRow{},
		&configRow{},
		&playerRow{},
		&serverRow{},
	)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func mapErr(err error, what string) error {
	var pgErr *pgconn.PgError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %s", engine.ErrNotFound, what)
	case errors.As(err, &pgErr) && pgErr.Code == uniqueViolation:
		return fmt.Errorf("%w: %s already exists (%s)", engine.ErrValidation, what, pgErr.ConstraintName)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (s *Store) CreateMatch(ctx context.Context, m engine.Match) (engine.Match, error) {
	m.Version = 1
	row := newMatchRow(m)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return engine.Match{}, mapErr(err, "match "+m.ID)
	}
	return m, nil
}

func (s *Store) GetMatch(ctx context.Context, id string) (engine.Match, error) {
	var row matchRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return engine.Match{}, mapErr(err, "match "+id)
	}
	return row.match(), nil
}

func (s *Store) SaveMatch(ctx context.Context, m engine.Match, events []engine.Event) (engine.Match, error) {
	expected := m.Version
	m.Version++
	row := newMatchRow(m)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&row).
			Where("version = ?", expected).
			Select("version", "status", "server_id", "guild_id", "data", "updated_at").
			Updates(&row)
		if res.Error != nil {
			return mapErr(res.Error, "match "+m.ID)
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&matchRow{}).Where("id = ?", m.ID).Count(&n).Error; err != nil {
				return mapErr(err, "match "+m.ID)
			}
			if n == 0 {
				return fmt.Errorf("%w: match %s", engine.ErrNotFound, m.ID)
			}
			return fmt.Errorf("%w: match %s is no longer at version %d", store.ErrConflict, m.ID, expected)
		}

		if len(events) == 0 {
			return nil
		}
		rows := make([]eventRow, 0, len(events))
		for _, ev := range events {
			rows = append(rows, eventRow{
				MatchID:   m.ID,
				Version:   m.Version,
				Type:      string(ev.Type),
				Data:      ev,
				CreatedAt: m.UpdatedAt,
			})
		}
		return mapErr(tx.Create(&rows).Error, "events of match "+m.ID)
	})
	if err != nil {
		return engine.Match{}, err
	}
	return m, nil
}

func (s *Store) ListMatches(ctx context.Context, f store.MatchFilter) ([]engine.Match, error) {
	q := s.db.WithContext(ctx).Model(&matchRow{})
	if f.ServerID != "" {
		q = q.Where("server_id = ?", f.ServerID)
	}
	if f.GuildID != "" {
		q = q.Where("guild_id = ?", f.GuildID)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, st := range f.Statuses {
			statuses = append(statuses, string(st))
		}
		q = q.Where("status IN ?", statuses)
	}

	var rows []matchRow
	if err := q.Order("created_at").Find(&rows).Error; err != nil {
		return nil, mapErr(err, "list matches")
	}
	out := make([]engine.Match, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.match())
	}
	return out, nil
}

func (s *Store) MatchEvents(ctx context.Context, matchID string) ([]store.EventRecord, error) {
	db := s.db.WithContext(ctx)
	var n int64
	if err := db.Model(&matchRow{}).Where("id = ?", matchID).Count(&n).Error; err != nil {
		return nil, mapErr(err, "match "+matchID)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: match %s", engine.ErrNotFound, matchID)
	}

	var rows []eventRow
	if err := db.Where("match_id = ?", matchID).Order("seq").Find(&rows).Error; err != nil {
		return nil, mapErr(err, "events of match "+matchID)
	}
	out := make([]store.EventRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, store.EventRecord{
			Seq:       r.Seq,
			MatchID:   r.MatchID,
			Version:   r.Version,
			Event:     r.Data,
			CreatedAt: r.CreatedAt,
		})
	}
	return out, nil
}

func (s *Store) CreateMap(ctx context.Context, mp engine.Map) error {
	row := mapRow{ID: mp.ID, Name: mp.Name, Tag: mp.Tag, GuildID: mp.GuildID}
	return mapErr(s.db.WithContext(ctx).Create(&row).Error, "map "+mp.Tag)
}

func (s *Store) ListMaps(ctx context.Context) ([]engine.Map, error) {
	var rows []mapRow
	if err := s.db.WithContext(ctx).Order("tag").Find(&rows).Error; err != nil {
		return nil, mapErr(err, "list maps")
	}
	out := make([]engine.Map, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toMap())
	}
	return out, nil
}

func (s *Store) CreatePool(ctx context.Context, p engine.MapPool) error {
	db := s.db.WithContext(ctx)
	ids := make([]string, 0, len(p.Maps))
	for _, mp := range p.Maps {
		ids = append(ids, mp.ID)
	}
	var n int64
	if err := db.Model(&mapRow{}).Where("id IN ?", ids).Count(&n).Error; err != nil {
		return mapErr(err, "maps of pool "+p.Name)
	}
	if int(n) != len(ids) {
		return fmt.Errorf("%w: pool %s references unknown maps", engine.ErrNotFound, p.Name)
	}
	row := poolRow{ID: p.ID, Name: p.Name, GuildID: p.GuildID, Maps: p.Maps}
	return mapErr(db.Create(&row).Error, "map pool "+p.Name)
}

func (s *Store) GetPool(ctx context.Context, id string) (engine.MapPool, error) {
	var row poolRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return engine.MapPool{}, mapErr(err, "map pool "+id)
	}
	return row.toPool(), nil
}

func (s *Store) ListPools(ctx context.Context) ([]engine.MapPool, error) {
	var rows []poolRow
	if err := s.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, mapErr(err, "list map pools")
	}
	out := make([]engine.MapPool, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toPool())
	}
	return out, nil
}

func (s *Store) CreateConfig(ctx context.Context, c engine.MatchConfig) error {
	row := configRow{ID: c.ID, Name: c.Name, GuildID: c.GuildID, Data: c}
	return mapErr(s.db.WithContext(ctx).Create(&row).Error, "match config "+c.Name)
}

func (s *Store) GetConfig(ctx context.Context, id string) (engine.MatchConfig, error) {
	var row configRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return engine.MatchConfig{}, mapErr(err, "match config "+id)
	}
	return row.Data, nil
}

func (s *Store) ListConfigs(ctx context.Context) ([]engine.MatchConfig, error) {
	var rows []configRow
	if err := s.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, mapErr(err, "list match configs")
	}
	out := make([]engine.MatchConfig, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Data)
	}
	return out, nil
}

func (s *Store) UpsertPlayer(ctx context.Context, p engine.Player) error {
	if p.DiscordID == "" {
		return fmt.Errorf("%w: player discord id is required", engine.ErrValidation)
	}
	row := playerRow{ID: p.ID, DiscordID: p.DiscordID, Username: p.Username, SteamID: p.SteamID, SteamName: p.SteamName}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "discord_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "steam_id", "steam_name"}),
	}).Create(&row).Error
	return mapErr(err, "player "+p.DiscordID)
}

func (s *Store) PlayerByDiscordID(ctx context.Context, discordID string) (engine.Player, error) {
	var row playerRow
	if err := s.db.WithContext(ctx).First(&row, "discord_id = ?", discordID).Error; err != nil {
		return engine.Player{}, mapErr(err, "player with discord id "+discordID)
	}
	return row.toPlayer(), nil
}

func (s *Store) CreateServer(ctx context.Context, srv engine.Server) error {
	row := serverRow{
		ID:         srv.ID,
		Name:       srv.Name,
		Host:       srv.Host,
		Port:       srv.Port,
		Password:   srv.Password,
		WebhookURL: srv.WebhookURL,
		GuildID:    srv.GuildID,
	}
	return mapErr(s.db.WithContext(ctx).Create(&row).Error, "server "+srv.Name)
}

func (s *Store) GetServer(ctx context.Context, id string) (engine.Server, error) {
	var row serverRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return engine.Server{}, mapErr(err, "server "+id)
	}
	return row.toServer(), nil
}

func (s *Store) ListServers(ctx context.Context) ([]engine.Server, error) {
	var rows []serverRow
	if err := s.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, mapErr(err, "list servers")
	}
	out := make([]engine.Server, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toServer())
	}
	return out, nil
}
