package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/DoyleJ11/cs-match-backend/internal/engine"
	"github.com/DoyleJ11/cs-match-backend/pkg/types"
	"github.com/google/uuid"
)

func (s *Service) CreateMap(ctx context.Context, req types.CreateMapRequest) (engine.Map, error) {
	name, tag := strings.TrimSpace(req.Name), strings.TrimSpace(req.Tag)
	if name == "" || tag == "" {
		return engine.Map{}, fmt.Errorf("%w: map name and tag are required", engine.ErrValidation)
	}
	mp := engine.Map{ID: uuid.NewString(), Name: name, Tag: tag, GuildID: req.GuildID}
	if err := s.store.CreateMap(ctx, mp); err != nil {
		return engine.Map{}, err
	}
	return mp, nil
}

func (s *Service) ListMaps(ctx context.Context) ([]engine.Map, error) {
	return s.store.ListMaps(ctx)
}

func (s *Service) CreatePool(ctx context.Context, req types.CreatePoolRequest) (engine.MapPool, error) {
	known, err := s.store.ListMaps(ctx)
	if err != nil {
		return engine.MapPool{}, err
	}
	byID := make(map[string]engine.Map, len(known))
	for _, mp := range known {
		byID[mp.ID] = mp
	}

	maps := make([]engine.Map, 0, len(req.MapIDs))
	for _, id := range req.MapIDs {
		mp, ok := byID[id]
		if !ok {
			return engine.MapPool{}, fmt.Errorf("%w: map %s", engine.ErrNotFound, id)
		}
		maps = append(maps, mp)
	}
	pool, err := engine.NewMapPool(uuid.NewString(), req.Name, req.GuildID, maps)
	if err != nil {
		return engine.MapPool{}, err
	}
	if err := s.store.CreatePool(ctx, pool); err != nil {
		return engine.MapPool{}, err
	}
	return pool, nil
}

func (s *Service) ListPools(ctx context.Context) ([]engine.MapPool, error) {
	return s.store.ListPools(ctx)
}

func (s *Service) CreateConfig(ctx context.Context, req types.CreateConfigRequest) (engine.MatchConfig, error) {
	format, err := engine.ParseFormat(req.Type)
	if err != nil {
		return engine.MatchConfig{}, err
	}
	sides, err := parseSides(req.MapSides)
	if err != nil {
		return engine.MatchConfig{}, err
	}
	sequence, err := parseSequence(req.VetoSequence)
	if err != nil {
		return engine.MatchConfig{}, err
	}
	pool, err := s.store.GetPool(ctx, req.MapPoolID)
	if err != nil {
		return engine.MatchConfig{}, err
	}

	mode := engine.GameMode(strings.ToUpper(req.GameMode))
	if mode == "" {
		mode = engine.GameModeCompetitive
	}
	cfg := engine.MatchConfig{
		ID:           uuid.NewString(),
		Name:         req.Name,
		GameMode:     mode,
		Format:       format,
		MapPool:      pool,
		MapSides:     sides,
		ClinchSeries: req.ClinchSeries,
		MaxPlayers:   req.MaxPlayers,
		CVars:        req.CVars,
		ShuffleTeams: req.ShuffleTeams,
		VetoSequence: sequence,
		GuildID:      req.GuildID,
	}
	if err := cfg.Validate(); err != nil {
		return engine.MatchConfig{}, err
	}
	if err := s.store.CreateConfig(ctx, cfg); err != nil {
		return engine.MatchConfig{}, err
	}
	return cfg, nil
}

func (s *Service) ListConfigs(ctx context.Context) ([]engine.MatchConfig, error) {
	return s.store.ListConfigs(ctx)
}

func (s *Service) CreateServer(ctx context.Context, req types.CreateServerRequest) (engine.Server, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Host) == "" {
		return engine.Server{}, fmt.Errorf("%w: server name and host are required", engine.ErrValidation)
	}
	if req.Port <= 0 || req.Port > 65535 {
		return engine.Server{}, fmt.Errorf("%w: server port %d out of range", engine.ErrValidation, req.Port)
	}
	srv := engine.Server{
		ID:         uuid.NewString(),
		Name:       req.Name,
		Host:       req.Host,
		Port:       req.Port,
		Password:   req.Password,
		WebhookURL: req.WebhookURL,
		GuildID:    req.GuildID,
	}
	if err := s.store.CreateServer(ctx, srv); err != nil {
		return engine.Server{}, err
	}
	return srv, nil
}

func (s *Service) ListServers(ctx context.Context) ([]engine.Server, error) {
	return s.store.ListServers(ctx)
}

// UpsertPlayer registers a discord user, keeping the local id of a known one.
func (s *Service) UpsertPlayer(ctx context.Context, req types.UpsertPlayerRequest) (engine.Player, error) {
	p := engine.Player{
		DiscordID: req.DiscordID,
		Username:  req.Username,
		SteamID:   req.SteamID,
		SteamName: req.SteamName,
	}
	existing, err := s.store.PlayerByDiscordID(ctx, req.DiscordID)
	switch {
	case err == nil:
		p.ID = existing.ID
	case errors.Is(err, engine.ErrNotFound):
		p.ID = uuid.NewString()
	default:
		return engine.Player{}, err
	}
	if err := s.store.UpsertPlayer(ctx, p); err != nil {
		return engine.Player{}, err
	}
	return p, nil
}

func parseSides(raw []string) ([]engine.MapSide, error) {
	sides := make([]engine.MapSide, 0, len(raw))
	for _, r := range raw {
		side := engine.MapSide(strings.ToLower(r))
		if !side.Valid() {
			return nil, fmt.Errorf("%w: unknown map side %q", engine.ErrValidation, r)
		}
		sides = append(sides, side)
	}
	return sides, nil
}

func parseSequence(raw []string) ([]engine.Action, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	seq := make([]engine.Action, 0, len(raw))
	for _, r := range raw {
		switch a := engine.Action(strings.ToLower(r)); a {
		case engine.ActionBan, engine.ActionPick:
			seq = append(seq, a)
		default:
			return nil, fmt.Errorf("%w: unknown veto action %q", engine.ErrValidation, r)
		}
	}
	return seq, nil
}
