// Package seed loads a catalog of maps, pools, configs, servers and players
// from YAML and creates whatever is missing.
package seed

import (
	"context"
	"fmt"
	"os"

	"github.com/DoyleJ11/cs-match-backend/internal/service"
	"github.com/DoyleJ11/cs-match-backend/pkg/types"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Catalog struct {
	GuildID string   `yaml:"guild_id"`
	Maps    []Map    `yaml:"maps"`
	Pools   []Pool   `yaml:"pools"`
	Configs []Config `yaml:"configs"`
	Servers []Server `yaml:"servers"`
	Players []Player `yaml:"players"`
}

type Map struct {
	Name string `yaml:"name"`
	Tag  string `yaml:"tag"`
}

// Pool lists its maps by tag.
type Pool struct {
	Name string   `yaml:"name"`
	Maps []string `yaml:"maps"`
}

// Config names its pool.
type Config struct {
	Name         string            `yaml:"name"`
	GameMode     string            `yaml:"game_mode"`
	Type         string            `yaml:"type"`
	Pool         string            `yaml:"pool"`
	MapSides     []string          `yaml:"map_sides"`
	ClinchSeries bool              `yaml:"clinch_series"`
	MaxPlayers   int               `yaml:"max_players"`
	CVars        map[string]string `yaml:"cvars"`
	ShuffleTeams bool              `yaml:"shuffle_teams"`
	VetoSequence []string          `yaml:"veto_sequence"`
}

type Server struct {
	Name       string `yaml:"name"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Password   string `yaml:"password"`
	WebhookURL string `yaml:"webhook_url"`
}

type Player struct {
	DiscordID string `yaml:"discord_id"`
	Username  string `yaml:"username"`
	SteamID   string `yaml:"steam_id"`
	SteamName string `yaml:"steam_name"`
}

func Load(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read seed file: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("unmarshal seed file %s: %w", path, err)
	}
	return c, nil
}

// Summary counts what Apply created.
type Summary struct {
	Maps, Pools, Configs, Servers, Players int
}

// Apply creates the entries of c that do not exist yet, matching maps by tag
// and everything else by name. Players are always upserted.
func Apply(ctx context.Context, svc *service.Service, c Catalog, log *zap.Logger) (Summary, error) {
	var sum Summary

	maps, err := svc.ListMaps(ctx)
	if err != nil {
		return sum, err
	}
	mapIDs := make(map[string]string, len(maps))
	for _, mp := range maps {
		mapIDs[mp.Tag] = mp.ID
	}
	for _, m := range c.Maps {
		if _, ok := mapIDs[m.Tag]; ok {
			continue
		}
		created, err := svc.CreateMap(ctx, types.CreateMapRequest{Name: m.Name, Tag: m.Tag, GuildID: c.GuildID})
		if err != nil {
			return sum, fmt.Errorf("map %s: %w", m.Tag, err)
		}
		mapIDs[created.Tag] = created.ID
		sum.Maps++
	}

	pools, err := svc.ListPools(ctx)
	if err != nil {
		return sum, err
	}
	poolIDs := make(map[string]string, len(pools))
	for _, p := range pools {
		poolIDs[p.Name] = p.ID
	}
	for _, p := range c.Pools {
		if _, ok := poolIDs[p.Name]; ok {
			continue
		}
		ids := make([]string, 0, len(p.Maps))
		for _, tag := range p.Maps {
			id, ok := mapIDs[tag]
			if !ok {
				return sum, fmt.Errorf("pool %s: unknown map %s", p.Name, tag)
			}
			ids = append(ids, id)
		}
		created, err := svc.CreatePool(ctx, types.CreatePoolRequest{Name: p.Name, MapIDs: ids, GuildID: c.GuildID})
		if err != nil {
			return sum, fmt.Errorf("pool %s: %w", p.Name, err)
		}
		poolIDs[created.Name] = created.ID
		sum.Pools++
	}

	configs, err := svc.ListConfigs(ctx)
	if err != nil {
		return sum, err
	}
	haveConfig := make(map[string]bool, len(configs))
	for _, cfg := range configs {
		haveConfig[cfg.Name] = true
	}
	for _, cfg := range c.Configs {
		if haveConfig[cfg.Name] {
			continue
		}
		poolID, ok := poolIDs[cfg.Pool]
		if !ok {
			return sum, fmt.Errorf("config %s: unknown pool %s", cfg.Name, cfg.Pool)
		}
		_, err := svc.CreateConfig(ctx, types.CreateConfigRequest{
			Name:         cfg.Name,
			GameMode:     cfg.GameMode,
			Type:         cfg.Type,
			MapPoolID:    poolID,
			MapSides:     cfg.MapSides,
			ClinchSeries: cfg.ClinchSeries,
			MaxPlayers:   cfg.MaxPlayers,
			CVars:        cfg.CVars,
			ShuffleTeams: cfg.ShuffleTeams,
			VetoSequence: cfg.VetoSequence,
			GuildID:      c.GuildID,
		})
		if err != nil {
			return sum, fmt.Errorf("config %s: %w", cfg.Name, err)
		}
		sum.Configs++
	}

	servers, err := svc.ListServers(ctx)
	if err != nil {
		return sum, err
	}
	haveServer := make(map[string]bool, len(servers))
	for _, srv := range servers {
		haveServer[srv.Name] = true
	}
	for _, srv := range c.Servers {
		if haveServer[srv.Name] {
			continue
		}
		_, err := svc.CreateServer(ctx, types.CreateServerRequest{
			Name:       srv.Name,
			Host:       srv.Host,
			Port:       srv.Port,
			Password:   srv.Password,
			WebhookURL: srv.WebhookURL,
			GuildID:    c.GuildID,
		})
		if err != nil {
			return sum, fmt.Errorf("server %s: %w", srv.Name, err)
		}
		sum.Servers++
	}

	for _, p := range c.Players {
		_, err := svc.UpsertPlayer(ctx, types.UpsertPlayerRequest{
			DiscordID: p.DiscordID,
			Username:  p.Username,
			SteamID:   p.SteamID,
			SteamName: p.SteamName,
		})
		if err != nil {
			return sum, fmt.Errorf("player %s: %w", p.DiscordID, err)
		}
		sum.Players++
	}

	log.Info("catalog seeded",
		zap.Int("maps", sum.Maps),
		zap.Int("pools", sum.Pools),
		zap.Int("configs", sum.Configs),
		zap.Int("servers", sum.Servers),
		zap.Int("players", sum.Players),
	)
	return sum, nil
}
