package gameserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/DoyleJ11/cs-match-backend/internal/engine"
	"github.com/DoyleJ11/cs-match-backend/internal/serverconfig"
	"go.uber.org/zap"
)

// Client pushes match configs to game servers.
type Client struct {
	http   *http.Client
	secret string
	log    *zap.Logger
}

func NewClient(timeout time.Duration, secret string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		http:   &http.Client{Timeout: timeout},
		secret: secret,
		log:    log,
	}
}

// Push posts cfg to the server's webhook.
func (c *Client) Push(ctx context.Context, srv engine.Server, cfg serverconfig.ServerConfig) error {
	if srv.WebhookURL == "" {
		return fmt.Errorf("%w: server %s has no webhook url", engine.ErrValidation, srv.ID)
	}
	body, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal server config: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, srv.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		req.Header.Set("Authorization", "Bearer "+c.secret)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("push config to %s: %w", srv.ID, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode >= 300 {
		return fmt.Errorf("push config to %s: game server answered %s", srv.ID, resp.Status)
	}
	c.log.Info("pushed match config",
		zap.String("match_id", cfg.MatchID),
		zap.String("server_id", srv.ID),
		zap.Strings("maplist", cfg.MapList),
	)
	return nil
}
