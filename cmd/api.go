package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/desertthunder/studyx/internal/shared"
	"github.com/urfave/cli/v3"
)

// APIGet makes a direct GET request to the study API
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}

	r.logger.Info("GET request", "path", path)

	raw, err := r.api.Raw(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return r.writeJSON(raw, cmd.Bool("pretty"))
}

// APIPost makes a direct POST request to the study API
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	data := cmd.String("data")

	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}
	if data == "" {
		return fmt.Errorf("%w: --data flag is required", shared.ErrMissingArgument)
	}

	r.logger.Info("POST request", "path", path)

	raw, err := r.api.Raw(ctx, http.MethodPost, path, json.RawMessage(data))
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return r.writePlain("✓ %s accepted\n", path)
	}
	return r.writeJSON(raw, true)
}

// APIHealth checks that the study API is reachable and the token is accepted.
func (r *Runner) APIHealth(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("checking API health")

	var health struct {
		Status string `json:"status"`
	}
	raw, err := r.api.Raw(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	if err := json.Unmarshal(raw, &health); err != nil {
		return fmt.Errorf("%w: unexpected health response: %v", shared.ErrAPIRequest, err)
	}

	r.writePlain("✓ API %s (%s)\n", health.Status, r.config.API.BaseURL)

	if _, err := r.api.Raw(ctx, http.MethodGet, "/api/summary", nil); err != nil {
		r.writePlain("✗ Authenticated request failed: %v\n", err)
		return err
	}
	r.writePlain("✓ Token accepted\n")
	return nil
}
