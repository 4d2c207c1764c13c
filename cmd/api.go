package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/alchemy/internal/server"
	"github.com/desertthunder/alchemy/internal/services"
	"github.com/desertthunder/alchemy/internal/shared"
)

// APIGet makes a direct GET request to the admin server
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path, err := apiPath(cmd)
	if err != nil {
		return err
	}

	r.logger.Info("GET request", "path", path)

	resp, err := r.apiService(cmd).Get(ctx, path)
	if err != nil {
		return err
	}
	return r.writeResponse(resp, !cmd.Bool("json"))
}

// APIPost makes a direct POST request to the admin server
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	path, err := apiPath(cmd)
	if err != nil {
		return err
	}

	var body []byte
	if data := cmd.String("data"); data != "" {
		var jsonTest any
		if err := json.Unmarshal([]byte(data), &jsonTest); err != nil {
			return fmt.Errorf("%w: data is not valid JSON: %v", shared.ErrInvalidInput, err)
		}
		body = []byte(data)
	}

	r.logger.Info("POST request", "path", path)

	resp, err := r.apiService(cmd).Post(ctx, path, body)
	if err != nil {
		return err
	}
	return r.writeResponse(resp, true)
}

// APIDelete makes a direct DELETE request to the admin server
func (r *Runner) APIDelete(ctx context.Context, cmd *cli.Command) error {
	path, err := apiPath(cmd)
	if err != nil {
		return err
	}

	r.logger.Info("DELETE request", "path", path)

	resp, err := r.apiService(cmd).Delete(ctx, path)
	if err != nil {
		return err
	}
	return r.writeResponse(resp, true)
}

// APIEngines prints the rows of the engines table served by the admin server.
func (r *Runner) APIEngines(ctx context.Context, cmd *cli.Command) error {
	table, err := r.apiService(cmd).Engines(ctx)
	if err != nil {
		return err
	}

	r.writePlainHeader(table.Title)
	if len(table.Rows) == 0 {
		return r.writePlain("No SQL engines registered\n")
	}
	for _, row := range table.Rows {
		marker := ""
		if row.ReadOnly {
			marker = " (static)"
		}
		r.writePlain("%-24s %s%s\n", row.Cells["name"], row.Cells["dsn"], marker)
		r.writePlain("  id: %s  pool: %s  echo: %s\n", row.OID, row.Cells["pool"], row.Cells["echo"])
	}
	return nil
}

// APITest runs a connectivity check through the admin server.
func (r *Runner) APITest(ctx context.Context, cmd *cli.Command) error {
	oid := cmd.StringArg("engine")
	if oid == "" {
		return fmt.Errorf("%w: engine id", shared.ErrMissingArgument)
	}

	check, err := r.apiService(cmd).CheckEngine(ctx, oid)
	if err != nil {
		return err
	}

	if !check.OK {
		r.writePlain("✗ %s: %s (%d attempts)\n", check.Engine, check.Error, check.Attempts)
		return fmt.Errorf("%w: %s", shared.ErrConnectionFailed, check.Engine)
	}
	return r.writePlain("✓ %s connected in %.2fms (%d open, %d in use)\n", check.Engine, check.LatencyMS, check.Open, check.InUse)
}

// APIToken issues a bearer token signed with the configured secret.
func (r *Runner) APIToken(ctx context.Context, cmd *cli.Command) error {
	subject := cmd.StringArg("subject")
	if subject == "" {
		return fmt.Errorf("%w: token subject", shared.ErrMissingArgument)
	}

	auth := server.NewAuthenticator(r.config.Auth)
	token, err := auth.Issue(subject, cmd.StringSlice("permission"), cmd.Duration("ttl"))
	if err != nil {
		return err
	}

	r.logger.Debug("token issued", "subject", subject, "ttl", cmd.Duration("ttl"))
	return r.writePlain("%s\n", token)
}

func apiPath(cmd *cli.Command) (string, error) {
	path := cmd.StringArg("path")
	if path == "" {
		return "", fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path, nil
}

// writeResponse prints a response body, failing on non-2xx statuses after the body is shown.
func (r *Runner) writeResponse(resp *services.APIResponse, pretty bool) error {
	if resp.IsJSON {
		if err := r.writeJSON(resp.JSONData, pretty); err != nil {
			return err
		}
	} else if len(resp.Body) > 0 {
		r.output.Write(resp.Body)
		r.output.Write([]byte("\n"))
	}
	return services.StatusError(resp)
}
