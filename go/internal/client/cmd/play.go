package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mcdev12/presence/go/clients/presence_api_client"
	"github.com/mcdev12/presence/go/internal/client"
	"github.com/mcdev12/presence/go/internal/models"
	"github.com/mcdev12/presence/go/internal/render"
	"github.com/mcdev12/presence/go/internal/sharedstate"
)

func newServersCmd(cli *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "servers",
		Short: "List the servers you can join",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := cli.api().ListServers(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tREGION")
			for _, s := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, s.Name, s.Region)
			}
			return tw.Flush()
		},
	}
}

func newPlayCmd(cli *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Join a server and move your avatar with the mouse",
		Long:  "Join a server and move your avatar with the mouse. Click to set where your avatar walks to; q, Esc or Ctrl-C leaves.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			creds, err := cli.login()
			if err != nil {
				return fmt.Errorf("%w: run presence login first", err)
			}
			serverID, err := cli.pickServer(ctx)
			if err != nil {
				return err
			}
			channel, closeChannel, err := cli.openChannel(ctx, creds)
			if err != nil {
				return err
			}
			defer closeChannel()

			screen, err := tcell.NewScreen()
			if err != nil {
				return fmt.Errorf("failed to open terminal: %w", err)
			}
			if err := screen.Init(); err != nil {
				return fmt.Errorf("failed to initialise terminal: %w", err)
			}

			identity := client.Identity{
				ActorID:     creds.UserID,
				DisplayName: creds.DisplayName,
				Color:       creds.Color,
				ServerID:    serverID,
			}
			if identity.Color == "" {
				identity.Color = cli.tuning.ColorFor(creds.UserID)
			}

			surface := client.NewTerminalSurface(screen, cli.tuning.SurfaceWidth, cli.tuning.SurfaceHeight)
			session, err := client.NewSession(identity, cli.tuning, channel, surface, clockwork.NewRealClock())
			if err != nil {
				screen.Fini()
				return err
			}

			log.Info().Str("server_id", serverID).Str("backend", cli.backend).Msg("joining server")
			if err := client.RunTerminal(ctx, session, screen); err != nil {
				return err
			}
			st := session.Status()
			fmt.Fprintf(cmd.OutOrStdout(), "Left %s after %d frames (%d updates published)\n",
				serverID, st.Frames, st.Publish.Published)
			return nil
		},
	}
}

func newSnapshotCmd(cli *cliContext) *cobra.Command {
	var out string
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save a picture of a server as PNG without joining it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			serverID, err := cli.pickServer(ctx)
			if err != nil {
				return err
			}

			var png []byte
			if cli.backend == sharedstate.BackendGateway {
				png, err = cli.gatewayFrame(ctx, serverID)
			} else {
				png, err = cli.renderFrame(ctx, serverID)
			}
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, png, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", out)
			return nil
		},
	}
	fs := cmd.Flags()
	fs.SetNormalizeFunc(normalize)
	fs.StringVarP(&out, "out", "o", "snapshot.png", "output file (env: PRESENCE_OUT)")
	fs.DurationVar(&timeout, "timeout", 5*time.Second, "how long to wait for the server state (env: PRESENCE_TIMEOUT)")
	return cmd
}

// pickServer returns --server, or the first server the API lists
func (cli *cliContext) pickServer(ctx context.Context) (string, error) {
	if cli.server != "" {
		return cli.server, sharedstate.ValidateID("server", cli.server)
	}
	list, err := cli.api().ListServers(ctx)
	if err != nil {
		return "", fmt.Errorf("no --server given and the server list is unavailable: %w", err)
	}
	if len(list) == 0 {
		return "", errors.New("no servers are configured")
	}
	return list[0].ID, nil
}

func (cli *cliContext) resolveGateway(ctx context.Context) (string, error) {
	if !cli.discover {
		return cli.gatewayURL, nil
	}
	found, err := client.Discover(ctx, cli.discoverTimeout)
	if err != nil {
		return "", err
	}
	if len(found) == 0 {
		return "", errors.New("no gateway found on the local network")
	}
	log.Info().Str("instance", found[0].Instance).Str("url", found[0].URL).Msg("using discovered gateway")
	return found[0].URL, nil
}

func (cli *cliContext) openChannel(ctx context.Context, creds *client.Credentials) (sharedstate.Channel, func() error, error) {
	cfg := sharedstate.DefaultBackendConfig()
	cfg.Kind = cli.backend
	cfg.NATS.URL = cli.natsURL
	cfg.RedisURL = cli.redisURL
	if cli.backend == sharedstate.BackendGateway {
		url, err := cli.resolveGateway(ctx)
		if err != nil {
			return nil, nil, err
		}
		cfg.Gateway.URL = url
		if creds != nil {
			cfg.Gateway.Token = creds.Token
		}
	}
	if cli.backend == sharedstate.BackendMemory {
		return nil, nil, errors.New("the memory backend only exists inside one process; use gateway, nats or redis")
	}
	return sharedstate.Open(ctx, cfg)
}

// gatewayFrame asks the gateway to render the server
func (cli *cliContext) gatewayFrame(ctx context.Context, serverID string) ([]byte, error) {
	wsURL, err := cli.resolveGateway(ctx)
	if err != nil {
		return nil, err
	}
	api := presence_api_client.NewPresenceApiClient(httpURL(wsURL))
	return api.ServerFrame(ctx, serverID)
}

// renderFrame subscribes to the backend directly and draws the first
// snapshot it receives
func (cli *cliContext) renderFrame(ctx context.Context, serverID string) ([]byte, error) {
	channel, closeChannel, err := cli.openChannel(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer closeChannel()

	got := make(chan models.Snapshot, 1)
	sub, err := channel.Subscribe(ctx, serverID, func(s models.Snapshot) {
		select {
		case got <- s:
		default:
		}
	})
	if err != nil {
		return nil, err
	}
	defer sub.Unsubscribe()

	var snap models.Snapshot
	select {
	case snap = <-got:
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for server state: %w", ctx.Err())
	}

	surface := render.NewImageSurface(int(cli.tuning.SurfaceWidth), int(cli.tuning.SurfaceHeight))
	render.Render(surface, nil, snap, cli.tuning.Radius)
	var buf bytes.Buffer
	if err := surface.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// httpURL turns a ws(s):// gateway address into its http(s) form
func httpURL(wsURL string) string {
	switch {
	case strings.HasPrefix(wsURL, "wss://"):
		return "https://" + strings.TrimPrefix(wsURL, "wss://")
	case strings.HasPrefix(wsURL, "ws://"):
		return "http://" + strings.TrimPrefix(wsURL, "ws://")
	}
	return wsURL
}
