package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mcdev12/presence/go/clients/presence_api_client"
	"github.com/mcdev12/presence/go/internal/client"
	"github.com/mcdev12/presence/go/internal/sharedstate"
	"github.com/mcdev12/presence/go/internal/tuning"
)

// cliContext is the state shared by every command of one invocation
type cliContext struct {
	v *viper.Viper

	dataDir         string
	configPath      string
	logFile         string
	apiURL          string
	gatewayURL      string
	backend         string
	natsURL         string
	redisURL        string
	server          string
	discover        bool
	discoverTimeout time.Duration
	verbose         bool

	tuning  tuning.Config
	logOut  *os.File
	creds   *client.CredentialStore
	current *client.Credentials
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".presence"
	}
	return filepath.Join(home, ".presence")
}

func newRootCmd(cli *cliContext) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("PRESENCE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	cli.v = v

	cmd := &cobra.Command{
		Use:     "presence",
		Short:   "Move an avatar around a shared surface with everyone else on the server.",
		Version: releaseVersion,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			bindFlags(v, cmd.Flags())
			return cli.setup(cmd.Flags())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return cli.close()
		},
	}

	fs := cmd.PersistentFlags()
	fs.SetNormalizeFunc(normalize)

	fs.StringVar(&cli.dataDir, "data-dir", defaultDataDir(), "directory for credentials and logs (env: PRESENCE_DATA_DIR)")
	fs.StringVar(&cli.configPath, "config", "", "config file, defaults to <data-dir>/config.yaml (env: PRESENCE_CONFIG)")
	fs.StringVar(&cli.logFile, "log-file", "", "log file, defaults to <data-dir>/client.log (env: PRESENCE_LOG_FILE)")
	fs.StringVar(&cli.apiURL, "api-url", presence_api_client.DefaultBaseURL, "API server address (env: PRESENCE_API_URL)")
	fs.StringVar(&cli.gatewayURL, "gateway-url", "ws://localhost:8081", "gateway address (env: PRESENCE_GATEWAY_URL)")
	fs.StringVar(&cli.backend, "backend", sharedstate.BackendGateway, "shared state backend: gateway, nats or redis (env: PRESENCE_BACKEND)")
	fs.StringVar(&cli.natsURL, "nats-url", sharedstate.DefaultNATSConfig().URL, "NATS address for --backend nats (env: PRESENCE_NATS_URL)")
	fs.StringVar(&cli.redisURL, "redis-url", sharedstate.DefaultBackendConfig().RedisURL, "Redis address for --backend redis (env: PRESENCE_REDIS_URL)")
	fs.StringVarP(&cli.server, "server", "s", "", "server to join, defaults to the first listed (env: PRESENCE_SERVER)")
	fs.BoolVar(&cli.discover, "discover", false, "find a gateway on the local network (env: PRESENCE_DISCOVER)")
	fs.DurationVar(&cli.discoverTimeout, "discover-timeout", 3*time.Second, "how long to browse for gateways (env: PRESENCE_DISCOVER_TIMEOUT)")
	fs.BoolVarP(&cli.verbose, "verbose", "v", false, "log at debug level (env: PRESENCE_VERBOSE)")

	cmd.AddCommand(
		newSignUpCmd(cli),
		newLogInCmd(cli),
		newLogOutCmd(cli),
		newWhoAmICmd(cli),
		newServersCmd(cli),
		newPlayCmd(cli),
		newSnapshotCmd(cli),
	)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("presence v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func normalize(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// bindFlags lets environment variables and the config file fill any flag
// not given on the command line
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

// setup reads the config file, then lets it fill flags that neither the
// command line nor the environment set
func (cli *cliContext) setup(fs *pflag.FlagSet) error {
	if cli.configPath == "" {
		cli.configPath = filepath.Join(cli.dataDir, "config.yaml")
	}
	if err := cli.loadTuning(); err != nil {
		return err
	}
	bindFlags(cli.v, fs)
	if err := cli.setupLogging(); err != nil {
		return err
	}
	store, err := client.OpenCredentialStore(filepath.Join(cli.dataDir, "credentials.db"))
	if err != nil {
		return err
	}
	cli.creds = store
	return nil
}

// loadTuning reads the presence block of the config file over the defaults
func (cli *cliContext) loadTuning() error {
	cli.tuning = tuning.DefaultConfig()
	cli.v.SetConfigFile(cli.configPath)
	if err := cli.v.ReadInConfig(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	if cli.v.IsSet("presence") {
		if err := cli.v.UnmarshalKey("presence", &cli.tuning); err != nil {
			return fmt.Errorf("failed to parse presence config: %w", err)
		}
	}
	return cli.tuning.Validate()
}

// setupLogging sends logs to a file so they do not draw over the terminal UI
func (cli *cliContext) setupLogging() error {
	path := cli.logFile
	if path == "" {
		path = filepath.Join(cli.dataDir, "client.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	cli.logOut = f

	level := zerolog.InfoLevel
	if cli.verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(f).With().Timestamp().Logger()
	return nil
}

func (cli *cliContext) close() error {
	var errs []error
	if cli.creds != nil {
		errs = append(errs, cli.creds.Close())
	}
	if cli.logOut != nil {
		errs = append(errs, cli.logOut.Close())
	}
	return errors.Join(errs...)
}

// login returns the saved credentials, or ErrNotLoggedIn
func (cli *cliContext) login() (*client.Credentials, error) {
	if cli.current != nil {
		return cli.current, nil
	}
	c, err := cli.creds.Load()
	if err != nil {
		return nil, err
	}
	cli.current = c
	return c, nil
}

// api returns an API client, authenticated when a login is saved
func (cli *cliContext) api() *presence_api_client.PresenceApiClient {
	c := presence_api_client.NewPresenceApiClient(cli.apiURL)
	if creds, err := cli.login(); err == nil {
		c.SetToken(creds.Token)
	}
	return c
}
