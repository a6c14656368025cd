package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind            string
	cacheTTL        time.Duration
	pageSize        int
	port            int
	prefix          string
	profile         bool
	providerTimeout time.Duration
	providerURL     string
	redisURL        string
	sessionTimeout  time.Duration
	setupTimeout    time.Duration
	tlsCert         string
	tlsKey          string
	verbose         bool
	version         bool

	logger *log.Logger
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.pageSize < 6 {
		return fmt.Errorf("invalid page size (must be at least 6): %d", c.pageSize)
	}
	if c.providerTimeout <= 0 {
		return fmt.Errorf("invalid provider timeout (must be positive): %s", c.providerTimeout)
	}
	if c.setupTimeout <= 0 {
		return fmt.Errorf("invalid setup timeout (must be positive): %s", c.setupTimeout)
	}
	if c.cacheTTL < 0 {
		return fmt.Errorf("invalid cache ttl (must not be negative): %s", c.cacheTTL)
	}

	u, err := url.Parse(c.providerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid provider url: %q", c.providerURL)
	}

	if c.redisURL != "" {
		if _, err := redis.ParseURL(c.redisURL); err != nil {
			return fmt.Errorf("invalid redis url: %w", err)
		}
	}

	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("JEOPARDY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "jeopardy",
		Short:         "A trivia board game, served to every browser at the table.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			cfg.logger = newLogger(cfg)
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: JEOPARDY_BIND)")
	fs.DurationVar(&cfg.cacheTTL, "cache-ttl", 24*time.Hour, "how long to cache trivia responses in redis (env: JEOPARDY_CACHE_TTL)")
	fs.IntVar(&cfg.pageSize, "page-size", 100, "categories listed per catalog page (env: JEOPARDY_PAGE_SIZE)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: JEOPARDY_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: JEOPARDY_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: JEOPARDY_PROFILE)")
	fs.DurationVar(&cfg.providerTimeout, "provider-timeout", 10*time.Second, "timeout for each trivia service request (env: JEOPARDY_PROVIDER_TIMEOUT)")
	fs.StringVar(&cfg.providerURL, "provider-url", "https://jservice.io/api", "base URL of the trivia service (env: JEOPARDY_PROVIDER_URL)")
	fs.StringVar(&cfg.redisURL, "redis-url", "", "redis URL for caching trivia responses, e.g. redis://localhost:6379/0 (env: JEOPARDY_REDIS_URL)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle boards are ended (env: JEOPARDY_SESSION_TIMEOUT)")
	fs.DurationVar(&cfg.setupTimeout, "setup-timeout", 20*time.Second, "time allowed to fill a board before giving up (env: JEOPARDY_SETUP_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: JEOPARDY_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: JEOPARDY_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: JEOPARDY_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: JEOPARDY_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("jeopardy v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
