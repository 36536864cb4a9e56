// Command api serves the RAPTOR journey planner over HTTP.
//
// Configuration comes from a YAML file given with -f, or from flags whose
// defaults are read from the environment (and from a .env file, if present).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"raptor.transitrouter.org/internal/app"
	"raptor.transitrouter.org/internal/appconf"
	"raptor.transitrouter.org/internal/gtfs"

	_ "time/tzdata"
)

const fakeTimeEnvVar = "RAPTOR_FAKE_TIME"

func main() {
	_ = godotenv.Load()

	var (
		configFile   string
		env          string
		apiKeys      string
		exemptKeys   string
		fakeTimeFile string
		cfg          appconf.Config
		gtfsCfg      gtfs.Config
	)

	flag.StringVar(&configFile, "f", "", "Path to a YAML configuration file; other flags are ignored when set")
	flag.IntVar(&cfg.Port, "port", envInt("PORT", 4000), "API server port")
	flag.StringVar(&env, "env", envString("ENV", "development"), "Environment (development|test|production)")
	flag.StringVar(&apiKeys, "api-keys", os.Getenv("API_KEYS"), "Comma separated API keys; empty disables the check")
	flag.StringVar(&exemptKeys, "exempt-api-keys", os.Getenv("EXEMPT_API_KEYS"), "Comma separated API keys without rate limit")
	flag.IntVar(&cfg.RateLimit, "rate-limit", envInt("RATE_LIMIT", 100), "Requests per second per client; 0 disables the limit")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "Debug logging")
	flag.StringVar(&gtfsCfg.GtfsURL, "gtfs-url", os.Getenv("GTFS_URL"), "GTFS static feed URL or local path")
	flag.StringVar(&gtfsCfg.Timezone, "timezone", os.Getenv("TIMEZONE"), "Overrides the timezone of the feed's first agency")
	flag.IntVar(&gtfsCfg.ServiceDays, "service-days", envInt("SERVICE_DAYS", 7), "Days after today covered by the timetable")
	flag.StringVar(&fakeTimeFile, "fake-time-file", "", "File holding the current time, for replaying a captured feed")
	flag.Parse()

	routing := RoutingConfig{}

	if configFile != "" {
		fileCfg, err := appconf.LoadFromFile(configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config file: %v\n", err)
			os.Exit(1)
		}
		cfg = fileCfg.ToAppConfig()
		gtfsCfg = gtfs.ConfigFromFile(fileCfg.ToGtfsConfigData())
		routing.Bikes = fileCfg.Bikes

		settings, err := app.SettingsFromFile(fileCfg.Defaults)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error in default settings: %v\n", err)
			os.Exit(1)
		}
		routing.Settings = settings
	} else {
		if gtfsCfg.GtfsURL == "" {
			fmt.Fprintln(os.Stderr, "Error: -gtfs-url (or GTFS_URL) is required without a config file")
			flag.Usage()
			os.Exit(1)
		}
		cfg.Env = appconf.EnvFlagToEnvironment(env)
		cfg.ApiKeys = ParseAPIKeys(apiKeys)
		cfg.ExemptApiKeys = ParseAPIKeys(exemptKeys)
		gtfsCfg.Env = cfg.Env
		gtfsCfg.Verbose = cfg.Verbose
	}

	clk, err := NewClock(fakeTimeEnvVar, fakeTimeFile, gtfsCfg.Timezone)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	routing.Clock = clk

	coreApp, err := BuildApplication(cfg, gtfsCfg, routing)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	srv, api := CreateServer(coreApp, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Run(ctx, srv, coreApp, api); err != nil {
		coreApp.Logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}
