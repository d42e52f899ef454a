package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v2"

	"insider_screener/pkg/core/edgar"
	"insider_screener/pkg/core/export"
	"insider_screener/pkg/core/pipeline"
	"insider_screener/pkg/core/store"
)

const dateLayout = "2006-01-02"

// Config is the screener run configuration, loaded from YAML.
type Config struct {
	Company struct {
		Name string `yaml:"name"`
		CIK  string `yaml:"cik"`
	} `yaml:"company"`
	FormTypes []string `yaml:"form_types"`
	Window    struct {
		Start string `yaml:"start"`
		End   string `yaml:"end"`
	} `yaml:"window"`
	Workers      int  `yaml:"workers"`
	RepairPrices bool `yaml:"repair_prices"`
	SEC          struct {
		UserAgent         string `yaml:"user_agent"`
		RequestsPerSecond int    `yaml:"requests_per_second"`
		TimeoutSeconds    int    `yaml:"timeout_seconds"`
		MaxRetries        uint64 `yaml:"max_retries"`
	} `yaml:"sec"`
	Output struct {
		CSV      string `yaml:"csv"`
		SaveToDB bool   `yaml:"save_to_db"`
	} `yaml:"output"`
	RunTimeoutSeconds int `yaml:"run_timeout_seconds"`
}

func main() {
	setupLogging()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, relying on environment")
	}

	configPath := flag.String("config", "config/screener.yaml", "path to run configuration")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("failed to load configuration")
	}

	start, err := time.Parse(dateLayout, cfg.Window.Start)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid window start date")
	}
	end, err := time.Parse(dateLayout, cfg.Window.End)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid window end date")
	}

	runTimeout := time.Duration(cfg.RunTimeoutSeconds) * time.Second
	if runTimeout <= 0 {
		runTimeout = 5 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	client := edgar.NewClient(edgar.ClientConfig{
		UserAgent:         cfg.SEC.UserAgent,
		RequestsPerSecond: cfg.SEC.RequestsPerSecond,
		Timeout:           time.Duration(cfg.SEC.TimeoutSeconds) * time.Second,
		MaxRetries:        cfg.SEC.MaxRetries,
	})

	subs, err := client.FetchSubmissions(ctx, cfg.Company.CIK)
	if err != nil {
		log.Fatal().Err(err).Str("cik", cfg.Company.CIK).Msg("failed to fetch submissions index")
	}
	log.Info().Str("company", subs.Name).Strs("tickers", subs.Tickers).Msg("loaded submissions index")

	orch := pipeline.New(client.Company(cfg.Company.CIK))
	result, err := orch.Run(ctx, subs.Filings.Recent, pipeline.Options{
		FormTypes:    cfg.FormTypes,
		Start:        start,
		End:          end,
		Workers:      cfg.Workers,
		RepairPrices: cfg.RepairPrices,
		Scope:        cfg.Company.Name,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("screening run failed")
	}

	for _, f := range result.Failures {
		log.Warn().Str("filing", f.FilingID).Str("kind", f.Kind).Msg(f.Message)
	}
	for _, w := range result.Warnings {
		log.Warn().Msg(w.Message())
	}

	if cfg.Output.CSV != "" {
		if err := writeCSV(cfg.Output.CSV, result); err != nil {
			log.Fatal().Err(err).Str("path", cfg.Output.CSV).Msg("failed to write CSV")
		}
		log.Info().Str("path", cfg.Output.CSV).Int("records", len(result.Records)).Msg("wrote CSV")
	}

	if cfg.Output.SaveToDB {
		if err := saveRun(ctx, cfg, start, end, result); err != nil {
			log.Fatal().Err(err).Msg("failed to persist run")
		}
		log.Info().Str("run_id", result.RunID).Msg("persisted run")
	}
}

func setupLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func writeCSV(path string, result *pipeline.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return export.WriteCSV(f, result.Records)
}

func saveRun(ctx context.Context, cfg *Config, start, end time.Time, result *pipeline.Result) error {
	if err := store.InitDB(ctx, os.Getenv("DATABASE_URL")); err != nil {
		return err
	}
	defer store.Close()

	return store.NewRunRepo().Save(ctx, &store.ScreeningRun{
		ID:          result.RunID,
		Company:     cfg.Company.Name,
		CIK:         cfg.Company.CIK,
		WindowStart: start,
		WindowEnd:   end,
		Records:     result.Records,
		Failures:    result.Failures,
	})
}
