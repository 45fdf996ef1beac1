package main

import (
	"context"
	"flag"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"quiz-tournament/internal/config"
	"quiz-tournament/internal/repository"
	"quiz-tournament/internal/seed"
)

func main() {
	path := flag.String("file", "seed.yaml", "YAML file with tournaments")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.LoadDatabase()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)

	tournaments, err := seed.Load(*path)
	if err != nil {
		log.Fatal().Err(err).Str("file", *path).Msg("failed to load seed")
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := repository.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	n, err := seed.Apply(context.Background(), repository.NewRepository(db), tournaments)
	if err != nil {
		log.Fatal().Err(err).Msg("seeding failed")
	}
	log.Info().Int("created", n).Int("in_file", len(tournaments)).Msg("seed done")
}
