package helper

//nolint:revive
import (
	"errors"
	"fmt"
	"rental/config"
	"rental/infras/postgres"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog/log"
)

const migrationsSource = "file://migrations/postgres"

const (
	ActionUp     = "up"
	ActionDown   = "down"
	ActionDrop   = "drop"
	ActionStepUp = "step-up"
)

var ErrUnknownAction = errors.New("unknown migration action, use 'up', 'down', 'drop' or 'step-up'")

// MigrationURL is the write endpoint's DSN with the migrations table golang-migrate records
// applied versions in.
func MigrationURL(cfg *config.Config) string {
	write := cfg.DB.Postgres.Write

	endpoint := postgres.Endpoint{
		Host:     write.Host,
		Port:     write.Port,
		Username: write.Username,
		Password: write.Password,
		Name:     cfg.DB.Postgres.Prefix + write.Name,
		SSLMode:  write.SSLMode,
	}

	return endpoint.DSN() + "&x-migrations-table=" + cfg.DB.Postgres.MigrationTable
}

func Runner(cfg *config.Config, action string) error {
	steps, ok := map[string]func(*migrate.Migrate) error{
		ActionUp:     (*migrate.Migrate).Up,
		ActionDown:   func(mig *migrate.Migrate) error { return mig.Steps(-1) },
		ActionStepUp: func(mig *migrate.Migrate) error { return mig.Steps(1) },
		ActionDrop:   (*migrate.Migrate).Down,
	}[action]
	if !ok {
		return ErrUnknownAction
	}

	mig, err := migrate.New(migrationsSource, MigrationURL(cfg))
	if err != nil {
		return fmt.Errorf("error creating migrate instance: %w", err)
	}

	defer mig.Close()

	if err := steps(mig); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("error running %s migration: %w", action, err)
	}

	version, dirty, err := mig.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("error reading migration version: %w", err)
	}

	log.Info().Str("action", action).Uint("version", version).Bool("dirty", dirty).Msg("Database migration finished")

	return nil
}

func Up(cfg *config.Config) error {
	return Runner(cfg, ActionUp)
}

func StepUp(cfg *config.Config) error {
	return Runner(cfg, ActionStepUp)
}

func Down(cfg *config.Config) error {
	return Runner(cfg, ActionDown)
}

func Drop(cfg *config.Config) error {
	return Runner(cfg, ActionDrop)
}
