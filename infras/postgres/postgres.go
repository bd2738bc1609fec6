package postgres

//nolint:revive
import (
	"fmt"
	"net"
	"rental/config"
	"rental/shared/constant"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const (
	postgresMaxIdleConnection = 10
	postgresMaxOpenConnection = 10
)

// Connection holds the read and write pools. Both may point at the same server.
type Connection struct {
	Read  *sqlx.DB
	Write *sqlx.DB
}

// Endpoint describes one postgres server.
type Endpoint struct {
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	SSLMode  string
}

// New opens both pools. It returns nil unless postgres is the selected store driver.
func New(cfg *config.Config) *Connection {
	if cfg.Store.Driver != constant.StoreDriverPostgres {
		return nil
	}

	read := cfg.DB.Postgres.Read
	write := cfg.DB.Postgres.Write

	return &Connection{
		Read: Connect("read", Endpoint{
			Host: read.Host, Port: read.Port, Username: read.Username, Password: read.Password,
			Name: dbName(cfg, read.Name), SSLMode: read.SSLMode,
		}, cfg.DB.Postgres.MaxRetry, cfg.DB.Postgres.RetryWaitTime),
		Write: Connect("write", Endpoint{
			Host: write.Host, Port: write.Port, Username: write.Username, Password: write.Password,
			Name: dbName(cfg, write.Name), SSLMode: write.SSLMode,
		}, cfg.DB.Postgres.MaxRetry, cfg.DB.Postgres.RetryWaitTime),
	}
}

func dbName(cfg *config.Config, baseName string) string {
	return cfg.DB.Postgres.Prefix + baseName
}

// DSN renders the lib/pq connection URL for the endpoint.
func (e Endpoint) DSN() string {
	sslMode := e.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=%s",
		e.Username,
		e.Password,
		net.JoinHostPort(e.Host, e.Port),
		e.Name,
		sslMode,
	)
}

// Connect dials the endpoint, retrying maxRetry times with waitTime seconds between attempts.
// It returns nil when every attempt failed.
func Connect(name string, endpoint Endpoint, maxRetry, waitTime int) *sqlx.DB {
	for retry := range maxRetry {
		sqlDB, err := sqlx.Connect("postgres", endpoint.DSN())
		if err == nil {
			log.
				Info().
				Str("name", name).
				Str("host", endpoint.Host).
				Str("port", endpoint.Port).
				Str("dbName", endpoint.Name).
				Msg("Connected to database")
			sqlDB.SetMaxIdleConns(postgresMaxIdleConnection)
			sqlDB.SetMaxOpenConns(postgresMaxOpenConnection)

			return sqlDB
		}

		log.
			Error().
			Err(err).
			Str("name", name).
			Str("host", endpoint.Host).
			Str("dbName", endpoint.Name).
			Int("attempt", retry+1).
			Msg("Failed connecting to database, retrying")

		time.Sleep(time.Duration(waitTime) * time.Second)
	}

	return nil
}
