package config

import (
	"fmt"
	"sync"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Server struct {
		Env      string `envconfig:"ENV"`
		LogLevel string `envconfig:"LOG_LEVEL"`
		Port     string `envconfig:"PORT" default:"8080"`
		Host     string `envconfig:"HOST"`
		Shutdown struct {
			CleanupPeriodSeconds int64 `envconfig:"CLEANUP_PERIOD_SECONDS"`
			GracePeriodSeconds   int64 `envconfig:"GRACE_PERIOD_SECONDS"`
		} `envconfig:"SHUTDOWN"`
	} `envconfig:"SERVER"`

	App struct {
		Name        string `envconfig:"APP_NAME" default:"rental"`
		Timezone    string `envconfig:"TIMEZONE"`
		APIKey      string `envconfig:"API_KEY"`
		RateLimiter struct {
			Enable        bool `envconfig:"ENABLE"`
			MaxRequests   int  `envconfig:"MAX_REQUESTS" default:"100"`
			WindowSeconds int  `envconfig:"WINDOW_SECONDS" default:"60"`
		} `envconfig:"RATE_LIMITER"`
		CORS     struct {
			AllowCredentials bool     `envconfig:"ALLOW_CREDENTIALS"`
			AllowedHeaders   []string `envconfig:"ALLOWED_HEADERS"`
			AllowedMethods   []string `envconfig:"ALLOWED_METHODS"`
			AllowedOrigins   []string `envconfig:"ALLOWED_ORIGINS"`
			Enable           bool     `envconfig:"ENABLE"`
			MaxAgeSeconds    int      `envconfig:"MAX_AGE_SECONDS"`
		} `envconfig:"CORS"`
	} `envconfig:"APP"`

	Cache struct {
		Enable bool `envconfig:"ENABLE"`
		Redis  struct {
			Primary struct {
				Host     string `envconfig:"HOST"`
				Port     string `envconfig:"PORT"`
				Password string `envconfig:"PASSWORD"`
				DB       int    `envconfig:"DB"`
			} `envconfig:"PRIMARY"`
		} `envconfig:"REDIS"`
		TTL int `envconfig:"TTL" default:"300"`
	} `envconfig:"CACHE"`

	JWT struct {
		AccessSecret string `envconfig:"ACCESS_SECRET"`
	} `envconfig:"JWT"`

	DB struct {
		Postgres struct {
			MaxRetry       int    `envconfig:"MAX_RETRY" default:"3"`
			RetryWaitTime  int    `envconfig:"RETRY_WAIT_TIME" default:"2"`
			MigrationTable string `envconfig:"MIGRATION_TABLE" default:"schema_migrations"`
			AutoMigrate    bool   `envconfig:"AUTO_MIGRATE"`
			Prefix         string `envconfig:"PREFIX"`
			Read           struct {
				Host     string `envconfig:"HOST"`
				Port     string `envconfig:"PORT"`
				Username string `envconfig:"USER"`
				Password string `envconfig:"PASSWORD"`
				Name     string `envconfig:"NAME"`
				Timezone string `envconfig:"TIMEZONE"`
				SSLMode  string `envconfig:"SSL_MODE"`
			} `envconfig:"READ"`
			Write struct {
				Host     string `envconfig:"HOST"`
				Port     string `envconfig:"PORT"`
				Username string `envconfig:"USER"`
				Password string `envconfig:"PASSWORD"`
				Name     string `envconfig:"NAME"`
				Timezone string `envconfig:"TIMEZONE"`
				SSLMode  string `envconfig:"SSL_MODE"`
			} `envconfig:"WRITE"`
		} `envconfig:"POSTGRES"`
	} `envconfig:"DB"`

	Store struct {
		Driver string `envconfig:"DRIVER" default:"postgres"`
		Retry  struct {
			MaxAttempts      uint `envconfig:"MAX_ATTEMPTS" default:"3"`
			InitialBackoffMs int  `envconfig:"INITIAL_BACKOFF_MS" default:"100"`
			MaxBackoffMs     int  `envconfig:"MAX_BACKOFF_MS" default:"1000"`
		} `envconfig:"RETRY"`
	} `envconfig:"STORE"`

	Booking struct {
		MaxCASRetries int `envconfig:"MAX_CAS_RETRIES" default:"3"`
	} `envconfig:"BOOKING"`

	Payment struct {
		VerifyMaxAttempts      uint `envconfig:"VERIFY_MAX_ATTEMPTS" default:"4"`
		VerifyInitialBackoffMs int  `envconfig:"VERIFY_INITIAL_BACKOFF_MS" default:"200"`
		VerifyMaxBackoffMs     int  `envconfig:"VERIFY_MAX_BACKOFF_MS" default:"2000"`
	} `envconfig:"PAYMENT"`

	Notification struct {
		Transport          string            `envconfig:"TRANSPORT" default:"local"`
		MaxAttempts        uint              `envconfig:"MAX_ATTEMPTS" default:"5"`
		InitialBackoffMs   int               `envconfig:"INITIAL_BACKOFF_MS" default:"500"`
		MaxBackoffMs       int               `envconfig:"MAX_BACKOFF_MS" default:"30000"`
		SendTimeoutMs      int               `envconfig:"SEND_TIMEOUT_MS" default:"10000"`
		LeaseSeconds       int               `envconfig:"LEASE_SECONDS" default:"300"`
		Concurrency        int               `envconfig:"CONCURRENCY" default:"6"`
		RateLimitPerSecond float64           `envconfig:"RATE_LIMIT_PER_SECOND" default:"10"`
		RateLimitBurst     int               `envconfig:"RATE_LIMIT_BURST" default:"5"`
		UserEvents         []string          `envconfig:"USER_EVENTS" default:"confirmed,cancelled,completed"`
		AdminEvents        []string          `envconfig:"ADMIN_EVENTS" default:"created,confirmed,cancelled"`
		Templates          map[string]string `envconfig:"TEMPLATES"`
		Admin              struct {
			Phone string `envconfig:"PHONE"`
			Email string `envconfig:"EMAIL"`
		} `envconfig:"ADMIN"`
		WhatsApp Channel `envconfig:"WHATSAPP"`
		SMS      Channel `envconfig:"SMS"`
		Email    Channel `envconfig:"EMAIL"`
		Archive  struct {
			Enable bool   `envconfig:"ENABLE"`
			Prefix string `envconfig:"PREFIX" default:"events"`
		} `envconfig:"ARCHIVE"`
	} `envconfig:"NOTIFICATION"`

	Kafka struct {
		Brokers        []string `envconfig:"BROKERS"`
		ConsumerGroup  string   `envconfig:"CONSUMER_GROUP" default:"rental-dispatcher"`
		LifecycleTopic string   `envconfig:"LIFECYCLE_TOPIC" default:"booking.lifecycle"`
		SASL           struct {
			Username string `envconfig:"USERNAME"`
			Password string `envconfig:"PASSWORD"`
		} `envconfig:"SASL"`
	} `envconfig:"KAFKA"`

	External struct {
		Otel struct {
			Endpoint string `envconfig:"ENDPOINT"`
		} `envconfig:"OTEL"`
		S3 struct {
			APIEndpoint     string `envconfig:"API_ENDPOINT"`
			AccessKeyID     string `envconfig:"ACCESS_KEY_ID"`
			SecretAccessKey string `envconfig:"SECRET_ACCESS_KEY"`
			Region          string `envconfig:"REGION" default:"auto"`
			BucketName      string `envconfig:"BUCKET_NAME"`
		} `envconfig:"S3"`
		Firebase struct {
			ProjectID       string `envconfig:"PROJECT_ID"`
			CredentialsFile string `envconfig:"CREDENTIALS_FILE"`
		} `envconfig:"FIREBASE"`
	} `envconfig:"EXTERNAL"`
}

// Channel configures a single notification channel.
type Channel struct {
	Enable bool   `envconfig:"ENABLE"`
	Driver string `envconfig:"DRIVER" default:"log"`
	Topic  string `envconfig:"TOPIC"`
}

var (
	conf        Config
	once        sync.Once
	initialized bool
)

func Init() error {
	var err error

	once.Do(func() {
		err = godotenv.Load(".env")
		if err != nil {
			log.Warn().Err(err).Msg("Could not load .env file, continuing with existing environment variables")
		} else {
			log.Info().Msg("Successfully loaded variables from .env file into environment")
		}

		err = envconfig.Process("", &conf)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to process environment variables")
		}

		initialized = true

		log.Info().Msg("Service configuration initialized successfully")
	})

	if err != nil {
		return fmt.Errorf("loading .env file: %w", err)
	}

	return nil
}

func Get() *Config {
	if !initialized {
		if err := Init(); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize configuration")
		}
	}

	return &conf
}
