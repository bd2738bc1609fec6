//go:build wireinject
// +build wireinject

package di

import (
	"rental/config"
	"rental/infras/firestore"
	"rental/infras/jwt"
	"rental/infras/kafka"
	"rental/infras/otel"
	"rental/infras/postgres"
	"rental/infras/redis"
	"rental/infras/s3"
	"rental/internal/events"
	"rental/permissions"
	"rental/shared/cache"
	"rental/transport/http"
	"rental/transport/http/middleware"
	"rental/transport/http/router"

	bookingRepository "rental/internal/domains/booking/repository"
	bookingService "rental/internal/domains/booking/service"
	bookingHandler "rental/internal/handlers/booking"

	paymentService "rental/internal/domains/payment/service"
	paymentHandler "rental/internal/handlers/payment"

	"rental/internal/domains/notification/channel"
	notificationRepository "rental/internal/domains/notification/repository"
	notificationService "rental/internal/domains/notification/service"
	notificationHandler "rental/internal/handlers/notification"

	"github.com/google/wire"
)

var configurations = wire.NewSet(
	config.Get,
	permissions.Get,
)

var infrastructures = wire.NewSet(
	postgres.New,
	firestore.New,
	otel.New,
	redis.New,
	jwt.New,
	kafka.New,
	s3.New,
)

var middlewares = wire.NewSet(
	middleware.NewAppMiddleware,
	middleware.NewAuthRoleMiddleware,
)

var sharedHelpers = wire.NewSet(
	cache.NewRedisCache,
)

var bookingDomain = wire.NewSet(
	bookingRepository.New,
	bookingService.New,
)

var paymentDomain = wire.NewSet(
	paymentService.NewSettings,
	paymentService.New,
)

var notificationDomain = wire.NewSet(
	notificationRepository.New,
	notificationRepository.NewArchive,
	channel.NewSenders,
	notificationService.NewSettings,
	notificationService.New,
	wire.Bind(new(events.Handler), new(notificationService.Dispatcher)),
)

var domains = wire.NewSet(
	bookingDomain,
	paymentDomain,
	notificationDomain,
	events.NewPublisher,
)

var routing = wire.NewSet(
	wire.Struct(new(router.DomainHandlers), "*"),
	bookingHandler.New,
	paymentHandler.New,
	notificationHandler.New,
	router.New,
)

func InitializeService() *http.HTTP {
	wire.Build(
		configurations,
		infrastructures,
		middlewares,
		sharedHelpers,
		domains,
		routing,
		http.New,
	)

	return &http.HTTP{}
}

// InitializeWorker builds the Kafka lifecycle consumer that feeds the notification dispatcher.
func InitializeWorker() *events.Consumer {
	wire.Build(
		config.Get,
		postgres.New,
		firestore.New,
		otel.New,
		kafka.New,
		s3.New,
		notificationDomain,
		events.NewLifecycleConsumer,
	)

	return &events.Consumer{}
}
