package handler

import (
	"net/http"
	"rental/config"
	"rental/di"
	"rental/shared/logger"
	"sync"

	transport "rental/transport/http"
)

var (
	server *transport.HTTP
	once   sync.Once
)

// Handler is the serverless entry point. The service graph is built on the first request and
// reused by later ones.
func Handler(w http.ResponseWriter, r *http.Request) {
	r.RequestURI = r.URL.String()

	once.Do(func() {
		cfg := config.Get()

		logger.InitLogger(cfg)

		logger.SetLogLevel(cfg)

		server = di.InitializeService()
	})

	server.ServeHTTP(w, r)
}
