package notification

import (
	"net/http"
	"rental/infras/otel"
	bookingService "rental/internal/domains/booking/service"
	"rental/internal/domains/notification/service"
	"rental/shared"
	"rental/shared/constant"
	"rental/shared/dto"
	"rental/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	dispatcher service.Dispatcher
	bookings   bookingService.Booking
	otel       otel.Otel
}

func New(dispatcher service.Dispatcher, bookings bookingService.Booking, otel otel.Otel) Handler {
	return Handler{
		dispatcher: dispatcher,
		bookings:   bookings,
		otel:       otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Get("/bookings/{id}/notifications", handler.GetNotifications)
}

// GetNotifications lists the dispatch records of one of the user's bookings.
// @Summary List booking notifications
// @Description Audit trail of every notification the booking's lifecycle events fanned out to.
// @Tags Notification
// @Produce json
// @Param id path string true "Booking ID"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Paginated[model.DispatchRecord] "Dispatch records"
// @Failure 404 {object} response.Error
// @Router /v1/bookings/{id}/notifications [get]
// @Security BearerAuth
func (handler *Handler) GetNotifications(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetNotifications")
	defer scope.End()

	userID, err := shared.UserFromContext(ctx)
	if err != nil {
		scope.TraceError(err)
		response.WithError(writer, err)

		return
	}

	bookingID := chi.URLParam(request, constant.RequestParamID)

	params := dto.QueryParams{}
	params.FromRequest(request)

	// ownership check
	if _, err = handler.bookings.Get(ctx, userID, bookingID); err != nil {
		scope.TraceError(err)
		response.WithError(writer, err)

		return
	}

	records, err := handler.dispatcher.Records(ctx, bookingID)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to list notifications")

		response.WithError(writer, err)

		return
	}

	response.WithPaginated(writer, records, params)
}
