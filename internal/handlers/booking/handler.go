package booking

import (
	"context"
	"net/http"
	"rental/infras/otel"
	"rental/internal/domains/booking/model"
	"rental/internal/domains/booking/model/dto"
	"rental/internal/domains/booking/service"
	"rental/shared"
	"rental/shared/constant"
	"rental/shared/validator"
	"rental/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	service service.Booking
	otel    otel.Otel
}

func New(service service.Booking, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Post("/bookings", handler.CreateBooking)
	router.Get("/bookings/{id}", handler.GetBookingByID)
	router.Post("/bookings/{id}/cancel", handler.CancelBooking)
	router.Post("/bookings/{id}/complete", handler.CompleteBooking)

	router.Post("/admin/users/{userId}/bookings/{id}/transition", handler.TransitionBooking)
	router.Delete("/admin/users/{userId}/bookings/{id}", handler.DeleteBooking)
}

// CreateBooking handles the creation of a new booking.
// @Summary Create a new booking
// @Description Create a draft car booking for the authenticated user.
// @Tags Booking
// @Accept json
// @Produce json
// @Param request body dto.CreateBookingRequest true "Create Booking Request"
// @Success 201 {object} response.Data[dto.BookingResponse] "Booking created"
// @Failure 400 {object} response.Error
// @Failure 401 {object} response.Error
// @Failure 503 {object} response.Error
// @Router /v1/bookings [post]
// @Security BearerAuth
func (handler *Handler) CreateBooking(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreateBooking")
	defer scope.End()

	userID, err := shared.UserFromContext(ctx)
	if err != nil {
		scope.TraceError(err)
		response.WithError(writer, err)

		return
	}

	req := dto.CreateBookingRequest{}
	if err = validator.Decode(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to decode request body")

		response.WithError(writer, err)

		return
	}

	booking, err := handler.service.Create(ctx, userID, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to create booking")

		response.WithError(writer, err)

		return
	}

	scope.AddEvent("Booking created", map[string]any{"booking.id": booking.ID})

	res := dto.BookingResponse{}
	res.FromModel(booking)

	response.WithJSON(writer, http.StatusCreated, res)
}

// GetBookingByID retrieves one of the authenticated user's bookings.
// @Summary Get a booking by ID
// @Description Retrieve a booking of the authenticated user by its unique identifier.
// @Tags Booking
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Data[dto.BookingResponse] "Booking details"
// @Failure 401 {object} response.Error
// @Failure 404 {object} response.Error
// @Router /v1/bookings/{id} [get]
// @Security BearerAuth
func (handler *Handler) GetBookingByID(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetBookingByID")
	defer scope.End()

	userID, err := shared.UserFromContext(ctx)
	if err != nil {
		scope.TraceError(err)
		response.WithError(writer, err)

		return
	}

	booking, err := handler.service.Get(ctx, userID, chi.URLParam(request, constant.RequestParamID))
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get booking by ID")

		response.WithError(writer, err)

		return
	}

	res := dto.BookingResponse{}
	res.FromModel(booking)

	response.WithJSON(writer, http.StatusOK, res)
}

// CancelBooking cancels a draft or confirmed booking.
// @Summary Cancel a booking
// @Tags Booking
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Data[dto.BookingResponse] "Cancelled booking"
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Router /v1/bookings/{id}/cancel [post]
// @Security BearerAuth
func (handler *Handler) CancelBooking(writer http.ResponseWriter, request *http.Request) {
	handler.userTransition(writer, request, ".CancelBooking", handler.service.Cancel)
}

// CompleteBooking marks a confirmed booking as completed.
// @Summary Complete a booking
// @Tags Booking
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Data[dto.BookingResponse] "Completed booking"
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Router /v1/bookings/{id}/complete [post]
// @Security BearerAuth
func (handler *Handler) CompleteBooking(writer http.ResponseWriter, request *http.Request) {
	handler.userTransition(writer, request, ".CompleteBooking", handler.service.Complete)
}

type transitionFunc func(ctx context.Context, userID, bookingID string) (model.Booking, error)

func (handler *Handler) userTransition(writer http.ResponseWriter, request *http.Request, spanName string, transition transitionFunc) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+spanName)
	defer scope.End()

	userID, err := shared.UserFromContext(ctx)
	if err != nil {
		scope.TraceError(err)
		response.WithError(writer, err)

		return
	}

	booking, err := transition(ctx, userID, chi.URLParam(request, constant.RequestParamID))
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to transition booking")

		response.WithError(writer, err)

		return
	}

	res := dto.BookingResponse{}
	res.FromModel(booking)

	response.WithJSON(writer, http.StatusOK, res)
}

// TransitionBooking moves any user's booking along the lifecycle. A manual override confirms
// a draft without a verified payment.
// @Summary Transition a booking
// @Tags Admin
// @Accept json
// @Produce json
// @Param userId path string true "Owner ID"
// @Param id path string true "Booking ID"
// @Param request body dto.TransitionRequest true "Transition Request"
// @Success 200 {object} response.Data[dto.BookingResponse] "Updated booking"
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 412 {object} response.Error
// @Router /v1/admin/users/{userId}/bookings/{id}/transition [post]
// @Security BearerAuth
func (handler *Handler) TransitionBooking(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".TransitionBooking")
	defer scope.End()

	req := dto.TransitionRequest{}
	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	booking, err := handler.service.Transition(
		ctx,
		chi.URLParam(request, constant.RequestParamUserID),
		chi.URLParam(request, constant.RequestParamID),
		model.Status(req.Status),
		model.Guard{ManualOverride: req.ManualOverride},
	)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to transition booking")

		response.WithError(writer, err)

		return
	}

	res := dto.BookingResponse{}
	res.FromModel(booking)

	response.WithJSON(writer, http.StatusOK, res)
}

// DeleteBooking removes a booking outright. No lifecycle event is emitted.
// @Summary Delete a booking
// @Tags Admin
// @Produce json
// @Param userId path string true "Owner ID"
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Message "Booking deleted successfully"
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Router /v1/admin/users/{userId}/bookings/{id} [delete]
// @Security BearerAuth
func (handler *Handler) DeleteBooking(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".DeleteBooking")
	defer scope.End()

	err := handler.service.Delete(ctx, chi.URLParam(request, constant.RequestParamUserID), chi.URLParam(request, constant.RequestParamID))
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to delete booking")

		response.WithError(writer, err)

		return
	}

	response.WithMessage(writer, http.StatusOK, "Booking deleted successfully")
}
