package payment

import (
	"net/http"
	"rental/infras/otel"
	bookingDto "rental/internal/domains/booking/model/dto"
	"rental/internal/domains/payment/model/dto"
	"rental/internal/domains/payment/service"
	"rental/shared/constant"
	"rental/shared/validator"
	"rental/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	service service.Reconciler
	otel    otel.Otel
}

func New(service service.Reconciler, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Post("/admin/users/{userId}/bookings/{id}/payments", handler.RecordPayment)
	router.Post("/admin/users/{userId}/bookings/{id}/payments/verify", handler.VerifyPayment)
}

// RecordPayment attaches gateway payment details to a draft booking. Payment callbacks come from
// the gateway integration, never from the booking's owner.
// @Summary Record a payment
// @Description Record the gateway reference and amounts of a payment. Replaying the same payment is a no-op.
// @Tags Payment
// @Accept json
// @Produce json
// @Param userId path string true "Owner ID"
// @Param id path string true "Booking ID"
// @Param request body dto.RecordPaymentRequest true "Record Payment Request"
// @Success 200 {object} response.Data[bookingDto.BookingResponse] "Booking with payment"
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 412 {object} response.Error
// @Failure 422 {object} response.Error
// @Router /v1/admin/users/{userId}/bookings/{id}/payments [post]
// @Security BearerAuth
func (handler *Handler) RecordPayment(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".RecordPayment")
	defer scope.End()

	req := dto.RecordPaymentRequest{}
	if err := validator.Decode(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to decode request body")

		response.WithError(writer, err)

		return
	}

	booking, err := handler.service.RecordPayment(ctx, chi.URLParam(request, constant.RequestParamUserID), chi.URLParam(request, constant.RequestParamID), req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to record payment")

		response.WithError(writer, err)

		return
	}

	res := bookingDto.BookingResponse{}
	res.FromModel(booking)

	response.WithJSON(writer, http.StatusOK, res)
}

// VerifyPayment verifies the recorded payment and confirms the booking.
// @Summary Verify a payment
// @Description Mark the recorded payment verified and confirm the booking. Safe to retry.
// @Tags Payment
// @Accept json
// @Produce json
// @Param userId path string true "Owner ID"
// @Param id path string true "Booking ID"
// @Param request body dto.VerifyPaymentRequest true "Verify Payment Request"
// @Success 200 {object} response.Data[bookingDto.BookingResponse] "Confirmed booking"
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 422 {object} response.Error
// @Router /v1/admin/users/{userId}/bookings/{id}/payments/verify [post]
// @Security BearerAuth
func (handler *Handler) VerifyPayment(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".VerifyPayment")
	defer scope.End()

	req := dto.VerifyPaymentRequest{}
	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	booking, err := handler.service.VerifyPayment(ctx, chi.URLParam(request, constant.RequestParamUserID), chi.URLParam(request, constant.RequestParamID), req.ReferenceID)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to verify payment")

		response.WithError(writer, err)

		return
	}

	res := bookingDto.BookingResponse{}
	res.FromModel(booking)

	response.WithJSON(writer, http.StatusOK, res)
}
