package handle

import (
	"encoding/json"
	"net/http"

	"dropx/internal/delivery-service/core/domain/dto"
	"dropx/internal/delivery-service/core/domain/model"
	"dropx/internal/delivery-service/core/myerrors"
	"dropx/internal/delivery-service/core/ports"
	"dropx/internal/mylogger"
)

type DeliveryHandler struct {
	deliveryService ports.IDeliveryService
	log             mylogger.Logger
}

func NewDeliveryHandler(ds ports.IDeliveryService, log mylogger.Logger) *DeliveryHandler {
	return &DeliveryHandler{
		deliveryService: ds,
		log:             log,
	}
}

func toDeliveryResponse(d *model.Delivery) dto.DeliveryResponseDto {
	return dto.DeliveryResponseDto{
		DeliveryID:   d.ID,
		SenderID:     d.SenderID,
		ReceiverID:   d.ReceiverID,
		DriverID:     d.DriverID,
		DriverPostID: d.DriverPostID,
		PickupCity:   d.Pickup.City,
		DropoffCity:  d.Dropoff.City,
		TotalCost:    d.TotalCost,
		Status:       string(d.Status),
		TotalWeight:  d.TotalWeight(),
	}
}

func (dh *DeliveryHandler) CreateDelivery() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := principalFrom(r)
		if err != nil {
			JsonError(w, http.StatusUnauthorized, err)
			return
		}

		req := dto.CreateDeliveryDto{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			JsonError(w, http.StatusBadRequest, err)
			return
		}

		d, err := dh.deliveryService.CreateDelivery(r.Context(), principal, req)
		if err != nil {
			serviceError(w, err)
			return
		}

		jsonResponse(w, http.StatusCreated, toDeliveryResponse(d))
	}
}

func (dh *DeliveryHandler) GetDelivery() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := principalFrom(r)
		if err != nil {
			JsonError(w, http.StatusUnauthorized, err)
			return
		}

		id, err := pathUUID(r, "delivery_id")
		if err != nil {
			JsonError(w, http.StatusBadRequest, err)
			return
		}

		d, err := dh.deliveryService.GetDelivery(r.Context(), principal, id)
		if err != nil {
			serviceError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, toDeliveryResponse(d))
	}
}

func (dh *DeliveryHandler) ListDeliveries() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := principalFrom(r)
		if err != nil {
			JsonError(w, http.StatusUnauthorized, err)
			return
		}

		deliveries, err := dh.deliveryService.ListDeliveries(r.Context(), principal)
		if err != nil {
			serviceError(w, err)
			return
		}

		res := make([]dto.DeliveryResponseDto, 0, len(deliveries))
		for i := range deliveries {
			res = append(res, toDeliveryResponse(&deliveries[i]))
		}
		jsonResponse(w, http.StatusOK, res)
	}
}

func (dh *DeliveryHandler) AcceptDelivery() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := principalFrom(r)
		if err != nil {
			JsonError(w, http.StatusUnauthorized, err)
			return
		}

		id, err := pathUUID(r, "delivery_id")
		if err != nil {
			JsonError(w, http.StatusBadRequest, err)
			return
		}

		d, err := dh.deliveryService.AcceptDelivery(r.Context(), principal, id)
		if err != nil {
			serviceError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, toDeliveryResponse(d))
	}
}

func (dh *DeliveryHandler) TransitionDelivery() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := principalFrom(r)
		if err != nil {
			JsonError(w, http.StatusUnauthorized, err)
			return
		}

		id, err := pathUUID(r, "delivery_id")
		if err != nil {
			JsonError(w, http.StatusBadRequest, err)
			return
		}

		req := dto.TransitionDto{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			JsonError(w, http.StatusBadRequest, err)
			return
		}

		target := model.DeliveryStatus(req.Target)
		switch target {
		case model.DeliveryInTransit, model.DeliveryDelivered, model.DeliveryCancelled:
		default:
			serviceError(w, myerrors.ErrInvalidTransition)
			return
		}

		d, err := dh.deliveryService.TransitionDelivery(r.Context(), principal, id, target)
		if err != nil {
			serviceError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, toDeliveryResponse(d))
	}
}
