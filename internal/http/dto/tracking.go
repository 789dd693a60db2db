package dto

import "github.com/enigma119/uqam-kafka-event-driven-poc/internal/model"

type DeliveryListResponse struct {
	Success    bool                   `json:"success"`
	Count      int                    `json:"count"`
	Deliveries []model.DeliveryRecord `json:"deliveries"`
}

type DeliveryResponse struct {
	Success  bool                  `json:"success"`
	Delivery *model.DeliveryRecord `json:"delivery"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
