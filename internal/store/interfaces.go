package store

import (
	"context"
	"errors"

	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/model"
)

var ErrNotFound = errors.New("record not found")

// DeliveryStore is the tracking service's record store: single-document
// find/create/update by delivery identifier, plus a sorted list. Exactly one
// record exists per delivery identifier; records are never deleted.
type DeliveryStore interface {
	GetByID(ctx context.Context, deliveryID string) (*model.DeliveryRecord, error)
	Create(ctx context.Context, rec *model.DeliveryRecord) (*model.DeliveryRecord, error)
	Update(ctx context.Context, rec *model.DeliveryRecord) (*model.DeliveryRecord, error)
	ListAll(ctx context.Context) ([]model.DeliveryRecord, error)
}
