package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/enigma119/uqam-kafka-event-driven-poc/common/logger"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/event"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/metrics"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/model"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/store"
)

// Service reconciles delivery lifecycle events into one queryable record per
// delivery. Merges are last-write-wins on status: a late delivery.started can
// move a DELIVERED record back to IN_TRANSIT. The statusHistory keeps every
// transition, so out-of-order arrivals remain visible after the fact.
type Service interface {
	Upsert(ctx context.Context, payload event.DeliveryPayload) (*model.DeliveryRecord, error)
	GetByDeliveryID(ctx context.Context, deliveryID string) (*model.DeliveryRecord, error)
	GetByOrderID(ctx context.Context, orderID string) (*model.DeliveryRecord, error)
	ListAll(ctx context.Context) ([]model.DeliveryRecord, error)
}

type service struct {
	store  store.DeliveryStore
	logger *slog.Logger
}

func NewService(deliveries store.DeliveryStore, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	return &service{
		store:  deliveries,
		logger: log,
	}
}

// Upsert merges one delivery event into the record keyed by its delivery
// identifier, creating the record on first sight. Each processed event
// appends exactly one statusHistory entry, duplicates included.
func (s *service) Upsert(ctx context.Context, payload event.DeliveryPayload) (*model.DeliveryRecord, error) {
	if payload.DeliveryID == "" {
		return nil, fmt.Errorf("delivery event without deliveryId")
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		DeliveryID: logger.Ptr(payload.DeliveryID),
		OrderID:    logger.Ptr(payload.OrderID),
	})

	timer := prometheus.NewTimer(metrics.MergeDuration)
	defer timer.ObserveDuration()

	existing, err := s.store.GetByID(ctx, payload.DeliveryID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("loading delivery %s: %w", payload.DeliveryID, err)
	}

	var merged *model.DeliveryRecord
	if existing == nil {
		merged, err = s.store.Create(ctx, newRecord(payload))
		if err != nil {
			return nil, fmt.Errorf("creating delivery %s: %w", payload.DeliveryID, err)
		}
		s.logger.InfoContext(ctx, "delivery record created",
			"delivery_id", merged.DeliveryID, "status", merged.Status)
	} else {
		merged, err = s.store.Update(ctx, mergeRecord(existing, payload))
		if err != nil {
			return nil, fmt.Errorf("updating delivery %s: %w", payload.DeliveryID, err)
		}
		s.logger.InfoContext(ctx, "delivery record updated",
			"delivery_id", merged.DeliveryID, "status", merged.Status, "history_len", len(merged.StatusHistory))
	}

	metrics.DeliveryMergesTotal.WithLabelValues(merged.Status).Inc()
	return merged, nil
}

// newRecord builds the first stored state of a delivery from whichever event
// arrived first. Fields the event does not carry get explicit defaults so the
// record is always renderable.
func newRecord(payload event.DeliveryPayload) *model.DeliveryRecord {
	rec := &model.DeliveryRecord{
		DeliveryID:    payload.DeliveryID,
		OrderID:       payload.OrderID,
		CustomerName:  payload.CustomerName,
		Status:        payload.Status,
		Items:         payload.Items,
		StartedAt:     payload.StartedAt,
		CompletedAt:   payload.CompletedAt,
		StatusHistory: []string{historyEntry(payload.Status)},
	}
	if rec.CustomerName == "" {
		rec.CustomerName = "Unknown"
	}
	if rec.Items == nil {
		rec.Items = []string{}
	}
	return rec
}

// mergeRecord folds an event into an existing record. Status is overwritten
// unconditionally, timestamps are copied only when the event carries them,
// and the history grows by one entry per event.
func mergeRecord(existing *model.DeliveryRecord, payload event.DeliveryPayload) *model.DeliveryRecord {
	merged := *existing
	merged.Status = payload.Status
	merged.StatusHistory = append(append([]string(nil), existing.StatusHistory...), historyEntry(payload.Status))

	if payload.StartedAt != nil {
		merged.StartedAt = payload.StartedAt
	}
	if payload.CompletedAt != nil {
		merged.CompletedAt = payload.CompletedAt
	}
	if payload.CustomerName != "" {
		merged.CustomerName = payload.CustomerName
	}
	if len(payload.Items) > 0 {
		merged.Items = payload.Items
	}
	return &merged
}

func historyEntry(status string) string {
	return fmt.Sprintf("%s at %s", status, time.Now().UTC().Format(time.RFC3339))
}

func (s *service) GetByDeliveryID(ctx context.Context, deliveryID string) (*model.DeliveryRecord, error) {
	return s.store.GetByID(ctx, deliveryID)
}

// GetByOrderID scans the full listing; delivery counts in this system are
// small and the store indexes by delivery identifier only.
func (s *service) GetByOrderID(ctx context.Context, orderID string) (*model.DeliveryRecord, error) {
	records, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].OrderID == orderID {
			return &records[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *service) ListAll(ctx context.Context) ([]model.DeliveryRecord, error) {
	return s.store.ListAll(ctx)
}
