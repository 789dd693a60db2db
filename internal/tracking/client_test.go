package tracking_test

import (
	"context"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/event"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/tracking"
)

var _ = Describe("Client", func() {
	var (
		server *httptest.Server
		ctx    context.Context
	)

	AfterEach(func() {
		if server != nil {
			server.Close()
		}
	})

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("returns the reconciled status", func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/tracking/DLV-a1b2c3d4"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"success":true,"delivery":{"deliveryId":"DLV-a1b2c3d4","status":"DELIVERED"}}`))
		}))

		client := tracking.NewClient(server.URL)
		status, err := client.GetDeliveryStatus(ctx, "DLV-a1b2c3d4")

		Expect(err).NotTo(HaveOccurred())
		Expect(status).To(Equal(event.StatusDelivered))
	})

	It("fails when the delivery is not tracked yet", func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))

		client := tracking.NewClient(server.URL)
		_, err := client.GetDeliveryStatus(ctx, "DLV-missing")

		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("not yet tracked"))
	})

	It("fails on a non-success body", func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"success":false}`))
		}))

		client := tracking.NewClient(server.URL)
		_, err := client.GetDeliveryStatus(ctx, "DLV-a1b2c3d4")

		Expect(err).To(HaveOccurred())
	})

	It("fails on server errors", func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))

		client := tracking.NewClient(server.URL)
		_, err := client.GetDeliveryStatus(ctx, "DLV-a1b2c3d4")

		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("500"))
	})
})
