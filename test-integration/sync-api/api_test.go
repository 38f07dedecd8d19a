package integration

import (
	"encoding/json"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	v0 "github.com/trackhouse/trackhouse-sync-server/internal/api/v0"
	"github.com/trackhouse/trackhouse-sync-server/internal/service"
	"github.com/trackhouse/trackhouse-sync-server/internal/sources"
	"github.com/trackhouse/trackhouse-sync-server/internal/tracking"
	"github.com/trackhouse/trackhouse-sync-server/test-integration/sync-api/helpers"
)

var _ = Describe("Carrier Refresh Integration", Label("carrier"), func() {
	var (
		tempDir      string
		carrierMock  *helpers.CarrierMock
		serverHelper *helpers.ServerTestHelper
	)

	// refreshedStatus polls the single-shipment refresh endpoint and reports
	// the carrier status of the returned record. The service keeps serving
	// the cached record until the shipment's freshness window lapses, so
	// callers wrap this in an Eventually.
	refreshedStatus := func(trackingNumber string, out *tracking.Record) func() string {
		return func() string {
			resp, err := serverHelper.RefreshTracking(trackingNumber)
			if err != nil {
				return ""
			}
			defer func() {
				_ = resp.Body.Close()
			}()
			if resp.StatusCode != http.StatusOK {
				return ""
			}
			var rec tracking.Record
			if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
				return ""
			}
			if out != nil {
				*out = rec
			}
			return rec.UPSStatus
		}
	}

	BeforeEach(func() {
		tempDir = createTempDir("carrier-test-")
		carrierMock = helpers.NewCarrierMock(map[string]sources.TrackingInfo{
			helpers.TrackingNumberShared: helpers.InTransitInfo(helpers.TrackingNumberShared, "Columbus Hub"),
			helpers.TrackingNumberSingle: helpers.InTransitInfo(helpers.TrackingNumberSingle, "Memphis Hub"),
		})

		ordersFile := helpers.WriteOrdersFile(tempDir, helpers.CreateSeedOrders())
		configFile := helpers.WriteConfigYAML(tempDir, helpers.ConfigOptions{
			OrdersFile:      ordersFile,
			CarrierEndpoint: carrierMock.URL(),
			Cooldown:        "2s",
		})

		serverHelper = helpers.NewServerTestHelper(ctx, configFile)
		Expect(serverHelper.StartServer()).To(Succeed())
		serverHelper.WaitForServerReady(10 * time.Second)

		resp, err := serverHelper.TriggerOrderSync()
		Expect(err).NotTo(HaveOccurred())
		var syncResp v0.SyncTriggeredResponse
		helpers.DecodeJSON(resp, &syncResp)
		Expect(syncResp.Success).To(BeTrue())
	})

	AfterEach(func() {
		Expect(serverHelper.StopServer()).To(Succeed())
		carrierMock.Close()
		cleanupTempDir(tempDir)
	})

	Context("Single Shipment Refresh", func() {
		It("should fetch carrier state and fan it out to every order sharing the tracking number", func() {
			var refreshed tracking.Record
			Eventually(refreshedStatus(helpers.TrackingNumberShared, &refreshed),
				10*time.Second, 250*time.Millisecond).Should(Equal("In Transit"))

			Expect(refreshed.Location).To(Equal("Columbus Hub"))
			Expect(carrierMock.Calls(helpers.TrackingNumberShared)).To(Equal(1))

			resp, err := serverHelper.GetOrders("")
			Expect(err).NotTo(HaveOccurred())
			var page service.Page
			helpers.DecodeJSON(resp, &page)

			shared := 0
			for _, rec := range page.Data {
				if rec.TrackingNumber != helpers.TrackingNumberShared {
					continue
				}
				shared++
				Expect(rec.UPSStatus).To(Equal("In Transit"))
				Expect(rec.Location).To(Equal("Columbus Hub"))
			}
			Expect(shared).To(Equal(2), "both orders on the shared shipment should carry the carrier state")
		})

		It("should serve the cached record while the shipment is fresh", func() {
			Eventually(refreshedStatus(helpers.TrackingNumberShared, nil),
				10*time.Second, 250*time.Millisecond).Should(Equal("In Transit"))
			calls := carrierMock.Calls(helpers.TrackingNumberShared)

			resp, err := serverHelper.RefreshTracking(helpers.TrackingNumberShared)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var rec tracking.Record
			helpers.DecodeJSON(resp, &rec)
			Expect(rec.UPSStatus).To(Equal("In Transit"))
			Expect(carrierMock.Calls(helpers.TrackingNumberShared)).To(Equal(calls))
		})

		It("should never call the carrier again once a shipment is delivered", func() {
			carrierMock.SetTracking(helpers.TrackingNumberSingle, helpers.DeliveredInfo(helpers.TrackingNumberSingle))

			var refreshed tracking.Record
			Eventually(refreshedStatus(helpers.TrackingNumberSingle, &refreshed),
				10*time.Second, 250*time.Millisecond).Should(Equal("Delivered"))
			Expect(refreshed.Delivered).To(BeTrue())
			calls := carrierMock.Calls(helpers.TrackingNumberSingle)

			// Even a contradictory upstream must not reopen the shipment
			carrierMock.SetTracking(helpers.TrackingNumberSingle, helpers.InTransitInfo(helpers.TrackingNumberSingle, "Ghost Town"))
			time.Sleep(2500 * time.Millisecond)

			resp, err := serverHelper.RefreshTracking(helpers.TrackingNumberSingle)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var rec tracking.Record
			helpers.DecodeJSON(resp, &rec)
			Expect(rec.Delivered).To(BeTrue())
			Expect(rec.UPSStatus).To(Equal("Delivered"))
			Expect(carrierMock.Calls(helpers.TrackingNumberSingle)).To(Equal(calls))
		})

		It("should return carrier data for an unknown shipment without storing it", func() {
			const adHoc = "1Z999AA10111111111"
			carrierMock.SetTracking(adHoc, helpers.InTransitInfo(adHoc, "Sorting Facility"))

			resp, err := serverHelper.RefreshTracking(adHoc)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var rec tracking.Record
			helpers.DecodeJSON(resp, &rec)
			Expect(rec.TrackingNumber).To(Equal(adHoc))
			Expect(rec.UPSStatus).To(Equal("In Transit"))
			Expect(rec.OrderNumber).To(BeEmpty())

			resp, err = serverHelper.GetOrders("")
			Expect(err).NotTo(HaveOccurred())
			var page service.Page
			helpers.DecodeJSON(resp, &page)
			Expect(page.Total).To(Equal(4))
			for _, stored := range page.Data {
				Expect(stored.TrackingNumber).NotTo(Equal(adHoc))
			}
		})

		It("should reject a refresh without a tracking number", func() {
			resp, err := serverHelper.RefreshTracking("")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

			var errResp v0.ErrorResponse
			helpers.DecodeJSON(resp, &errResp)
			Expect(errResp.Error).To(ContainSubstring("Tracking number is required"))
		})

		It("should return 502 when the carrier lookup fails", func() {
			resp, err := serverHelper.RefreshTracking("1Z999AA10222222222")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))

			var errResp v0.ErrorResponse
			helpers.DecodeJSON(resp, &errResp)
			Expect(errResp.Error).To(ContainSubstring("Carrier lookup failed"))
		})
	})

	Context("Issues View", func() {
		It("should surface a flagged order in the issues view", func() {
			resp, err := serverHelper.SetFlag("ORD-1003", "", true)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var flagResp v0.FlagResponse
			helpers.DecodeJSON(resp, &flagResp)
			Expect(flagResp.Success).To(BeTrue())
			Expect(flagResp.Flagged).To(BeTrue())

			resp, err = serverHelper.GetOrders("?status=Issues")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var page service.Page
			helpers.DecodeJSON(resp, &page)
			Expect(page.Page).To(Equal(1))
			Expect(page.TotalPages).To(Equal(1))
			Expect(page.Total).To(Equal(1))
			Expect(page.Data[0].OrderNumber).To(Equal("ORD-1003"))
			Expect(page.Data[0].Flagged).To(BeTrue())
		})

		It("should surface carrier exceptions without an operator flag", func() {
			carrierMock.SetTracking(helpers.TrackingNumberSingle, helpers.ExceptionInfo(helpers.TrackingNumberSingle))
			Eventually(refreshedStatus(helpers.TrackingNumberSingle, nil),
				10*time.Second, 250*time.Millisecond).Should(ContainSubstring("Exception"))

			resp, err := serverHelper.GetOrders("?status=Issues")
			Expect(err).NotTo(HaveOccurred())

			var page service.Page
			helpers.DecodeJSON(resp, &page)
			Expect(page.Total).To(Equal(1))
			Expect(page.Data[0].OrderNumber).To(Equal("ORD-1003"))
			Expect(page.Data[0].Flagged).To(BeFalse())
		})

		It("should list a flagged order with a carrier exception exactly once", func() {
			resp, err := serverHelper.SetFlag("ORD-1003", "", true)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			carrierMock.SetTracking(helpers.TrackingNumberSingle, helpers.ExceptionInfo(helpers.TrackingNumberSingle))
			Eventually(refreshedStatus(helpers.TrackingNumberSingle, nil),
				10*time.Second, 250*time.Millisecond).Should(ContainSubstring("Exception"))

			resp, err = serverHelper.GetOrders("?status=Issues")
			Expect(err).NotTo(HaveOccurred())

			var page service.Page
			helpers.DecodeJSON(resp, &page)
			occurrences := 0
			for _, rec := range page.Data {
				if rec.OrderNumber == "ORD-1003" {
					occurrences++
					Expect(rec.Flagged).To(BeTrue())
				}
			}
			Expect(occurrences).To(Equal(1))
		})

		It("should flag a shipment before its record exists", func() {
			// The order is not in the store yet, but the tracking number is
			// shared with ORD-1003, so the annotation overlays onto it.
			resp, err := serverHelper.SetFlag("ORD-2001", helpers.TrackingNumberSingle, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			resp, err = serverHelper.GetOrders("")
			Expect(err).NotTo(HaveOccurred())

			var page service.Page
			helpers.DecodeJSON(resp, &page)
			for _, rec := range page.Data {
				if rec.OrderNumber == "ORD-1003" {
					Expect(rec.Flagged).To(BeTrue(), "annotation on the tracking number should overlay the record")
				}
			}
		})
	})

	Context("Pagination and Search", func() {
		It("should paginate newest first", func() {
			resp, err := serverHelper.GetOrders("?limit=3")
			Expect(err).NotTo(HaveOccurred())

			var first service.Page
			helpers.DecodeJSON(resp, &first)
			Expect(first.Total).To(Equal(4))
			Expect(first.TotalPages).To(Equal(2))
			Expect(first.Data).To(HaveLen(3))
			for i := 1; i < len(first.Data); i++ {
				Expect(first.Data[i-1].LastUpdated).To(BeNumerically(">=", first.Data[i].LastUpdated))
			}

			resp, err = serverHelper.GetOrders("?limit=3&page=2")
			Expect(err).NotTo(HaveOccurred())

			var second service.Page
			helpers.DecodeJSON(resp, &second)
			Expect(second.Page).To(Equal(2))
			Expect(second.Data).To(HaveLen(1))
		})

		It("should filter by case-insensitive status substring", func() {
			resp, err := serverHelper.GetOrders("?status=PEND")
			Expect(err).NotTo(HaveOccurred())

			var page service.Page
			helpers.DecodeJSON(resp, &page)
			Expect(page.Total).To(Equal(4), "every freshly synced record starts out Pending")

			resp, err = serverHelper.GetOrders("?status=nosuchstatus")
			Expect(err).NotTo(HaveOccurred())

			var empty service.Page
			helpers.DecodeJSON(resp, &empty)
			Expect(empty.Total).To(Equal(0))
			Expect(empty.TotalPages).To(Equal(0))
			Expect(empty.Data).NotTo(BeNil())
			Expect(empty.Data).To(BeEmpty())
		})

		It("should match the carrier status once a refresh lands", func() {
			Eventually(refreshedStatus(helpers.TrackingNumberShared, nil),
				10*time.Second, 250*time.Millisecond).Should(Equal("In Transit"))

			resp, err := serverHelper.GetOrders("?status=TRANSIT")
			Expect(err).NotTo(HaveOccurred())

			var page service.Page
			helpers.DecodeJSON(resp, &page)
			Expect(page.Total).To(Equal(2))
			for _, rec := range page.Data {
				Expect(rec.TrackingNumber).To(Equal(helpers.TrackingNumberShared))
			}
		})

		It("should restrict the tracking view to shipped records", func() {
			resp, err := serverHelper.GetTracking("")
			Expect(err).NotTo(HaveOccurred())

			var page service.Page
			helpers.DecodeJSON(resp, &page)
			Expect(page.Total).To(Equal(3), "ORD-1004 has no tracking number yet")
			for _, rec := range page.Data {
				Expect(rec.TrackingNumber).NotTo(BeEmpty())
			}
		})

		It("should reject non-integer pagination parameters", func() {
			resp, err := serverHelper.GetOrders("?page=abc")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

			var errResp v0.ErrorResponse
			helpers.DecodeJSON(resp, &errResp)
			Expect(errResp.Error).To(ContainSubstring("Invalid page parameter"))
		})
	})
})

var _ = Describe("API Source Integration", Label("api"), func() {
	var (
		tempDir     string
		carrierMock *helpers.CarrierMock
		ordersMock  *helpers.OrdersMock
	)

	// orderTotal reports how many records the server currently serves.
	orderTotal := func(serverHelper *helpers.ServerTestHelper) func() int {
		return func() int {
			resp, err := serverHelper.GetOrders("")
			if err != nil {
				return -1
			}
			defer func() {
				_ = resp.Body.Close()
			}()
			var page service.Page
			if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
				return -1
			}
			return page.Total
		}
	}

	BeforeEach(func() {
		tempDir = createTempDir("api-test-")
		carrierMock = helpers.NewCarrierMock(nil)
		ordersMock = helpers.NewOrdersMock(helpers.CreateSeedOrders())
	})

	AfterEach(func() {
		carrierMock.Close()
		ordersMock.Close()
		cleanupTempDir(tempDir)
	})

	It("should sync the order list from the API endpoint", func() {
		configFile := helpers.WriteConfigYAML(tempDir, helpers.ConfigOptions{
			OrdersEndpoint:  ordersMock.URL(),
			CarrierEndpoint: carrierMock.URL(),
		})

		serverHelper := helpers.NewServerTestHelper(ctx, configFile)
		Expect(serverHelper.StartServer()).To(Succeed())
		defer func() {
			_ = serverHelper.StopServer()
		}()
		serverHelper.WaitForServerReady(10 * time.Second)

		resp, err := serverHelper.TriggerOrderSync()
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var syncResp v0.SyncTriggeredResponse
		helpers.DecodeJSON(resp, &syncResp)
		Expect(syncResp.Success).To(BeTrue())
		Expect(syncResp.Count).To(Equal(4))

		Expect(orderTotal(serverHelper)()).To(Equal(4))
	})

	It("should return 502 when the order API fails", func() {
		configFile := helpers.WriteConfigYAML(tempDir, helpers.ConfigOptions{
			OrdersEndpoint:  ordersMock.URL(),
			CarrierEndpoint: carrierMock.URL(),
		})

		serverHelper := helpers.NewServerTestHelper(ctx, configFile)
		Expect(serverHelper.StartServer()).To(Succeed())
		defer func() {
			_ = serverHelper.StopServer()
		}()
		serverHelper.WaitForServerReady(10 * time.Second)

		ordersMock.SetFailing(true)

		resp, err := serverHelper.TriggerOrderSync()
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))

		var errResp v0.ErrorResponse
		helpers.DecodeJSON(resp, &errResp)
		Expect(errResp.Error).To(ContainSubstring("Order fetch failed"))
	})

	Context("Automatic Background Sync", func() {
		It("should load records at startup without a manual trigger", func() {
			configFile := helpers.WriteConfigYAML(tempDir, helpers.ConfigOptions{
				OrdersEndpoint:   ordersMock.URL(),
				CarrierEndpoint:  carrierMock.URL(),
				Cooldown:         "50ms",
				AutoSyncEnabled:  true,
				AutoSyncInterval: "200ms",
			})

			serverHelper := helpers.NewServerTestHelper(ctx, configFile)
			Expect(serverHelper.StartServer()).To(Succeed())
			defer func() {
				_ = serverHelper.StopServer()
			}()
			serverHelper.WaitForServerReady(10 * time.Second)

			Eventually(orderTotal(serverHelper), 10*time.Second, 250*time.Millisecond).Should(Equal(4))
		})

		It("should pick up upstream changes on the polling interval", func() {
			configFile := helpers.WriteConfigYAML(tempDir, helpers.ConfigOptions{
				OrdersEndpoint:   ordersMock.URL(),
				CarrierEndpoint:  carrierMock.URL(),
				Cooldown:         "50ms",
				AutoSyncEnabled:  true,
				AutoSyncInterval: "200ms",
			})

			serverHelper := helpers.NewServerTestHelper(ctx, configFile)
			Expect(serverHelper.StartServer()).To(Succeed())
			defer func() {
				_ = serverHelper.StopServer()
			}()
			serverHelper.WaitForServerReady(10 * time.Second)

			Eventually(orderTotal(serverHelper), 10*time.Second, 250*time.Millisecond).Should(Equal(4))

			orders := append(helpers.CreateSeedOrders(), sources.Order{
				OrderID:       "1005",
				OrderNumber:   "ORD-1005",
				CustomerName:  "Lena Fischer",
				CustomerEmail: "lena@example.com",
				Items:         "1x Junction Box",
				ShipDate:      "2025-01-14",
				Status:        "awaiting_shipment",
			})
			ordersMock.SetOrders(orders)

			Eventually(orderTotal(serverHelper), 10*time.Second, 250*time.Millisecond).Should(Equal(5))
		})
	})
})
