package integration

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	v0 "github.com/trackhouse/trackhouse-sync-server/internal/api/v0"
	"github.com/trackhouse/trackhouse-sync-server/internal/service"
	"github.com/trackhouse/trackhouse-sync-server/internal/tracking"
	"github.com/trackhouse/trackhouse-sync-server/test-integration/sync-api/helpers"
)

var _ = Describe("File Source Integration", Label("file"), func() {
	var (
		tempDir     string
		carrierMock *helpers.CarrierMock
	)

	BeforeEach(func() {
		tempDir = createTempDir("file-test-")
		carrierMock = helpers.NewCarrierMock(nil)
	})

	AfterEach(func() {
		carrierMock.Close()
		cleanupTempDir(tempDir)
	})

	Context("Loading from Local File", func() {
		It("should load the order list from a file and serve the records", func() {
			ordersFile := helpers.WriteOrdersFile(tempDir, helpers.CreateSeedOrders())
			configFile := helpers.WriteConfigYAML(tempDir, helpers.ConfigOptions{
				OrdersFile:      ordersFile,
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

			resp, err = serverHelper.GetOrders("")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var page service.Page
			helpers.DecodeJSON(resp, &page)
			Expect(page.Total).To(Equal(4))
			Expect(page.TotalPages).To(Equal(1))
			Expect(page.Page).To(Equal(1))
			Expect(page.Data).To(HaveLen(4))
			Expect(page.LastSync).To(BeNumerically(">", 0))

			orderNumbers := make([]string, 0, len(page.Data))
			for _, rec := range page.Data {
				orderNumbers = append(orderNumbers, rec.OrderNumber)
			}
			Expect(orderNumbers).To(ConsistOf("ORD-1001", "ORD-1002", "ORD-1003", "ORD-1004"))
		})

		It("should serve an empty page before the first sync", func() {
			ordersFile := helpers.WriteOrdersFile(tempDir, helpers.CreateSeedOrders())
			configFile := helpers.WriteConfigYAML(tempDir, helpers.ConfigOptions{
				OrdersFile:      ordersFile,
				CarrierEndpoint: carrierMock.URL(),
			})

			serverHelper := helpers.NewServerTestHelper(ctx, configFile)
			Expect(serverHelper.StartServer()).To(Succeed())
			defer func() {
				_ = serverHelper.StopServer()
			}()
			serverHelper.WaitForServerReady(10 * time.Second)

			resp, err := serverHelper.GetOrders("")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var page service.Page
			helpers.DecodeJSON(resp, &page)
			Expect(page.Total).To(Equal(0))
			Expect(page.TotalPages).To(Equal(0))
			Expect(page.Page).To(Equal(1))
			Expect(page.Data).NotTo(BeNil())
			Expect(page.Data).To(BeEmpty())
			Expect(page.LastSync).To(BeZero())
		})

		It("should return 502 when the orders file is missing", func() {
			configFile := helpers.WriteConfigYAML(tempDir, helpers.ConfigOptions{
				OrdersFile:      filepath.Join(tempDir, "missing.json"),
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
			Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))

			var errResp v0.ErrorResponse
			helpers.DecodeJSON(resp, &errResp)
			Expect(errResp.Error).To(ContainSubstring("Order fetch failed"))
		})
	})

	Context("Sync Cooldown", func() {
		It("should suppress a second sync within the cooldown", func() {
			ordersFile := helpers.WriteOrdersFile(tempDir, helpers.CreateSeedOrders())
			configFile := helpers.WriteConfigYAML(tempDir, helpers.ConfigOptions{
				OrdersFile:      ordersFile,
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
			var syncResp v0.SyncTriggeredResponse
			helpers.DecodeJSON(resp, &syncResp)
			Expect(syncResp.Success).To(BeTrue())

			resp, err = serverHelper.TriggerOrderSync()
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var skipped v0.SyncSkippedResponse
			helpers.DecodeJSON(resp, &skipped)
			Expect(skipped.Success).To(BeFalse())
			Expect(skipped.Message).To(ContainSubstring("Next sync available"))
			// Default cooldown is 30 minutes, reported rounded up
			Expect(skipped.NextSyncIn).To(BeNumerically(">=", 29))
			Expect(skipped.NextSyncIn).To(BeNumerically("<=", 30))
		})

		It("should keep operator flags when re-syncing an updated file", func() {
			ordersFile := helpers.WriteOrdersFile(tempDir, helpers.CreateSeedOrders())
			configFile := helpers.WriteConfigYAML(tempDir, helpers.ConfigOptions{
				OrdersFile:      ordersFile,
				CarrierEndpoint: carrierMock.URL(),
				Cooldown:        "1s",
			})

			serverHelper := helpers.NewServerTestHelper(ctx, configFile)
			Expect(serverHelper.StartServer()).To(Succeed())
			defer func() {
				_ = serverHelper.StopServer()
			}()
			serverHelper.WaitForServerReady(10 * time.Second)

			resp, err := serverHelper.TriggerOrderSync()
			Expect(err).NotTo(HaveOccurred())
			var syncResp v0.SyncTriggeredResponse
			helpers.DecodeJSON(resp, &syncResp)
			Expect(syncResp.Success).To(BeTrue())

			resp, err = serverHelper.SetFlag("ORD-1003", "", true)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var flagResp v0.FlagResponse
			helpers.DecodeJSON(resp, &flagResp)
			Expect(flagResp.Flagged).To(BeTrue())

			// The upstream ships ORD-1004 while the cooldown runs out
			orders := helpers.CreateSeedOrders()
			orders[3].TrackingNumber = "1Z999AA10100000001"
			orders[3].Status = "shipped"
			helpers.WriteOrdersFile(tempDir, orders)

			Eventually(func() bool {
				resp, err := serverHelper.TriggerOrderSync()
				if err != nil {
					return false
				}
				defer func() {
					_ = resp.Body.Close()
				}()
				var triggered v0.SyncTriggeredResponse
				if err := json.NewDecoder(resp.Body).Decode(&triggered); err != nil {
					return false
				}
				return triggered.Success
			}, 5*time.Second, 250*time.Millisecond).Should(BeTrue())

			resp, err = serverHelper.GetOrders("")
			Expect(err).NotTo(HaveOccurred())
			var page service.Page
			helpers.DecodeJSON(resp, &page)

			byOrder := make(map[string]tracking.Record, len(page.Data))
			for _, rec := range page.Data {
				byOrder[rec.OrderNumber] = rec
			}
			Expect(byOrder["ORD-1003"].Flagged).To(BeTrue(), "re-sync must not clear the operator flag")
			Expect(byOrder["ORD-1004"].TrackingNumber).To(Equal("1Z999AA10100000001"))
			Expect(byOrder["ORD-1004"].Status).To(Equal("shipped"))
		})
	})
})
