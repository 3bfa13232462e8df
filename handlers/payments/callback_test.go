package payments

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/godwins3/beta-store/migrations"
	"github.com/godwins3/beta-store/models"
	"github.com/godwins3/beta-store/notify"
	"github.com/godwins3/beta-store/utils"
)

type nopMailer struct {
	mu   sync.Mutex
	sent int
}

func (m *nopMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent++
	return nil
}

// setupRouter gives each test a fresh in-memory store, a running dispatcher and
// the payment routes behind the session middleware, plus a test-only route that
// stamps an order id on the session the way checkout does.
func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	utils.DB = db
	migrations.MigrateShop()

	dispatcher := notify.NewDispatcher(db, &nopMailer{}, 1)
	dispatcher.Start()
	t.Cleanup(dispatcher.Stop)
	Notifier = dispatcher

	r := gin.New()
	r.Use(sessions.Sessions("checkout", cookie.NewStore([]byte("test-secret"))))
	r.POST("/test/checkout/:id", func(c *gin.Context) {
		id, _ := strconv.Atoi(c.Param("id"))
		require.NoError(t, utils.Checkout(c).SetOrderID(uint(id)))
		c.Status(http.StatusNoContent)
	})
	RegisterPaymentRoutes(r)
	return r
}

func createOrder(t *testing.T) models.Order {
	t.Helper()
	order := models.Order{
		OrderNumber: "QX1042",
		FirstName:   "Wanjiku",
		Email:       "wanjiku@example.com",
		Items: []models.OrderItem{
			{ProductID: 1, Price: decimal.NewFromInt(250), Quantity: 2},
		},
	}
	require.NoError(t, utils.DB.Create(&order).Error)
	return order
}

// startCheckout returns the session cookies carrying the order id.
func startCheckout(t *testing.T, r *gin.Engine, orderID uint) []*http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/test/checkout/%d", orderID), nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
	return w.Result().Cookies()
}

func postCallback(r *gin.Engine, payload string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/callback", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	r.ServeHTTP(w, req)
	return w
}

const successPayload = `{
	"Body": {
		"stkCallback": {
			"MerchantRequestID": "29115-34620561-1",
			"CheckoutRequestID": "ws_CO_191220191020363925",
			"ResultCode": 0,
			"ResultDesc": "The service request is processed successfully.",
			"CallbackMetadata": {
				"Item": [
					{"Name": "Amount", "Value": 500},
					{"Name": "MpesaReceiptNumber", "Value": "QCX123"},
					{"Name": "Balance", "Value": 1500},
					{"Name": "TransactionDate", "Value": 20240101120000},
					{"Name": "PhoneNumber", "Value": 254700000000}
				]
			}
		}
	}
}`

const failurePayload = `{
	"Body": {
		"stkCallback": {
			"MerchantRequestID": "29115-34620561-2",
			"CheckoutRequestID": "ws_CO_191220191020363926",
			"ResultCode": 1032,
			"ResultDesc": "Request cancelled by user."
		}
	}
}`

func TestCallbackSuccessRecordsPaymentAndMarksPaid(t *testing.T) {
	r := setupRouter(t)
	order := createOrder(t)
	cookies := startCheckout(t, r, order.ID)

	w := postCallback(r, successPayload, cookies)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/payments/completed", w.Header().Get("Location"))

	var payments []models.MpesaPayment
	require.NoError(t, utils.DB.Find(&payments).Error)
	require.Len(t, payments, 1)
	p := payments[0]
	assert.Equal(t, "29115-34620561-1", p.MerchantRequestID)
	assert.Equal(t, "ws_CO_191220191020363925", p.CheckoutRequestID)
	assert.Equal(t, 0, p.ResultCode)
	assert.True(t, p.Amount.Equal(decimal.NewFromInt(500)), "amount = %s", p.Amount)
	assert.Equal(t, "QCX123", p.MpesaReceiptNumber)
	assert.True(t, p.Balance.Equal(decimal.NewFromInt(1500)), "balance = %s", p.Balance)
	assert.Equal(t, "20240101120000", p.TransactionDate)
	assert.Equal(t, "254700000000", p.PhoneNumber)

	var updated models.Order
	require.NoError(t, utils.DB.First(&updated, order.ID).Error)
	assert.True(t, updated.Paid)
}

func TestCallbackDuplicateDeliveryLeavesOneRecord(t *testing.T) {
	r := setupRouter(t)
	order := createOrder(t)
	cookies := startCheckout(t, r, order.ID)

	first := postCallback(r, successPayload, cookies)
	require.Equal(t, http.StatusFound, first.Code)

	second := postCallback(r, successPayload, cookies)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "Payment already exists", second.Body.String())

	var count int64
	require.NoError(t, utils.DB.Model(&models.MpesaPayment{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCallbackFailureAcknowledgesWithoutWriting(t *testing.T) {
	r := setupRouter(t)
	order := createOrder(t)
	cookies := startCheckout(t, r, order.ID)

	w := postCallback(r, failurePayload, cookies)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ResultCode": 0, "ResultDesc": "Success", "ThirdPartyTransID": 0}`, w.Body.String())

	var count int64
	require.NoError(t, utils.DB.Model(&models.MpesaPayment{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)

	var updated models.Order
	require.NoError(t, utils.DB.First(&updated, order.ID).Error)
	assert.False(t, updated.Paid)
}

func TestCallbackShortMetadataFailsLoudly(t *testing.T) {
	r := setupRouter(t)
	order := createOrder(t)
	cookies := startCheckout(t, r, order.ID)

	payload := `{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "29115-34620561-3",
				"CheckoutRequestID": "ws_CO_191220191020363927",
				"ResultCode": 0,
				"ResultDesc": "ok",
				"CallbackMetadata": {
					"Item": [
						{"Name": "Amount", "Value": 500},
						{"Name": "MpesaReceiptNumber", "Value": "QCX124"}
					]
				}
			}
		}
	}`
	w := postCallback(r, payload, cookies)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "want 5")

	var count int64
	require.NoError(t, utils.DB.Model(&models.MpesaPayment{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestCallbackMistypedMetadataFailsLoudly(t *testing.T) {
	r := setupRouter(t)
	order := createOrder(t)
	cookies := startCheckout(t, r, order.ID)

	payload := `{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "29115-34620561-4",
				"CheckoutRequestID": "ws_CO_191220191020363928",
				"ResultCode": 0,
				"ResultDesc": "ok",
				"CallbackMetadata": {
					"Item": [
						{"Name": "Amount", "Value": true},
						{"Name": "MpesaReceiptNumber", "Value": "QCX125"},
						{"Name": "Balance", "Value": 1500},
						{"Name": "TransactionDate", "Value": 20240101120000},
						{"Name": "PhoneNumber", "Value": 254700000000}
					]
				}
			}
		}
	}`
	w := postCallback(r, payload, cookies)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Amount")
}

func TestCallbackWithoutCheckoutSession(t *testing.T) {
	r := setupRouter(t)
	createOrder(t)

	w := postCallback(r, successPayload, nil)

	require.Equal(t, http.StatusNotFound, w.Code)

	var count int64
	require.NoError(t, utils.DB.Model(&models.MpesaPayment{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}
