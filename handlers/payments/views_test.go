package payments

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(r *gin.Engine, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestCompletedWithoutOrderRedirectsToOrderList(t *testing.T) {
	r := setupRouter(t)

	for _, path := range []string{"/payments/completed", "/payments/cancelled"} {
		w := get(r, path, nil)
		require.Equal(t, http.StatusFound, w.Code, path)
		assert.Equal(t, "/orders", w.Header().Get("Location"), path)
	}
}

func TestCompletedClearsSessionOrder(t *testing.T) {
	r := setupRouter(t)
	order := createOrder(t)
	cookies := startCheckout(t, r, order.ID)

	w := get(r, "/payments/completed", cookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), order.OrderNumber)

	// The cleared cookie comes back on the response; with it the order
	// reference is gone and the view refuses to render.
	cleared := w.Result().Cookies()
	again := get(r, "/payments/completed", cleared)
	require.Equal(t, http.StatusFound, again.Code)
	assert.Equal(t, "/orders", again.Header().Get("Location"))
}

func TestCancelledClearsSessionOnPost(t *testing.T) {
	r := setupRouter(t)
	order := createOrder(t)
	cookies := startCheckout(t, r, order.ID)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/cancelled", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	again := get(r, "/payments/cancelled", w.Result().Cookies())
	require.Equal(t, http.StatusFound, again.Code)
}

func TestManualPaymentViewsNeedAnActiveOrder(t *testing.T) {
	r := setupRouter(t)
	order := createOrder(t)
	cookies := startCheckout(t, r, order.ID)

	for _, path := range []string{"/payments/on-delivery", "/payments/bank-transfer"} {
		w := get(r, path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)

		w = get(r, path, cookies)
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Body.String(), order.OrderNumber, path)
		assert.Contains(t, w.Body.String(), "500", path) // 2 x 250
	}
}
