package livreur

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/livreur-console/internal/model"
)

func staticToken(token string) TokenSource {
	return TokenFunc(func(context.Context) (string, error) { return token, nil })
}

func newTestClient(t *testing.T, h http.HandlerFunc, token string) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return NewClient(ts.URL+"/api", staticToken(token))
}

func TestScanCode_OK(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/api/livreur/scan/LIV-2834" {
			t.Fatalf("path = %s, want /api/livreur/scan/LIV-2834", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Fatalf("authorization = %q, want Bearer secret", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Fatalf("content-type = %q, want application/json", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Fatalf("X-Request-ID header is missing")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"order":{"_id":"o1","orderNumber":"CMD-1","deliveryCode":"LIV-2834","status":"picked_up","totalAmount":42.5,"paymentMethod":"cash_on_delivery"}}`)
	}, "secret")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	order, err := client.ScanCode(ctx, "LIV-2834")
	if err != nil {
		t.Fatalf("ScanCode error: %v", err)
	}
	if order.ID != "o1" || order.Status != model.StatusPickedUp {
		t.Fatalf("unexpected order: %+v", order)
	}
	if !order.TotalAmount.Equal(decimal.RequireFromString("42.5")) {
		t.Fatalf("total = %s, want 42.5", order.TotalAmount)
	}
	if !order.AmountToCollect().Equal(order.TotalAmount) {
		t.Fatalf("cash order must collect the total amount")
	}
}

func TestScanCode_NotFoundMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"not found"}`)
	}, "")

	_, err := client.ScanCode(context.Background(), "LIV-0000")
	reqErr, ok := IsRequestError(err)
	if !ok {
		t.Fatalf("expected *RequestError, got %v", err)
	}
	if reqErr.StatusCode != http.StatusNotFound || reqErr.Message != "not found" {
		t.Fatalf("unexpected error: %+v", reqErr)
	}
}

func TestScanCode_EmptyOrder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	}, "")

	_, err := client.ScanCode(context.Background(), "LIV-1")
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("err = %v, want ErrOrderNotFound", err)
	}
}

func TestDo_ErrorMessageFallbacks(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "error field", body: `{"error":"a","message":"b"}`, want: "a"},
		{name: "message field", body: `{"message":"b"}`, want: "b"},
		{name: "no fields", body: `{}`, want: GenericErrorMessage},
		{name: "not json", body: `<html>oops</html>`, want: GenericErrorMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = io.WriteString(w, tt.body)
			}, "")

			err := client.SetAvailability(context.Background(), true)
			reqErr, ok := IsRequestError(err)
			if !ok {
				t.Fatalf("expected *RequestError, got %v", err)
			}
			if reqErr.Message != tt.want {
				t.Fatalf("message = %q, want %q", reqErr.Message, tt.want)
			}
		})
	}
}

func TestNoAuthorizationWithoutToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "" {
			t.Fatalf("authorization = %q, want empty", got)
		}
		_, _ = io.WriteString(w, `{"livreur":{"_id":"c1","isAvailable":true},"todayStats":{"delivered":3}}`)
	}, "")

	d, err := client.GetDashboard(context.Background())
	if err != nil {
		t.Fatalf("GetDashboard error: %v", err)
	}
	if !d.Livreur.IsAvailable || d.TodayStats.Delivered != 3 {
		t.Fatalf("unexpected dashboard: %+v", d)
	}
}

func TestUpdateOrderStatus_Body(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Fatalf("method = %s, want PUT", r.Method)
		}
		if r.URL.Path != "/api/livreur/orders/o1/status" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body["status"] != "refused" || body["refusalReason"] != "damaged" || body["refusalDetails"] != "box crushed" {
			t.Fatalf("unexpected body: %v", body)
		}
		if _, ok := body["note"]; ok {
			t.Fatalf("empty note must be omitted")
		}
		_, _ = io.WriteString(w, `{"success":true}`)
	}, "")

	err := client.UpdateOrderStatus(context.Background(), "o1", StatusUpdate{
		Status:         model.StatusRefused,
		RefusalReason:  model.ReasonDamaged,
		RefusalDetails: "box crushed",
	})
	if err != nil {
		t.Fatalf("UpdateOrderStatus error: %v", err)
	}
}

func TestGetMyOrdersAndHistory_Query(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/livreur/orders":
			if got := r.URL.Query().Get("status"); got != "picked_up" {
				t.Fatalf("status query = %q", got)
			}
			_, _ = io.WriteString(w, `{"orders":[{"_id":"a"},{"_id":"b"}]}`)
		case "/api/livreur/history":
			q := r.URL.Query()
			if q.Get("page") != "2" || q.Get("limit") != "10" || q.Get("startDate") != "2026-10-01" {
				t.Fatalf("history query = %v", q)
			}
			_, _ = io.WriteString(w, `{"orders":[{"_id":"h"}],"pagination":{"page":2,"limit":10,"total":11,"pages":2}}`)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}, "")

	orders, err := client.GetMyOrders(context.Background(), OrderFilter{Status: model.StatusPickedUp})
	if err != nil {
		t.Fatalf("GetMyOrders error: %v", err)
	}
	if len(orders) != 2 || orders[1].ID != "b" {
		t.Fatalf("unexpected orders: %+v", orders)
	}

	page, err := client.GetHistory(context.Background(), HistoryFilter{
		Page:  2,
		Limit: 10,
		From:  time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("GetHistory error: %v", err)
	}
	if page.Pagination.Total != 11 || len(page.Orders) != 1 {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestTransportError_IsNotRequestError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	client := NewClient(url, nil)
	_, err := client.GetDashboard(context.Background())
	if err == nil {
		t.Fatalf("expected transport error")
	}
	if _, ok := IsRequestError(err); ok {
		t.Fatalf("transport failure must not be a RequestError")
	}
}

func TestDo_NotConfigured(t *testing.T) {
	client := NewClient("", nil)
	if err := client.SetAvailability(context.Background(), false); err == nil {
		t.Fatalf("expected error for unconfigured client")
	}
}

func TestWithTimeout_DoesNotMutateSharedClient(t *testing.T) {
	shared := &http.Client{Timeout: 7 * time.Second}

	c := NewClient("http://localhost:5000/api", nil, WithHTTPClient(shared), WithTimeout(time.Second))

	if shared.Timeout != 7*time.Second {
		t.Fatalf("shared client timeout = %s, want 7s", shared.Timeout)
	}
	if c.httpClient == shared {
		t.Fatalf("client must use a copy of the shared http.Client")
	}
	if c.httpClient.Timeout != time.Second {
		t.Fatalf("client timeout = %s, want 1s", c.httpClient.Timeout)
	}

	plain := NewClient("http://localhost:5000/api", nil, WithHTTPClient(shared))
	if plain.httpClient != shared {
		t.Fatalf("client without timeout option must use the given http.Client")
	}
}
