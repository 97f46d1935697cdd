//go:build api

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const serviceURL = "http://localhost:8080"

var (
	jwtSecret  = getEnv("API_JWT_SECRET", "local_dev_secret")
	adminToken string
	renter1    string
	renter2    string
)

func issueToken(userID int64, role string) string {
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(jwtSecret))
	if err != nil {
		panic(err)
	}
	return signed
}

func dateFrom(days int) string {
	return time.Now().AddDate(0, 0, days).Format("2006-01-02")
}

// TestAPI_FullFlow walks the rental lifecycle end to end against a running
// stack: catalogue, booking with pricing snapshot, conflict rejection,
// ownership, cancellation and admin overrides.
func TestAPI_FullFlow(t *testing.T) {
	waitForService(t)

	var carID float64
	var booking1ID float64
	var booking2ID float64

	// Step 1: Admin creates a car
	t.Run("Step1_AdminCreatesCar", func(t *testing.T) {
		t.Log("STEP 1: Create Car")
		t.Log("    Request:  POST /api/v1/admin/cars")

		carReq := map[string]interface{}{
			"brand":         "Toyota",
			"model":         "Avanza",
			"license_plate": "B 1234 API",
			"year":          2023,
			"seats":         7,
			"daily_rate":    300000,
		}

		resp := post(t, "/api/v1/admin/cars", carReq, adminToken)
		assert.Equal(t, 201, resp.StatusCode, "Should create car successfully")

		var carResp map[string]interface{}
		decodeJSON(t, resp, &carResp)
		carID = carResp["id"].(float64)

		assert.Equal(t, "Toyota", carResp["brand"])
		assert.Equal(t, float64(300000), carResp["daily_rate"])
		assert.Equal(t, true, carResp["is_available"])

		t.Logf("    Result:   HTTP 201, car id=%v", carID)
	})

	// Step 2: Duplicate plate rejected
	t.Run("Step2_DuplicatePlate", func(t *testing.T) {
		t.Log("STEP 2: Duplicate License Plate")

		carReq := map[string]interface{}{
			"brand":         "Honda",
			"model":         "Brio",
			"license_plate": "B 1234 API",
			"year":          2024,
			"daily_rate":    250000,
		}

		resp := post(t, "/api/v1/admin/cars", carReq, adminToken)
		assert.Equal(t, 409, resp.StatusCode, "Should reject duplicate plate")

		t.Log("    Result:   HTTP 409 Conflict")
	})

	// Step 3: Public catalogue
	t.Run("Step3_PublicCatalogue", func(t *testing.T) {
		t.Log("STEP 3: Public Catalogue")
		t.Log("    Request:  GET /api/v1/cars")

		resp := get(t, "/api/v1/cars", "")
		assert.Equal(t, 200, resp.StatusCode)

		var cars []map[string]interface{}
		decodeJSON(t, resp, &cars)
		assert.Len(t, cars, 1)

		t.Logf("    Result:   HTTP 200, %d car(s) listed", len(cars))
	})

	// Step 4: Renter creates a booking with the pricing snapshot
	t.Run("Step4_CreateBooking", func(t *testing.T) {
		t.Log("STEP 4: Create Booking")
		t.Logf("    Request:  POST /api/v1/bookings (%s to %s)", dateFrom(30), dateFrom(33))

		bookingReq := map[string]interface{}{
			"car_id":     carID,
			"start_date": dateFrom(30),
			"end_date":   dateFrom(33),
		}

		resp := post(t, "/api/v1/bookings", bookingReq, renter1)
		assert.Equal(t, 201, resp.StatusCode, "Should create booking successfully")

		var bookingResp map[string]interface{}
		decodeJSON(t, resp, &bookingResp)
		booking1ID = bookingResp["id"].(float64)

		assert.Equal(t, "pending", bookingResp["status"])
		assert.Equal(t, float64(3), bookingResp["total_days"])
		assert.Equal(t, float64(900000), bookingResp["subtotal"])
		assert.Equal(t, float64(108000), bookingResp["tax_amount"])
		assert.Equal(t, float64(1008000), bookingResp["total_amount"])
		assert.Equal(t, true, bookingResp["can_cancel"])

		payment := bookingResp["payment"].(map[string]interface{})
		assert.Equal(t, "pending", payment["payment_status"])
		assert.Equal(t, float64(1008000), payment["amount"])

		t.Logf("    Result:   HTTP 201, booking id=%v total=%v", booking1ID, bookingResp["total_amount"])
	})

	// Step 5: Unauthenticated request rejected
	t.Run("Step5_Unauthenticated", func(t *testing.T) {
		t.Log("STEP 5: Unauthenticated Booking")

		resp := post(t, "/api/v1/bookings", map[string]interface{}{"car_id": carID}, "")
		assert.Equal(t, 401, resp.StatusCode)

		t.Log("    Result:   HTTP 401 Unauthorized")
	})

	// Step 6: Admin confirms the booking (manual payment)
	t.Run("Step6_AdminConfirm", func(t *testing.T) {
		t.Log("STEP 6: Admin Confirm")
		t.Logf("    Request:  PATCH /api/v1/admin/bookings/%v/status", booking1ID)

		resp := patch(t, fmt.Sprintf("/api/v1/admin/bookings/%v/status", booking1ID),
			map[string]string{"status": "confirmed"}, adminToken)
		assert.Equal(t, 200, resp.StatusCode)

		var bookingResp map[string]interface{}
		decodeJSON(t, resp, &bookingResp)

		assert.Equal(t, "confirmed", bookingResp["status"])
		payment := bookingResp["payment"].(map[string]interface{})
		assert.Equal(t, "paid", payment["payment_status"])
		assert.Equal(t, "manual", payment["payment_method"])

		t.Log("    Result:   HTTP 200, booking confirmed, payment paid (manual)")
	})

	// Step 7: Overlapping booking rejected, shared boundary day included
	t.Run("Step7_DateConflict", func(t *testing.T) {
		t.Log("STEP 7: Date Conflict")
		t.Logf("    Request:  POST /api/v1/bookings (%s to %s, starts on existing end date)", dateFrom(33), dateFrom(36))

		bookingReq := map[string]interface{}{
			"car_id":     carID,
			"start_date": dateFrom(33),
			"end_date":   dateFrom(36),
		}

		resp := post(t, "/api/v1/bookings", bookingReq, renter2)
		assert.Equal(t, 409, resp.StatusCode, "Should reject overlapping dates")

		t.Log("    Result:   HTTP 409 Conflict")
	})

	// Step 8: Ownership - renter2 cannot see renter1's booking
	t.Run("Step8_Ownership", func(t *testing.T) {
		t.Log("STEP 8: Ownership")
		t.Logf("    Request:  GET /api/v1/bookings/%v as another renter", booking1ID)

		resp := get(t, fmt.Sprintf("/api/v1/bookings/%v", booking1ID), renter2)
		assert.Equal(t, 404, resp.StatusCode, "Other user's booking should look missing")

		resp = get(t, fmt.Sprintf("/api/v1/bookings/%v", booking1ID), renter1)
		assert.Equal(t, 200, resp.StatusCode)

		t.Log("    Result:   HTTP 404 for stranger, HTTP 200 for owner")
	})

	// Step 9: Renter2 books disjoint dates, then cancels
	t.Run("Step9_BookAndCancel", func(t *testing.T) {
		t.Log("STEP 9: Book and Cancel")

		bookingReq := map[string]interface{}{
			"car_id":     carID,
			"start_date": dateFrom(40),
			"end_date":   dateFrom(43),
		}

		resp := post(t, "/api/v1/bookings", bookingReq, renter2)
		require.Equal(t, 201, resp.StatusCode)

		var bookingResp map[string]interface{}
		decodeJSON(t, resp, &bookingResp)
		booking2ID = bookingResp["id"].(float64)

		resp = del(t, fmt.Sprintf("/api/v1/bookings/%v", booking2ID), renter2)
		assert.Equal(t, 200, resp.StatusCode)

		var cancelResp map[string]interface{}
		decodeJSON(t, resp, &cancelResp)
		assert.Equal(t, "cancelled", cancelResp["status"])
		assert.Equal(t, false, cancelResp["can_cancel"])

		t.Logf("    Result:   booking id=%v cancelled", booking2ID)
	})

	// Step 10: Admin cancel of the paid booking records refund intent
	t.Run("Step10_AdminCancelRefund", func(t *testing.T) {
		t.Log("STEP 10: Admin Cancel with Refund Intent")

		resp := patch(t, fmt.Sprintf("/api/v1/admin/bookings/%v/status", booking1ID),
			map[string]string{"status": "cancelled"}, adminToken)
		assert.Equal(t, 200, resp.StatusCode)

		var bookingResp map[string]interface{}
		decodeJSON(t, resp, &bookingResp)

		assert.Equal(t, "cancelled", bookingResp["status"])
		payment := bookingResp["payment"].(map[string]interface{})
		assert.Equal(t, "refunded", payment["payment_status"])

		t.Log("    Result:   HTTP 200, payment marked refunded")
	})

	// Step 11: Admin listing with status filter
	t.Run("Step11_AdminList", func(t *testing.T) {
		t.Log("STEP 11: Admin Listing")
		t.Log("    Request:  GET /api/v1/admin/bookings?status=cancelled")

		resp := get(t, "/api/v1/admin/bookings?status=cancelled", adminToken)
		assert.Equal(t, 200, resp.StatusCode)

		var bookings []map[string]interface{}
		decodeJSON(t, resp, &bookings)
		assert.Len(t, bookings, 2)

		// Non-admin is rejected
		resp = get(t, "/api/v1/admin/bookings", renter1)
		assert.Equal(t, 403, resp.StatusCode)

		t.Logf("    Result:   %d cancelled booking(s), non-admin got 403", len(bookings))
	})
}

// Helper functions

func waitForService(t *testing.T) {
	t.Log("Waiting for service to be ready...")

	maxRetries := 30
	for i := 0; i < maxRetries; i++ {
		resp, err := http.Get(serviceURL + "/health")
		if err == nil && resp.StatusCode == 200 {
			resp.Body.Close()
			t.Log("Service is ready")
			return
		}
		time.Sleep(1 * time.Second)
	}

	t.Fatal("Service did not become ready in time")
}

func do(t *testing.T, method, path string, body interface{}, token string) *http.Response {
	t.Helper()
	var buf *bytes.Buffer
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewBuffer(jsonBody)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, serviceURL+path, buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func get(t *testing.T, path, token string) *http.Response {
	return do(t, http.MethodGet, path, nil, token)
}

func post(t *testing.T, path string, body interface{}, token string) *http.Response {
	return do(t, http.MethodPost, path, body, token)
}

func patch(t *testing.T, path string, body interface{}, token string) *http.Response {
	return do(t, http.MethodPatch, path, body, token)
}

func del(t *testing.T, path, token string) *http.Response {
	return do(t, http.MethodDelete, path, nil, token)
}

func decodeJSON(t *testing.T, resp *http.Response, target interface{}) {
	defer resp.Body.Close()
	err := json.NewDecoder(resp.Body).Decode(target)
	if err != nil && resp.StatusCode >= 400 {
		// For error responses, body might not be JSON
		return
	}
	require.NoError(t, err)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// TestMain - Setup and teardown
func TestMain(m *testing.M) {
	fmt.Println("Starting API tests...")
	fmt.Println("Make sure the service and its backing stores are running")
	fmt.Println("")

	adminToken = issueToken(1, "admin")
	renter1 = issueToken(7, "customer")
	renter2 = issueToken(8, "customer")

	code := m.Run()

	fmt.Println("")
	fmt.Println("API tests complete")
	os.Exit(code)
}
