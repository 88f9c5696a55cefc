//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	httpapi "github.com/rental-hub/rental-hub/internal/api/http"
	appActivity "github.com/rental-hub/rental-hub/internal/application/activity"
	appAudit "github.com/rental-hub/rental-hub/internal/application/audit"
	appBooking "github.com/rental-hub/rental-hub/internal/application/booking"
	appNotification "github.com/rental-hub/rental-hub/internal/application/notification"
	"github.com/rental-hub/rental-hub/internal/clock"
	"github.com/rental-hub/rental-hub/internal/domain/notification"
	"github.com/rental-hub/rental-hub/internal/infrastructure/postgres"
	"github.com/rental-hub/rental-hub/internal/infrastructure/push"
	"github.com/rental-hub/rental-hub/internal/infrastructure/sse"
)

const auditKeyHex = "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"

const (
	tenantID = "tenant-int"
	ownerID  = "owner-int"
)

type testEnv struct {
	server   *httptest.Server
	booking  *appBooking.Service
	audit    *appAudit.Service
	clock    *clock.Manual
	pushes   chan map[string]interface{}
	property uuid.UUID
}

func TestBookingLifecycleIntegration(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()

	status, body := env.call(t, http.MethodPost, "/v1/visits", tenantID, map[string]interface{}{
		"propertyId": env.property.String(),
		"date":       "2024-01-15",
		"time":       "10:00",
	})
	if status != http.StatusCreated {
		t.Fatalf("request visit: %d %v", status, body)
	}
	visitID := body["visitId"].(string)

	delivered := env.waitPush(t)
	if delivered["type"] != "visit_request" || delivered["target_user_id"] != ownerID {
		t.Fatalf("unexpected push: %v", delivered)
	}
	notificationID := delivered["notification_id"].(string)

	status, body = env.call(t, http.MethodPost, "/v1/notifications/"+notificationID+"/actions/accept", ownerID, nil)
	if status != http.StatusOK {
		t.Fatalf("invoke accept: %d %v", status, body)
	}
	status, body = env.call(t, http.MethodPost, "/v1/notifications/"+notificationID+"/actions/reject", ownerID, nil)
	if status != http.StatusConflict {
		t.Fatalf("second invoke expected 409, got %d %v", status, body)
	}
	env.waitPush(t)

	env.clock.Set(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC))
	done, err := env.booking.TickVisitClock(context.Background(), env.clock.Now())
	if err != nil || len(done) != 1 {
		t.Fatalf("tick: %v %d", err, len(done))
	}
	env.waitPush(t)

	status, body = env.call(t, http.MethodGet, "/v1/visits/"+visitID, tenantID, nil)
	if body["status"] != "COMPLETED" {
		t.Fatalf("visit status: %d %v", status, body)
	}

	status, body = env.call(t, http.MethodPost, "/v1/reservations", tenantID, map[string]interface{}{
		"propertyId":    env.property.String(),
		"startDate":     "2024-02-01",
		"endDate":       "2025-01-31",
		"occupants":     2,
		"monthlyIncome": 2400,
	})
	if status != http.StatusCreated {
		t.Fatalf("submit reservation: %d %v", status, body)
	}
	reservationID := body["reservationId"].(string)
	base := "/v1/reservations/" + reservationID
	env.waitPush(t)

	steps := []struct {
		method, path, user string
		body               interface{}
		want               int
	}{
		{http.MethodPost, base + "/respond", ownerID, map[string]string{"decision": "ACCEPT"}, http.StatusOK},
		{http.MethodPost, base + "/respond", ownerID, map[string]string{"decision": "REFUSE"}, http.StatusConflict},
		{http.MethodPost, base + "/contract/generate", ownerID, nil, http.StatusUnprocessableEntity},
		{http.MethodPost, base + "/payments", tenantID, map[string]string{"method": "TRANSFER"}, http.StatusCreated},
		{http.MethodPost, base + "/payments", tenantID, map[string]string{"method": "TRANSFER"}, http.StatusUnprocessableEntity},
	}
	for _, s := range steps {
		if status, body := env.call(t, s.method, s.path, s.user, s.body); status != s.want {
			t.Fatalf("%s %s: want %d, got %d %v", s.method, s.path, s.want, status, body)
		}
	}

	_, body = env.call(t, http.MethodGet, base+"/payment", tenantID, nil)
	paymentID := body["paymentId"].(string)
	for _, s := range []struct {
		path, user string
		want       int
	}{
		{"/v1/payments/" + paymentID + "/complete", "", http.StatusOK},
		{"/v1/payments/" + paymentID + "/complete", "", http.StatusConflict},
		{base + "/contract/generate", ownerID, http.StatusOK},
		{base + "/contract/sign", tenantID, http.StatusOK},
	} {
		if status, body := env.call(t, http.MethodPost, s.path, s.user, nil); status != s.want {
			t.Fatalf("POST %s: want %d, got %d %v", s.path, s.want, status, body)
		}
	}

	_, body = env.call(t, http.MethodGet, "/v1/properties/"+env.property.String()+"/activity", tenantID, nil)
	if body["stage"] != "Payment" || body["currentStep"] != "completed" {
		t.Fatalf("activity: %v", body)
	}

	env.audit.Flush()
	_, body = env.call(t, http.MethodGet, "/v1/audit/reservation/"+reservationID+"?verify=true", ownerID, nil)
	results, _ := body["verification"].([]interface{})
	if len(results) != 4 {
		t.Fatalf("expected 4 audit entries, got %v", body)
	}
	for _, r := range results {
		if r.(map[string]interface{})["verified"] != true {
			t.Fatalf("audit entry not verified: %v", r)
		}
	}

	conversation := notification.ConversationID(env.property, tenantID, ownerID)
	_, body = env.call(t, http.MethodGet, "/v1/conversations/"+conversation+"/messages", ownerID, nil)
	if msgs, _ := body["messages"].([]interface{}); len(msgs) != 2 {
		t.Fatalf("expected 2 chat messages, got %v", body)
	}
}

func TestConcurrentVisitResponsesIntegration(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()

	status, body := env.call(t, http.MethodPost, "/v1/visits", tenantID, map[string]interface{}{
		"propertyId": env.property.String(),
		"date":       "2024-01-16",
		"time":       "15:30",
	})
	if status != http.StatusCreated {
		t.Fatalf("request visit: %d %v", status, body)
	}
	path := "/v1/visits/" + body["visitId"].(string) + "/respond"

	var wg sync.WaitGroup
	codes := make(chan int, 2)
	for _, decision := range []string{"ACCEPT", "REJECT"} {
		wg.Add(1)
		go func(decision string) {
			defer wg.Done()
			status, _ := env.call(t, http.MethodPost, path, ownerID, map[string]string{"decision": decision})
			codes <- status
		}(decision)
	}
	wg.Wait()
	close(codes)

	counts := map[int]int{}
	for c := range codes {
		counts[c]++
	}
	if counts[http.StatusOK] != 1 || counts[http.StatusConflict] != 1 {
		t.Fatalf("expected one winner and one stale response, got %v", counts)
	}
}

func (e *testEnv) call(t *testing.T, method, path, user string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(httpapi.UserHeader, user)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	out := map[string]interface{}{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp.StatusCode, out
}

func (e *testEnv) waitPush(t *testing.T) map[string]interface{} {
	t.Helper()
	select {
	case p := <-e.pushes:
		return p
	case <-time.After(5 * time.Second):
		t.Fatalf("timeout waiting for push delivery")
		return nil
	}
}

func newTestEnv(t *testing.T) (*testEnv, func()) {
	t.Helper()
	dsn := testDatabaseURL(t)

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("db pool: %v", err)
	}

	root := repoRoot(t)
	if err := postgres.RunMigrations(ctx, pool, filepath.Join(root, "internal", "migrations")); err != nil {
		pool.Close()
		t.Fatalf("migrations: %v", err)
	}
	if err := resetDatabase(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("reset db: %v", err)
	}

	pushes := make(chan map[string]interface{}, 32)
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var p map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&p); err == nil {
			pushes <- p
		}
		w.WriteHeader(http.StatusOK)
	}))

	logger := zerolog.Nop()
	clk := clock.NewManual(time.Date(2024, 1, 14, 9, 0, 0, 0, time.UTC))
	properties := postgres.NewPropertyRepository(pool)
	visits := postgres.NewVisitRepository(pool)
	reservations := postgres.NewReservationRepository(pool)
	payments := postgres.NewPaymentRepository(pool)
	profiles := postgres.NewProfileRepository(pool)
	chat := postgres.NewChatLog(pool)

	sseHub := sse.NewHub()
	dispatcher := appNotification.NewDispatcher(
		postgres.NewNotificationRepository(pool),
		sseHub,
		push.NewWebhookTransport(webhook.URL, 0, 0, logger),
		chat,
		logger,
	)
	auditSvc := appAudit.NewService(postgres.NewAuditRepository(pool), logger, mustDecodeHex(t, auditKeyHex))
	bookingSvc := appBooking.NewService(visits, reservations, payments, properties, profiles, dispatcher, auditSvc, clk, time.UTC, logger)
	dispatcher.RegisterHandler(notification.EffectVisitRespond, bookingSvc)
	dispatcher.RegisterHandler(notification.EffectReservationRespond, bookingSvc)
	activitySvc := appActivity.NewService(visits, reservations, payments, profiles, logger)

	apiServer := httpapi.NewServer(bookingSvc, activitySvc, dispatcher, auditSvc, chat, properties, sseHub, logger)
	server := httptest.NewServer(apiServer.Router())

	env := &testEnv{
		server:   server,
		booking:  bookingSvc,
		audit:    auditSvc,
		clock:    clk,
		pushes:   pushes,
		property: uuid.New(),
	}
	status, body := env.call(t, http.MethodPut, "/v1/properties/"+env.property.String(), "", map[string]interface{}{
		"ownerId":      ownerID,
		"status":       "AVAILABLE",
		"maxOccupants": 3,
		"monthlyRent":  1200,
	})
	if status != http.StatusOK {
		t.Fatalf("upsert property: %d %v", status, body)
	}

	cleanup := func() {
		server.Close()
		auditSvc.Flush()
		webhook.Close()
		sseHub.Stop()
		pool.Close()
	}
	return env, cleanup
}

func testDatabaseURL(t *testing.T) string {
	t.Helper()
	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		return dsn
	}
	t.Skip("TEST_DATABASE_URL not set; skipping integration tests")
	return ""
}

func repoRoot(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}

func resetDatabase(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		TRUNCATE TABLE
			audit_logs,
			profile_activity,
			chat_messages,
			notifications,
			payments,
			reservations,
			visits,
			properties
		RESTART IDENTITY CASCADE
	`)
	return err
}

func mustDecodeHex(t *testing.T, value string) []byte {
	t.Helper()
	b, err := hex.DecodeString(value)
	if err != nil {
		t.Fatalf("invalid hex: %v", err)
	}
	return b
}
