//go:build integration

package integration

import (
	"net/http"
	"testing"
	"time"

	"classflow/pkg/model"
	"classflow/test/integration/testutil"
)

func waitForBookings(t *testing.T, client *testutil.Client, want int) []model.Booking {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp := client.GET(t, "/api/v1/bookings")
		testutil.AssertStatusCode(t, resp, http.StatusOK)
		var got []model.Booking
		resp.DecodeData(t, &got)
		if len(got) == want || time.Now().After(deadline) {
			return got
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func TestCreate_PersistsToGroupDocument(t *testing.T) {
	env := testutil.NewTestEnv()
	mongo, client := env.Setup(t)
	defer env.Cleanup(t, mongo)

	resp := client.POST(t, "/api/v1/bookings", testutil.ValidBooking())
	testutil.AssertStatusCode(t, resp, http.StatusCreated)

	var created model.Booking
	resp.DecodeData(t, &created)
	if created.ID == "" {
		t.Fatal("expected server-assigned id")
	}

	doc := mongo.GroupDocument(t, env.GroupCode)
	if doc == nil || len(doc.Bookings) != 1 || doc.Bookings[0].ID != created.ID {
		t.Fatalf("group document = %+v, want the created booking", doc)
	}
	if doc.LastUpdated == "" {
		t.Error("lastUpdated should be set")
	}
}

func TestCreate_ConflictRejected(t *testing.T) {
	env := testutil.NewTestEnv()
	mongo, client := env.Setup(t)
	defer env.Cleanup(t, mongo)

	testutil.AssertStatusCode(t, client.POST(t, "/api/v1/bookings", testutil.ValidBooking()), http.StatusCreated)

	resp := client.POST(t, "/api/v1/bookings", testutil.BookingAt("yl", "2026-03-02", "10:00", "12:00"))
	testutil.AssertStatusCode(t, resp, http.StatusConflict)
	testutil.AssertContains(t, resp, "此時段已有其他預約")

	// back-to-back and other-campus slots are fine
	testutil.AssertStatusCode(t, client.POST(t, "/api/v1/bookings", testutil.BookingAt("yl", "2026-03-02", "11:00", "12:00")), http.StatusCreated)
	testutil.AssertStatusCode(t, client.POST(t, "/api/v1/bookings", testutil.BookingAt("mk", "2026-03-02", "09:00", "11:00")), http.StatusCreated)
}

func TestRemoteWrite_ReplacesLocalList(t *testing.T) {
	env := testutil.NewTestEnv()
	mongo, client := env.Setup(t)
	defer env.Cleanup(t, mongo)

	testutil.AssertStatusCode(t, client.POST(t, "/api/v1/bookings", testutil.ValidBooking()), http.StatusCreated)

	other := testutil.BookingWithID(1)
	mongo.ReplaceGroup(t, model.NewGroupDocument(env.GroupCode, []model.Booking{other}, time.Now()))

	got := waitForBookings(t, client, 1)
	if len(got) != 1 || got[0].ID != other.ID {
		t.Fatalf("bookings = %+v, want only %s", got, other.ID)
	}
}

func TestClearMonth_RequiresConfirmation(t *testing.T) {
	env := testutil.NewTestEnv()
	mongo, client := env.Setup(t)
	defer env.Cleanup(t, mongo)

	testutil.AssertStatusCode(t, client.POST(t, "/api/v1/bookings", testutil.ValidBooking()), http.StatusCreated)
	testutil.AssertStatusCode(t, client.POST(t, "/api/v1/bookings", testutil.BookingAt("mk", "2026-04-01", "09:00", "10:00")), http.StatusCreated)

	testutil.AssertStatusCode(t, client.DELETE(t, "/api/v1/months/2026-03?token=guess"), http.StatusForbidden)

	resp := client.POST(t, "/api/v1/months/2026-03/clear", nil)
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var req struct {
		Token string `json:"token"`
		Count int    `json:"count"`
	}
	resp.DecodeData(t, &req)
	if req.Count != 1 {
		t.Errorf("count = %d, want 1", req.Count)
	}

	testutil.AssertStatusCode(t, client.DELETE(t, "/api/v1/months/2026-03?token="+req.Token), http.StatusOK)

	got := waitForBookings(t, client, 1)
	if len(got) != 1 || got[0].Date != "2026-04-01" {
		t.Fatalf("bookings = %+v, want only the April booking", got)
	}
}
