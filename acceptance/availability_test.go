package acceptance

import (
	"net/http"
	"testing"
)

type catalogCarrierResp struct {
	ID        string `json:"id"`
	Brand     string `json:"brand"`
	Type      string `json:"type"`
	Instances []struct {
		ID        string `json:"id"`
		Status    string `json:"status"`
		Available bool   `json:"available"`
	} `json:"instances"`
}

func TestCatalogAvailability(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	carrierID := ts.CreateTestCarrier(t, "Ergobaby")
	available := ts.CreateTestInstance(t, carrierID, "available")
	ts.CreateTestInstance(t, carrierID, "maintenance")
	checkedOut := ts.CreateTestInstance(t, carrierID, "available")
	ts.CreateTestMember(t, "member-1", "active")

	req := decode[checkoutResp](t, ts.POST("/instances/"+checkedOut+"/checkout", nil, memberHeaders("member-1")))
	ts.POST("/admin/checkouts/"+req.ID.String()+"/approve", map[string]interface{}{"approvedLengthDays": 7}, adminHeaders())

	w := ts.GET("/carriers", memberHeaders("member-1"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	catalog := decode[[]catalogCarrierResp](t, w)
	if len(catalog) != 1 {
		t.Fatalf("expected 1 carrier, got %d", len(catalog))
	}
	if len(catalog[0].Instances) != 3 {
		t.Fatalf("expected 3 instances, got %d", len(catalog[0].Instances))
	}

	got := map[string]bool{}
	for _, inst := range catalog[0].Instances {
		got[inst.ID] = inst.Available
	}
	if !got[available] {
		t.Errorf("untouched available instance should be available")
	}
	for _, inst := range catalog[0].Instances {
		if inst.Status == "maintenance" && inst.Available {
			t.Errorf("maintenance instance must not be available")
		}
	}
	if got[checkedOut] {
		t.Errorf("instance with approved checkout must not be available")
	}
}

func TestRequestOnMaintenanceInstance_Conflict(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	carrierID := ts.CreateTestCarrier(t, "Ergobaby")
	instanceID := ts.CreateTestInstance(t, carrierID, "maintenance")
	ts.CreateTestMember(t, "member-1", "active")

	w := ts.POST("/instances/"+instanceID+"/checkout", nil, memberHeaders("member-1"))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected status %d, got %d: %s", http.StatusConflict, w.Code, w.Body.String())
	}
	if code := errorCode(t, w); code != "INSTANCE_UNAVAILABLE" {
		t.Errorf("expected INSTANCE_UNAVAILABLE, got %s", code)
	}
}

func TestInstanceStatusEdit_BlockedWhileCheckedOut(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	carrierID := ts.CreateTestCarrier(t, "Ergobaby")
	instanceID := ts.CreateTestInstance(t, carrierID, "available")
	ts.CreateTestMember(t, "member-1", "active")

	req := decode[checkoutResp](t, ts.POST("/instances/"+instanceID+"/checkout", nil, memberHeaders("member-1")))
	ts.POST("/admin/checkouts/"+req.ID.String()+"/approve", map[string]interface{}{"approvedLengthDays": 7}, adminHeaders())

	w := ts.PATCH("/admin/instances/"+instanceID, map[string]string{"status": "retired"}, adminHeaders())
	if w.Code != http.StatusConflict {
		t.Fatalf("expected status %d, got %d: %s", http.StatusConflict, w.Code, w.Body.String())
	}
	if code := errorCode(t, w); code != "INSTANCE_CHECKED_OUT" {
		t.Errorf("expected INSTANCE_CHECKED_OUT, got %s", code)
	}

	// Manually setting checked_out is reserved for the checkout engine.
	w = ts.PATCH("/admin/instances/"+instanceID, map[string]string{"status": "checked_out"}, adminHeaders())
	if w.Code != http.StatusBadRequest {
		t.Errorf("manual checked_out edit should 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestInstanceStatusEdit_AllowedWhenIdle(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	carrierID := ts.CreateTestCarrier(t, "Ergobaby")
	instanceID := ts.CreateTestInstance(t, carrierID, "available")

	w := ts.PATCH("/admin/instances/"+instanceID, map[string]string{"status": "maintenance"}, adminHeaders())
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	if status := ts.InstanceStatus(t, instanceID); status != "maintenance" {
		t.Errorf("expected maintenance, got %s", status)
	}
}
