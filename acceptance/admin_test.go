package acceptance

import (
	"net/http"
	"strings"
	"testing"
)

func TestAdminRoutesRejectNonAdmins(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.CreateTestMember(t, "member-1", "active")

	w := ts.GET("/admin/checkouts", memberHeaders("member-1"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d: %s", http.StatusForbidden, w.Code, w.Body.String())
	}
	if code := errorCode(t, w); code != "FORBIDDEN" {
		t.Errorf("expected FORBIDDEN, got %s", code)
	}

	w = ts.POST("/admin/carriers", map[string]string{"brand": "Tula", "type": "wrap"}, memberHeaders("member-1"))
	if w.Code != http.StatusForbidden {
		t.Errorf("expected status %d, got %d", http.StatusForbidden, w.Code)
	}
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	w := ts.GET("/carriers", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d: %s", http.StatusUnauthorized, w.Code, w.Body.String())
	}
}

func TestCarrierCRUD(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	w := ts.POST("/admin/carriers", map[string]interface{}{
		"brand":       "Didymos",
		"type":        "woven_wrap",
		"model":       "Prima",
		"description": "size 6 woven wrap",
	}, adminHeaders())
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}
	created := decode[struct {
		ID    string `json:"id"`
		Brand string `json:"brand"`
		Type  string `json:"type"`
	}](t, w)
	if created.Brand != "Didymos" || created.Type != "woven_wrap" {
		t.Errorf("unexpected create response: %s", w.Body.String())
	}

	w = ts.POST("/admin/carriers", map[string]string{"brand": "Didymos", "type": "hover_board"}, adminHeaders())
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown carrier type should 400, got %d", w.Code)
	}

	w = ts.PATCH("/admin/carriers/"+created.ID, map[string]string{"model": "Prima Aurora"}, adminHeaders())
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	updated := decode[struct {
		Model *string `json:"model"`
	}](t, w)
	if updated.Model == nil || *updated.Model != "Prima Aurora" {
		t.Errorf("patch should update model only: %s", w.Body.String())
	}

	w = ts.do(http.MethodDelete, "/admin/carriers/"+created.ID, nil, adminHeaders())
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d: %s", http.StatusNoContent, w.Code, w.Body.String())
	}

	w = ts.GET("/carriers", memberHeaders("member-1"))
	if !strings.Contains(w.Body.String(), "[]") && strings.Contains(w.Body.String(), created.ID) {
		t.Errorf("deleted carrier should not appear in catalog: %s", w.Body.String())
	}
}

func TestMemberUpsert(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	w := ts.PUT("/admin/members/auth0|abc123", map[string]interface{}{
		"status":      "active",
		"lastPaidAt":  "2026-01-15T00:00:00Z",
		"paymentType": "annual",
	}, adminHeaders())
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	created := decode[struct {
		UserID string `json:"userId"`
		Status string `json:"status"`
	}](t, w)
	if created.UserID != "auth0|abc123" || created.Status != "active" {
		t.Errorf("unexpected upsert response: %s", w.Body.String())
	}

	// Same user again updates in place.
	w = ts.PUT("/admin/members/auth0|abc123", map[string]string{"status": "inactive"}, adminHeaders())
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var n int
	if err := ts.DB.Get(&n, `SELECT count(*) FROM members WHERE user_id = $1`, "auth0|abc123"); err != nil {
		t.Fatalf("failed to count members: %v", err)
	}
	if n != 1 {
		t.Errorf("upsert must not duplicate rows, got %d", n)
	}

	w = ts.PUT("/admin/members/auth0|abc123", map[string]string{"status": "frozen"}, adminHeaders())
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown member status should 400, got %d", w.Code)
	}
}

func TestMyMembership(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.CreateTestMember(t, "member-1", "active")

	w := ts.GET("/me/membership", memberHeaders("member-1"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	resp := decode[struct {
		UserID string `json:"userId"`
		Status string `json:"status"`
	}](t, w)
	if resp.UserID != "member-1" || resp.Status != "active" {
		t.Errorf("unexpected membership response: %s", w.Body.String())
	}

	w = ts.GET("/me/membership", memberHeaders("stranger"))
	if w.Code != http.StatusNotFound {
		t.Errorf("non-member should 404, got %d", w.Code)
	}
}

func TestQRAssignmentAndImage(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	carrierID := ts.CreateTestCarrier(t, "Tula")
	instanceID := ts.CreateTestInstance(t, carrierID, "available")

	w := ts.POST("/admin/instances/"+instanceID+"/qr", nil, adminHeaders())
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	resp := decode[struct {
		QRCodeValue *string `json:"qrCodeValue"`
	}](t, w)
	want := publicBaseURL + "/instances/" + instanceID
	if resp.QRCodeValue == nil || *resp.QRCodeValue != want {
		t.Errorf("expected qrCodeValue %q, got %v", want, resp.QRCodeValue)
	}

	w = ts.GET("/admin/instances/"+instanceID+"/qr.png", adminHeaders())
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("expected image/png, got %s", ct)
	}
	if w.Body.Len() == 0 {
		t.Errorf("expected PNG bytes in response body")
	}
}

func TestReviewFlow(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	carrierID := ts.CreateTestCarrier(t, "Tula")
	instanceID := ts.CreateTestInstance(t, carrierID, "available")
	ts.CreateTestMember(t, "member-1", "active")

	w := ts.POST("/instances/"+instanceID+"/reviews", map[string]interface{}{
		"rating":  5,
		"comment": "so comfortable for long walks",
	}, memberHeaders("member-1"))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}

	w = ts.POST("/instances/"+instanceID+"/reviews", map[string]interface{}{"rating": 9}, memberHeaders("member-1"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("out-of-range rating should 400, got %d", w.Code)
	}
	if code := errorCode(t, w); code != "INVALID_RATING" {
		t.Errorf("expected INVALID_RATING, got %s", code)
	}

	w = ts.POST("/instances/"+instanceID+"/reviews", map[string]interface{}{"rating": 4}, memberHeaders("stranger"))
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("non-member review should 422, got %d", w.Code)
	}

	reviews := decode[[]struct {
		Rating  int     `json:"rating"`
		Comment *string `json:"comment"`
	}](t, ts.GET("/instances/"+instanceID+"/reviews", memberHeaders("member-1")))
	if len(reviews) != 1 || reviews[0].Rating != 5 {
		t.Errorf("expected 1 review with rating 5, got %+v", reviews)
	}
}
