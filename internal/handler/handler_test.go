package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visitordesk/internal/admin"
	"visitordesk/internal/badge"
	"visitordesk/internal/host"
	"visitordesk/internal/photo"
	"visitordesk/internal/queue"
	"visitordesk/internal/visit"
)

// ---------- in-memory stores ----------

type memVisits struct {
	mu      sync.Mutex
	byID    map[string]visit.Visit
	byBadge map[string]string
	hosts   *memHosts
}

func (r *memVisits) Insert(_ context.Context, v visit.Visit) (visit.Visit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byBadge[v.BadgeNumber]; dup {
		return visit.Visit{}, visit.ErrDuplicateBadge
	}
	r.byID[v.ID] = v
	r.byBadge[v.BadgeNumber] = v.ID
	return v, nil
}

func (r *memVisits) GetByID(_ context.Context, id string) (*visit.Visit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.byID[id]; ok {
		return &v, nil
	}
	return nil, nil
}

func (r *memVisits) GetByBadge(ctx context.Context, badgeNumber string) (*visit.WithHost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byBadge[badgeNumber]
	if !ok {
		return nil, nil
	}
	v := visit.WithHost{Visit: r.byID[id]}
	if h, _ := r.hosts.GetByID(ctx, v.HostID); h != nil {
		v.Host = h
	}
	return &v, nil
}

func (r *memVisits) Checkout(_ context.Context, badgeNumber string, at time.Time) (*visit.Visit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byBadge[badgeNumber]
	if !ok {
		return nil, nil
	}
	v := r.byID[id]
	if v.Status != visit.StatusCheckedIn {
		return nil, nil
	}
	v.Status = visit.StatusCheckedOut
	v.CheckOutTime = &at
	r.byID[id] = v
	return &v, nil
}

func (r *memVisits) List(ctx context.Context, f visit.ListFilter) ([]visit.WithHost, error) {
	r.mu.Lock()
	ids := make([]string, 0, len(r.byID))
	for id, v := range r.byID {
		if f.Status != "" && v.Status != f.Status {
			continue
		}
		if f.Day != nil && (v.CheckInTime.Before(*f.Day) || !v.CheckInTime.Before(f.Day.Add(24*time.Hour))) {
			continue
		}
		ids = append(ids, id)
	}
	r.mu.Unlock()

	var res []visit.WithHost
	for _, id := range ids {
		if v, _ := r.GetByID(ctx, id); v != nil {
			wh, _ := r.GetByBadge(ctx, v.BadgeNumber)
			res = append(res, *wh)
		}
	}
	return res, nil
}

func (r *memVisits) CountsForDay(_ context.Context, dayStart time.Time) (int, int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total, in, out int
	for _, v := range r.byID {
		if v.CheckInTime.Before(dayStart) || !v.CheckInTime.Before(dayStart.Add(24*time.Hour)) {
			continue
		}
		total++
		if v.Status == visit.StatusCheckedIn {
			in++
		} else {
			out++
		}
	}
	return total, in, out, nil
}

type memHosts struct {
	mu    sync.Mutex
	hosts map[string]host.Host
	seq   int
}

func (r *memHosts) ListActive(context.Context) ([]host.Host, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []host.Host
	for _, h := range r.hosts {
		if h.Status == host.StatusActive {
			res = append(res, h)
		}
	}
	return res, nil
}

func (r *memHosts) GetByID(_ context.Context, id string) (*host.Host, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.hosts[id]; ok {
		return &h, nil
	}
	return nil, nil
}

func (r *memHosts) Insert(_ context.Context, h host.Host) (host.Host, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	h.ID = fmt.Sprintf("H%d", r.seq)
	r.hosts[h.ID] = h
	return h, nil
}

func (r *memHosts) Update(_ context.Context, id string, h host.Host, photoPath *string) (*host.Host, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.hosts[id]
	if !ok {
		return nil, nil
	}
	cur.Name, cur.Email, cur.Phone, cur.Department = h.Name, h.Email, h.Phone, h.Department
	if photoPath != nil {
		cur.PhotoPath = *photoPath
	}
	r.hosts[id] = cur
	return &cur, nil
}

func (r *memHosts) SetStatus(_ context.Context, id, status string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.hosts[id]
	if !ok {
		return false, nil
	}
	h.Status = status
	r.hosts[id] = h
	return true, nil
}

func (r *memHosts) CountActive(ctx context.Context) (int, error) {
	hosts, _ := r.ListActive(ctx)
	return len(hosts), nil
}

type memAdmins struct {
	mu       sync.Mutex
	accounts map[string]admin.Admin
}

func (r *memAdmins) GetByUsername(_ context.Context, username string) (*admin.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[username]; ok {
		return &a, nil
	}
	return nil, nil
}

func (r *memAdmins) Insert(_ context.Context, a admin.Admin) (admin.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.ID = "A1"
	r.accounts[a.Username] = a
	return a, nil
}

// ---------- fixture ----------

const testPhoto = "data:image/png;base64,aGVsbG8gd29ybGQ="

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hostRepo := &memHosts{hosts: map[string]host.Host{}}
	visitRepo := &memVisits{byID: map[string]visit.Visit{}, byBadge: map[string]string{}, hosts: hostRepo}
	photos := photo.NewFS(t.TempDir())

	hosts := host.NewDirectory(hostRepo, photos)
	visits := visit.NewService(visitRepo, photos, hosts, queue.NewInMemory(16))
	admins := admin.NewService(&memAdmins{accounts: map[string]admin.Admin{}})

	r := gin.New()
	New(visits, hosts, admins, "visitordesk-test", "test-signing-key", time.Hour).Register(r)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var decoded map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &decoded)
	return w, decoded
}

func checkInBody() map[string]any {
	return map[string]any{
		"name":    "Asha",
		"phone":   "555-0101",
		"email":   "asha@example.com",
		"purpose": "Interview",
		"hostId":  "H1",
		"photo":   testPhoto,
		"idProof": testPhoto,
	}
}

func adminToken(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w, resp := doJSON(t, r, http.MethodPost, "/api/admin/login", map[string]string{"username": "boss", "password": "pw"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	token, _ := resp["token"].(string)
	require.NotEmpty(t, token)
	return token
}

// ---------- tests ----------

func TestCheckInEndpoint(t *testing.T) {
	r := newTestRouter(t)

	w, resp := doJSON(t, r, http.MethodPost, "/api/visitors/checkin", checkInBody(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, true, resp["success"])
	visitor := resp["visitor"].(map[string]any)
	assert.Equal(t, "checked-in", visitor["status"])
	assert.Nil(t, visitor["checkOutTime"])
	assert.Contains(t, resp["message"], visitor["badgeNumber"])

	t.Run("missing field", func(t *testing.T) {
		body := checkInBody()
		delete(body, "purpose")
		w, _ := doJSON(t, r, http.MethodPost, "/api/visitors/checkin", body, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("undecodable photo", func(t *testing.T) {
		body := checkInBody()
		body["photo"] = "data:image/png;base64,@@@"
		w, _ := doJSON(t, r, http.MethodPost, "/api/visitors/checkin", body, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCheckOutEndpoint(t *testing.T) {
	r := newTestRouter(t)

	_, resp := doJSON(t, r, http.MethodPost, "/api/visitors/checkin", checkInBody(), nil)
	badgeNumber := resp["visitor"].(map[string]any)["badgeNumber"].(string)

	w, resp := doJSON(t, r, http.MethodPost, "/api/visitors/checkout/"+badgeNumber, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, resp["message"], "Check-out successful!")
	assert.Equal(t, "checked-out", resp["visitor"].(map[string]any)["status"])

	t.Run("double checkout conflicts", func(t *testing.T) {
		w, resp := doJSON(t, r, http.MethodPost, "/api/visitors/checkout/"+badgeNumber, nil, nil)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, resp["error"], "already checked out")
	})

	t.Run("unknown badge", func(t *testing.T) {
		w, _ := doJSON(t, r, http.MethodPost, "/api/visitors/checkout/VIS000000000", nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestCheckOutAcceptsScannedPayload(t *testing.T) {
	r := newTestRouter(t)

	_, resp := doJSON(t, r, http.MethodPost, "/api/visitors/checkin", checkInBody(), nil)
	visitor := resp["visitor"].(map[string]any)

	payload, err := json.Marshal(badge.QRPayload{
		BadgeNumber: visitor["badgeNumber"].(string),
		Name:        "Asha",
		CheckInTime: time.Now().UTC(),
	})
	require.NoError(t, err)

	w, _ := doJSON(t, r, http.MethodPost, "/api/visitors/checkout/"+url.PathEscape(string(payload)), nil, nil)
	assert.Equal(t, http.StatusOK, w.Code, "scanned QR text resolves to the badge number")
}

func TestVisitorQueries(t *testing.T) {
	r := newTestRouter(t)

	_, resp := doJSON(t, r, http.MethodPost, "/api/visitors/checkin", checkInBody(), nil)
	badgeNumber := resp["visitor"].(map[string]any)["badgeNumber"].(string)

	t.Run("list", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/visitors?status=checked-in", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var visits []map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &visits))
		assert.Len(t, visits, 1)
	})

	t.Run("bad date filter", func(t *testing.T) {
		w, _ := doJSON(t, r, http.MethodGet, "/api/visitors?date=02-06-2025", nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("get by badge", func(t *testing.T) {
		w, resp := doJSON(t, r, http.MethodGet, "/api/visitors/badge/"+badgeNumber, nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, badgeNumber, resp["badgeNumber"])

		w, _ = doJSON(t, r, http.MethodGet, "/api/visitors/badge/VIS999999999", nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("stats", func(t *testing.T) {
		w, resp := doJSON(t, r, http.MethodGet, "/api/visitors/stats", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(1), resp["totalToday"])
		assert.Equal(t, float64(1), resp["checkedIn"])
		assert.Equal(t, float64(0), resp["checkedOut"])
	})
}

func TestHostEndpoints(t *testing.T) {
	r := newTestRouter(t)
	token := adminToken(t, r)
	authz := map[string]string{"Authorization": "Bearer " + token}

	hostBody := map[string]any{
		"name": "Priya", "email": "priya@corp.test", "phone": "555-0100", "department": "Engineering",
	}

	t.Run("mutations require an admin token", func(t *testing.T) {
		w, _ := doJSON(t, r, http.MethodPost, "/api/hosts", hostBody, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	w, resp := doJSON(t, r, http.MethodPost, "/api/hosts", hostBody, authz)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	created := resp["host"].(map[string]any)
	id := created["id"].(string)
	assert.Equal(t, "active", created["status"])

	t.Run("update", func(t *testing.T) {
		updated := map[string]any{"name": "Priya Nair", "email": "priya@corp.test", "phone": "555-0100"}
		w, resp := doJSON(t, r, http.MethodPut, "/api/hosts/"+id, updated, authz)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Priya Nair", resp["host"].(map[string]any)["name"])

		w, _ = doJSON(t, r, http.MethodPut, "/api/hosts/missing", updated, authz)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("deactivate hides the host from the listing", func(t *testing.T) {
		w, resp := doJSON(t, r, http.MethodDelete, "/api/hosts/"+id, nil, authz)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Host deactivated", resp["message"])

		lw := httptest.NewRecorder()
		r.ServeHTTP(lw, httptest.NewRequest(http.MethodGet, "/api/hosts", nil))
		var hosts []map[string]any
		require.NoError(t, json.Unmarshal(lw.Body.Bytes(), &hosts))
		assert.Empty(t, hosts)
	})
}

func TestAdminLogin(t *testing.T) {
	r := newTestRouter(t)

	// bootstrap
	w, resp := doJSON(t, r, http.MethodPost, "/api/admin/login", map[string]string{"username": "boss", "password": "pw"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Login successful", resp["message"])

	w, _ = doJSON(t, r, http.MethodPost, "/api/admin/login", map[string]string{"username": "boss", "password": "nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = doJSON(t, r, http.MethodPost, "/api/admin/login", map[string]string{"username": "boss"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeactivatedHostStillResolvesOnVisits(t *testing.T) {
	r := newTestRouter(t)
	token := adminToken(t, r)
	authz := map[string]string{"Authorization": "Bearer " + token}

	_, resp := doJSON(t, r, http.MethodPost, "/api/hosts", map[string]any{
		"name": "Priya", "email": "priya@corp.test", "phone": "555-0100",
	}, authz)
	hostID := resp["host"].(map[string]any)["id"].(string)

	body := checkInBody()
	body["hostId"] = hostID
	_, resp = doJSON(t, r, http.MethodPost, "/api/visitors/checkin", body, nil)
	badgeNumber := resp["visitor"].(map[string]any)["badgeNumber"].(string)

	w, _ := doJSON(t, r, http.MethodDelete, "/api/hosts/"+hostID, nil, authz)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = doJSON(t, r, http.MethodGet, "/api/visitors/badge/"+badgeNumber, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, resp["host"], "prior visit still resolves the deactivated host")
	assert.Equal(t, "Priya", resp["host"].(map[string]any)["name"])
}
