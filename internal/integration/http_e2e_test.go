//go:build integration || !unit

package integration

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	server "github.com/akshaysorathiya9581/book-your-stay/internal/adapters/http_server"
	redisad "github.com/akshaysorathiya9581/book-your-stay/internal/adapters/redis"
	"github.com/akshaysorathiya9581/book-your-stay/internal/adapters/shr"
	"github.com/akshaysorathiya9581/book-your-stay/internal/app"
	"github.com/akshaysorathiya9581/book-your-stay/internal/domain"
	mysqlrepo "github.com/akshaysorathiya9581/book-your-stay/internal/storage/mysql"
)

func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/sql)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=bys",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/bys?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC", hostPort)

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

// fakeSHR stands in for all three upstream deployments: the identity server
// and both data API families, behind one httptest server.
type fakeSHR struct {
	tokenCalls int64
	dataCalls  int64
}

func (f *fakeSHR) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/connect/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&f.tokenCalls, 1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"e2e-token","token_type":"Bearer","expires_in":3600,"refresh_token":"e2e-refresh","refresh_token_expires_in":604800}`)
	})
	mux.HandleFunc("/ids/hoteldescriptiveinfo", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&f.dataCalls, 1)
		if r.Header.Get("Authorization") != "Bearer e2e-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprint(w, `<?xml version="1.0"?>
<HotelDescriptiveInfoRS>
  <RoomTypes>
    <RoomType RoomTypeCode="DLX" MaxOccupancy="3">
      <RoomDescription><Text>Deluxe Room</Text></RoomDescription>
      <Amenities><Amenity Code="WIFI"/><Amenity>Minibar</Amenity></Amenities>
    </RoomType>
    <RoomType RoomTypeCode="STD">
      <RoomDescription><Text>Standard Room</Text></RoomDescription>
    </RoomType>
  </RoomTypes>
</HotelDescriptiveInfoRS>`)
	})
	mux.HandleFunc("/wsapi/shop/ratecalendar", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&f.dataCalls, 1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"RateCalendar":{"Rates":{"Rate":[
			{"roomTypeCode":"DLX","currency":"ZAR","DailyRates":{"DailyRate":[{"Price":1900},{"Price":1750.50}]}},
			{"roomTypeCode":"STD","currency":"ZAR","price":1200}
		]}}}`)
	})
	return mux
}

func TestHTTP_EndToEnd_Rooms(t *testing.T) {
	db := startMySQL(t)
	mr := miniredis.RunT(t)

	upstream := &fakeSHR{}
	shrSrv := httptest.NewServer(upstream.handler())
	defer shrSrv.Close()

	repo := mysqlrepo.New(db)
	cache := redisad.New(mr.Addr(), "", 0)

	creds := domain.Credentials{ClientID: "e2e-client", ClientSecret: "e2e-secret"}
	tokens := shr.NewTokenManager("uat", shrSrv.URL+"/connect/token", creds, cache, repo)
	client := shr.NewClient(shrSrv.URL, shrSrv.URL, tokens, 100)

	rooms := app.NewRoomService(client, cache, time.Hour, "", 22002)
	links := app.NewDeepLinker("", 22002)

	srv := server.New()
	srv.MountHandlers(&server.Handlers{
		Rooms:      rooms,
		Links:      links,
		Tokens:     tokens,
		AdminToken: "e2e-admin",
	})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	roomsURL := ts.URL + "/v1/rooms?checkin=2025-03-01&checkout=2025-03-04&adults=2"

	// first read goes upstream: token + both data calls
	res, err := http.Get(roomsURL)
	if err != nil {
		t.Fatalf("GET rooms: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
	etag := res.Header.Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}

	var body struct {
		Rooms []domain.Room `json:"rooms"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Rooms) != 2 {
		t.Fatalf("rooms = %d, want 2", len(body.Rooms))
	}
	dlx := body.Rooms[0]
	if dlx.Code != "DLX" || dlx.Name != "Deluxe Room" || dlx.MaxOccupancy != 3 {
		t.Fatalf("unexpected first room: %+v", dlx)
	}
	if dlx.FromPrice == nil || *dlx.FromPrice != 1750.50 {
		t.Fatalf("FromPrice = %v, want daily minimum 1750.50", dlx.FromPrice)
	}
	if upstream.tokenCalls != 1 {
		t.Fatalf("tokenCalls = %d, want 1", upstream.tokenCalls)
	}
	dataAfterFirst := atomic.LoadInt64(&upstream.dataCalls)
	if dataAfterFirst != 2 {
		t.Fatalf("dataCalls = %d, want 2", dataAfterFirst)
	}

	// second read is served from the room cache
	res2, err := http.Get(roomsURL)
	if err != nil {
		t.Fatalf("second GET: %v", err)
	}
	res2.Body.Close()
	if got := atomic.LoadInt64(&upstream.dataCalls); got != dataAfterFirst {
		t.Fatalf("dataCalls = %d after cached read, want %d", got, dataAfterFirst)
	}

	// conditional read short-circuits with 304
	req, _ := http.NewRequest(http.MethodGet, roomsURL, nil)
	req.Header.Set("If-None-Match", etag)
	res3, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("conditional GET: %v", err)
	}
	res3.Body.Close()
	if res3.StatusCode != http.StatusNotModified {
		t.Fatalf("conditional status = %d, want 304", res3.StatusCode)
	}

	// refresh-token state landed in MySQL options
	adminReq, _ := http.NewRequest(http.MethodGet, ts.URL+"/v1/token", nil)
	adminReq.Header.Set("X-Admin-Token", "e2e-admin")
	tokRes, err := http.DefaultClient.Do(adminReq)
	if err != nil {
		t.Fatalf("GET token info: %v", err)
	}
	defer tokRes.Body.Close()
	var info domain.TokenInfo
	if err := json.NewDecoder(tokRes.Body).Decode(&info); err != nil {
		t.Fatalf("decode token info: %v", err)
	}
	if !info.HasAccessToken || !info.HasRefreshToken {
		t.Fatalf("token info = %+v", info)
	}

	// unauthorized admin access is refused
	noAuth, err := http.Get(ts.URL + "/v1/token")
	if err != nil {
		t.Fatalf("GET token info without auth: %v", err)
	}
	noAuth.Body.Close()
	if noAuth.StatusCode != http.StatusForbidden {
		t.Fatalf("unauthenticated token info status = %d, want 403", noAuth.StatusCode)
	}

	// purging the room cache forces the next read upstream
	purge, _ := http.NewRequest(http.MethodDelete, ts.URL+"/v1/rooms/cache", nil)
	purge.Header.Set("X-Admin-Token", "e2e-admin")
	purgeRes, err := http.DefaultClient.Do(purge)
	if err != nil {
		t.Fatalf("DELETE cache: %v", err)
	}
	purgeRes.Body.Close()
	if purgeRes.StatusCode != http.StatusNoContent {
		t.Fatalf("purge status = %d, want 204", purgeRes.StatusCode)
	}
	res4, err := http.Get(roomsURL)
	if err != nil {
		t.Fatalf("GET after purge: %v", err)
	}
	res4.Body.Close()
	if got := atomic.LoadInt64(&upstream.dataCalls); got != dataAfterFirst+2 {
		t.Fatalf("dataCalls = %d after purge, want %d", got, dataAfterFirst+2)
	}

	// deep link comes out in booking-engine date format
	linkRes, err := http.Get(ts.URL + "/v1/booking-link?page=index&checkin=2025-03-01&adults=2")
	if err != nil {
		t.Fatalf("GET booking link: %v", err)
	}
	defer linkRes.Body.Close()
	var link struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(linkRes.Body).Decode(&link); err != nil {
		t.Fatalf("decode link: %v", err)
	}
	for _, want := range []string{"res.windsurfercrs.com/ibe/index.aspx", "propertyID=22002", "checkin=03%2F01%2F2025"} {
		if !strings.Contains(link.URL, want) {
			t.Errorf("link missing %q: %s", want, link.URL)
		}
	}
}
