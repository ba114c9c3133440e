package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/aTrapDeer/portfolio-api/internal/database/dbtest"
	"github.com/aTrapDeer/portfolio-api/internal/handler"
	"github.com/aTrapDeer/portfolio-api/internal/metrics"
	"github.com/aTrapDeer/portfolio-api/internal/revalidate"
)

type testAPI struct {
	t  *testing.T
	db *gorm.DB
	h  http.Handler
}

func newAPI(t *testing.T, configure ...func(*handler.Deps)) *testAPI {
	t.Helper()
	db := dbtest.New(t)
	deps := handler.Deps{
		DB:          db,
		Metrics:     metrics.New(),
		CORSOrigins: []string{"http://localhost:3000"},
	}
	for _, fn := range configure {
		fn(&deps)
	}
	return &testAPI{t: t, db: db, h: handler.NewRouter(deps)}
}

// do sends body (a string is sent verbatim, anything else as JSON) and
// returns the recorded response. headers come in name, value pairs.
func (a *testAPI) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(a.t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type object = map[string]any

// create posts body and returns the created representation.
func (a *testAPI) create(path string, body any) object {
	a.t.Helper()
	rec := a.do(http.MethodPost, path, body)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[object](a.t, rec)
}

func idPath(collection string, rec object) string {
	return fmt.Sprintf("%s/%v/", collection, rec["id"])
}

func parseTime(t *testing.T, v any) time.Time {
	t.Helper()
	s, ok := v.(string)
	require.True(t, ok, "timestamp %v is not a string", v)
	ts, err := time.Parse(time.RFC3339Nano, s)
	require.NoError(t, err)
	return ts
}

func assertSameInstant(t *testing.T, want, got any) {
	t.Helper()
	w, g := parseTime(t, want), parseTime(t, got)
	assert.True(t, w.Equal(g), "%s != %s", w, g)
}

// assertSameRecord compares two wire representations, timestamps by instant.
func assertSameRecord(t *testing.T, want, got object) {
	t.Helper()
	assertSameInstant(t, want["createdAt"], got["createdAt"])
	assertSameInstant(t, want["updatedAt"], got["updatedAt"])
	strip := func(o object) object {
		out := object{}
		for k, v := range o {
			if k != "createdAt" && k != "updatedAt" {
				out[k] = v
			}
		}
		return out
	}
	assert.Equal(t, strip(want), strip(got))
}

var validBodies = map[string]object{
	"/api/projects/": {
		"title": "Portfolio", "description": "This site", "image": "data:image/png;base64,AAAA",
		"technologies": []string{"go", "react"}, "githubUrl": "https://github.com/x/y",
		"liveUrl": nil, "category": "web", "featured": true,
	},
	"/api/education/": {
		"school": "MIT", "degree": "BSc", "field": "CS", "startDate": "Sep 2015",
		"endDate": "Jun 2019", "description": nil,
	},
	"/api/certifications/": {
		"title": "CKA", "issuer": "CNCF", "issueDate": "2023", "skills": []string{"k8s"},
		"credentialUrl": "https://example.com/c/1",
	},
	"/api/messages/": {
		"name": "Grace", "email": "grace@example.com", "subject": "Hi", "message": "Hello there",
	},
	"/api/stats/": {"projects": 12, "clients": 5, "experience": 7},
}

func TestRoot(t *testing.T) {
	api := newAPI(t)
	rec := api.do(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Portfolio API is running"}`, rec.Body.String())
}

func TestHealthz(t *testing.T) {
	api := newAPI(t)
	rec := api.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	sqlDB, err := api.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	rec = api.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	api := newAPI(t)
	api.do(http.MethodGet, "/api/projects/", nil)

	rec := api.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `portfolio_http_requests_total{code="200",method="GET",route="/api/projects`)
}

func TestRoundTrip(t *testing.T) {
	for collection, body := range validBodies {
		t.Run(collection, func(t *testing.T) {
			api := newAPI(t)
			created := api.create(collection, body)

			rec := api.do(http.MethodGet, idPath(collection, created), nil)
			require.Equal(t, http.StatusOK, rec.Code)
			assertSameRecord(t, created, decode[object](t, rec))

			list := api.do(http.MethodGet, collection, nil)
			require.Equal(t, http.StatusOK, list.Code)
			rows := decode[[]object](t, list)
			require.Len(t, rows, 1)
			assertSameRecord(t, created, rows[0])
		})
	}
}

func TestCreateDefaults(t *testing.T) {
	api := newAPI(t)

	project := api.create("/api/projects/", object{"title": "t", "description": "d", "image": "i", "category": "data"})
	assert.Equal(t, false, project["featured"])
	assert.Equal(t, []any{}, project["technologies"])
	assert.Nil(t, project["githubUrl"])

	cert := api.create("/api/certifications/", object{"title": "t", "issuer": "i"})
	assert.Equal(t, []any{}, cert["skills"])

	msg := api.create("/api/messages/", validBodies["/api/messages/"])
	assert.Equal(t, false, msg["read"])

	stats := api.create("/api/stats/", object{})
	assert.Equal(t, 0.0, stats["projects"])
}

func TestReadOnlyFieldsIgnored(t *testing.T) {
	api := newAPI(t)
	body := object{"id": 999, "createdAt": "1999-01-01T00:00:00Z", "school": "s", "degree": "d", "field": "f"}
	created := api.create("/api/education/", body)
	assert.Equal(t, 1.0, created["id"])
	assert.NotEqual(t, "1999-01-01T00:00:00Z", created["createdAt"])
}

func TestCreateValidation(t *testing.T) {
	api := newAPI(t)

	tests := []struct {
		name string
		path string
		body any
		want map[string][]string
	}{
		{
			name: "missing category",
			path: "/api/projects/",
			body: object{"title": "t", "description": "d", "image": "i"},
			want: map[string][]string{"category": {"This field is required."}},
		},
		{
			name: "unknown category",
			path: "/api/projects/",
			body: object{"title": "t", "description": "d", "image": "i", "category": "games"},
			want: map[string][]string{"category": {`"games" is not a valid choice.`}},
		},
		{
			name: "featured not boolean",
			path: "/api/projects/",
			body: object{"title": "t", "description": "d", "image": "i", "category": "web", "featured": "yes"},
			want: map[string][]string{"featured": {"Must be a valid boolean."}},
		},
		{
			name: "stats not integer",
			path: "/api/stats/",
			body: object{"projects": "lots"},
			want: map[string][]string{"projects": {"A valid integer is required."}},
		},
		{
			name: "bad email",
			path: "/api/messages/",
			body: object{"name": "n", "email": "nope", "subject": "s", "message": "m"},
			want: map[string][]string{"email": {"Enter a valid email address."}},
		},
		{
			name: "date too long",
			path: "/api/education/",
			body: object{"school": "s", "degree": "d", "field": "f", "startDate": "012345678901234567890123456789012345678901234567890"},
			want: map[string][]string{"startDate": {"Ensure this field has no more than 50 characters."}},
		},
		{
			name: "malformed json",
			path: "/api/education/",
			body: `{"school":`,
			want: map[string][]string{"non_field_errors": {"Invalid JSON."}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, decode[map[string][]string](t, rec))
		})
	}

	rows := decode[[]object](t, api.do(http.MethodGet, "/api/projects/", nil))
	assert.Empty(t, rows, "rejected bodies are not stored")
}

func TestProjectCategoryFilter(t *testing.T) {
	api := newAPI(t)
	for _, p := range []struct{ title, category string }{
		{"a", "mobile"}, {"b", "web"}, {"c", "mobile"},
	} {
		api.create("/api/projects/", object{"title": p.title, "description": "d", "image": "i", "category": p.category})
	}

	titles := func(path string) []string {
		rec := api.do(http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var out []string
		for _, row := range decode[[]object](t, rec) {
			out = append(out, row["title"].(string))
		}
		return out
	}

	assert.Equal(t, []string{"c", "a"}, titles("/api/projects/?category=mobile"))
	assert.Equal(t, []string{"b"}, titles("/api/projects?category=web"))
	assert.Equal(t, []string{"c", "b", "a"}, titles("/api/projects/?category="))
	assert.Equal(t, []string{"c", "b", "a"}, titles("/api/projects/"))
	assert.Empty(t, titles("/api/projects/?category=Mobile"))
}

func TestPatchMerges(t *testing.T) {
	api := newAPI(t)
	created := api.create("/api/projects/", validBodies["/api/projects/"])
	time.Sleep(10 * time.Millisecond)

	rec := api.do(http.MethodPatch, idPath("/api/projects", created), object{"title": "Renamed", "technologies": []string{"go"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	patched := decode[object](t, rec)

	assert.Equal(t, "Renamed", patched["title"])
	assert.Equal(t, []any{"go"}, patched["technologies"])
	for _, k := range []string{"id", "description", "image", "githubUrl", "category", "featured"} {
		assert.Equal(t, created[k], patched[k], k)
	}
	assertSameInstant(t, created["createdAt"], patched["createdAt"])

	before, after := parseTime(t, created["updatedAt"]), parseTime(t, patched["updatedAt"])
	assert.True(t, after.After(before), "updatedAt %s should be after %s", after, before)

	stored := decode[object](t, api.do(http.MethodGet, idPath("/api/projects", created), nil))
	assertSameRecord(t, patched, stored)
}

func TestPutReplaces(t *testing.T) {
	api := newAPI(t)
	created := api.create("/api/education/", validBodies["/api/education/"])
	path := idPath("/api/education", created)

	rec := api.do(http.MethodPut, path, object{"school": "CMU", "degree": "MSc", "field": "ML"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	replaced := decode[object](t, rec)
	assert.Equal(t, "CMU", replaced["school"])
	assert.Nil(t, replaced["startDate"], "fields missing from a PUT are cleared")
	assert.Equal(t, created["id"], replaced["id"])
	assertSameInstant(t, created["createdAt"], replaced["createdAt"])

	rec = api.do(http.MethodPut, path, object{"school": "CMU"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string][]string{
		"degree": {"This field is required."},
		"field":  {"This field is required."},
	}, decode[map[string][]string](t, rec))
}

func TestNotFound(t *testing.T) {
	api := newAPI(t)
	entities := map[string]string{
		"/api/projects":       "Project",
		"/api/education":      "Education",
		"/api/certifications": "Certification",
		"/api/messages":       "Message",
		"/api/stats":          "Stats",
	}
	for collection, entity := range entities {
		for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete} {
			for _, id := range []string{"42", "abc"} {
				rec := api.do(method, collection+"/"+id+"/", object{})
				assert.Equal(t, http.StatusNotFound, rec.Code, "%s %s/%s", method, collection, id)
				assert.JSONEq(t, fmt.Sprintf(`{"error":"%s not found"}`, entity), rec.Body.String())
			}
		}
	}
}

func TestDelete(t *testing.T) {
	api := newAPI(t)
	created := api.create("/api/messages/", validBodies["/api/messages/"])
	path := idPath("/api/messages", created)

	rec := api.do(http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, path, nil).Code)
}

func TestRouting(t *testing.T) {
	api := newAPI(t)

	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/stats", nil).Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/stats/", nil).Code)

	rec := api.do(http.MethodGet, "/api/unknown/", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)

	rec = api.do(http.MethodDelete, "/api/profile/1/", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)

	rec = api.do(http.MethodDelete, "/api/projects/", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORS(t *testing.T) {
	api := newAPI(t)

	rec := api.do(http.MethodOptions, "/api/projects/", nil,
		"Origin", "http://localhost:3000",
		"Access-Control-Request-Method", http.MethodPatch)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = api.do(http.MethodGet, "/api/projects/", nil, "Origin", "https://evil.example")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestWritesTriggerRevalidation(t *testing.T) {
	hits := make(chan string, 8)
	frontend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		hits <- body["resource"]
	}))
	defer frontend.Close()

	api := newAPI(t, func(d *handler.Deps) {
		d.Notifier = revalidate.New(frontend.URL, "secret", nil)
	})

	api.do(http.MethodGet, "/api/projects/", nil)
	created := api.create("/api/projects/", validBodies["/api/projects/"])
	api.do(http.MethodDelete, idPath("/api/projects", created), nil)

	for i := 0; i < 2; i++ {
		select {
		case resource := <-hits:
			assert.Equal(t, "projects", resource)
		case <-time.After(2 * time.Second):
			t.Fatal("revalidation request never arrived")
		}
	}
	select {
	case resource := <-hits:
		t.Fatalf("unexpected revalidation for %q", resource)
	case <-time.After(100 * time.Millisecond):
	}
}
