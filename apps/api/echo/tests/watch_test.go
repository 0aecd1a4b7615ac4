package tests

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/trezcool/darasa/core/member"
	"github.com/trezcool/darasa/core/study"
	"github.com/trezcool/darasa/core/watch"
	testutil "github.com/trezcool/darasa/tests"
)

func recordPath(memberID, videoID string) string {
	v := make(url.Values)
	if memberID != "" {
		v.Add("member_id", memberID)
	}
	if videoID != "" {
		v.Add("video_id", videoID)
	}
	return "/v1/member-videos?" + v.Encode()
}

func Test_watchApi_state(t *testing.T) {
	resetDB(t)

	rec := testutil.CreateRecord(t, watchRepo, "m1", "vid-1", 120, false)
	token := getToken(t, member.Identity{ID: "m1", Username: "juma", Role: member.RoleUser})
	adminToken := getToken(t, member.Identity{ID: "boss", Username: "boss", Role: member.RoleAdmin})

	tests := []httpTest{
		{name: "Auth required", path: recordPath("", "vid-1"), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "video_id required", path: "/v1/member-videos", token: token, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"video_id": "this field is required"}),
		},
		{
			name: "Absent record", path: recordPath("", "vid-404"), token: token,
			wantData: marchallObj(t, watch.State{}),
		},
		{
			name: "Existing record", path: recordPath("", "vid-1"), token: token,
			wantData: marchallObj(t, watch.State{Exists: true, StudySeconds: rec.StudySeconds, Watched: rec.Watched}),
		},
		{
			name: "Cannot read another member", path: recordPath("m1", "vid-1"),
			token:    getToken(t, member.Identity{ID: "m2", Username: "asha", Role: member.RoleUser}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Admin can read any member", path: recordPath("m1", "vid-1"), token: adminToken,
			wantData: marchallObj(t, watch.State{Exists: true, StudySeconds: rec.StudySeconds, Watched: rec.Watched}),
		},
	}
	runTable(t, tests)
}

func Test_watchApi_create(t *testing.T) {
	resetDB(t)

	token := getToken(t, member.Identity{ID: "m1", Username: "juma", Role: member.RoleUser})
	adminToken := getToken(t, member.Identity{ID: "boss", Username: "boss", Role: member.RoleAdmin})

	t.Run("first view creates a fresh record", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"video_id": "vid-1"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/member-videos", token, body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var created watch.Record
		if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if created.MemberID != "m1" || created.VideoID != "vid-1" {
			t.Errorf("record = (%s, %s); want (m1, vid-1)", created.MemberID, created.VideoID)
		}
		if created.StudySeconds != 0 || created.Watched {
			t.Errorf("fresh record not zeroed: %+v", created)
		}
	})

	tests := []httpTest{
		{
			name: "Duplicate is a conflict", method: http.MethodPost, path: "/v1/member-videos", token: token,
			body: marchallObj(t, map[string]string{"video_id": "vid-1"}), wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: watch.ErrRecordExists.Error()}),
		},
		{
			name: "video_id required", method: http.MethodPost, path: "/v1/member-videos", token: token,
			body: marchallObj(t, map[string]string{}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"video_id": "this field is required"}),
		},
		{
			name: "Cannot create for another member", method: http.MethodPost, path: "/v1/member-videos", token: token,
			body: marchallObj(t, map[string]string{"member_id": "m2", "video_id": "vid-1"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
	}
	runTable(t, tests)

	t.Run("admin can create for any member", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"member_id": "m2", "video_id": "vid-1"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/member-videos", adminToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
	})
}

func Test_watchApi_update(t *testing.T) {
	resetDB(t)

	testutil.CreateRecord(t, watchRepo, "m1", "vid-1", 120, false)
	token := getToken(t, member.Identity{ID: "m1", Username: "juma", Role: member.RoleUser})

	update := func(t *testing.T, videoID string, body interface{}) (*json.Decoder, int) {
		req, rec := newAuthRequest(http.MethodPut, recordPath("", videoID), token, marchallObj(t, body))
		app.ServeHTTP(rec, req)
		return json.NewDecoder(rec.Body), rec.Code
	}

	t.Run("study time accumulates", func(t *testing.T) {
		dec, code := update(t, "vid-1", watch.UpdateRecord{StudySeconds: 60})
		if code != http.StatusOK {
			t.Fatalf("code = %v; want %v", code, http.StatusOK)
		}
		var rec watch.Record
		if err := dec.Decode(&rec); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if rec.StudySeconds != 180 {
			t.Errorf("StudySeconds = %d; want 180", rec.StudySeconds)
		}
		if rec.Watched {
			t.Error("Watched flipped without being requested")
		}
	})

	t.Run("watched transition is one way", func(t *testing.T) {
		dec, code := update(t, "vid-1", watch.UpdateRecord{Watched: true})
		if code != http.StatusOK {
			t.Fatalf("code = %v; want %v", code, http.StatusOK)
		}
		var rec watch.Record
		if err := dec.Decode(&rec); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if !rec.Watched {
			t.Error("Watched = false; want true")
		}

		// watched=false never reverts the flag
		dec, _ = update(t, "vid-1", watch.UpdateRecord{StudySeconds: 10})
		if err := dec.Decode(&rec); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if !rec.Watched {
			t.Error("Watched reverted to false")
		}
	})

	t.Run("absent record is not found", func(t *testing.T) {
		_, code := update(t, "vid-404", watch.UpdateRecord{StudySeconds: 60})
		if code != http.StatusNotFound {
			t.Errorf("code = %v; want %v", code, http.StatusNotFound)
		}
	})

	t.Run("negative study time rejected", func(t *testing.T) {
		_, code := update(t, "vid-1", map[string]int{"study_time": -5})
		if code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v", code, http.StatusBadRequest)
		}
	})
}

func Test_watchApi_watched(t *testing.T) {
	resetDB(t)

	testutil.CreateRecord(t, watchRepo, "m1", "vid-1", 120, true)
	testutil.CreateRecord(t, watchRepo, "m1", "vid-2", 30, false)
	token := getToken(t, member.Identity{ID: "m1", Username: "juma", Role: member.RoleUser})

	path := func(videoID string) string { return "/v1/member-videos/watched?video_id=" + videoID }

	tests := []httpTest{
		{name: "Watched", path: path("vid-1"), token: token, wantData: marchallObj(t, map[string]bool{"watched": true})},
		{name: "Not watched", path: path("vid-2"), token: token, wantData: marchallObj(t, map[string]bool{"watched": false})},
		{
			name: "Absent record", path: path("vid-404"), token: token, wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "watch record not found"}),
		},
	}
	runTable(t, tests)
}

func Test_watchApi_average(t *testing.T) {
	resetDB(t)

	testutil.CreateRecord(t, watchRepo, "m1", "vid-1", 100, false)
	testutil.CreateRecord(t, watchRepo, "m2", "vid-1", 200, true)
	token := getToken(t, member.Identity{ID: "m1", Username: "juma", Role: member.RoleUser})

	tests := []httpTest{
		{
			name: "video_id required", path: "/v1/member-videos/average", token: token, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"video_id": "this field is required"}),
		},
		{
			name: "Average across members", path: "/v1/member-videos/average?video_id=vid-1", token: token,
			wantData: marchallObj(t, map[string]float64{"average": 150}),
		},
		{
			name: "No records averages to zero", path: "/v1/member-videos/average?video_id=vid-404", token: token,
			wantData: marchallObj(t, map[string]float64{"average": 0}),
		},
	}
	runTable(t, tests)
}

func Test_watchApi_studyTables(t *testing.T) {
	resetDB(t)

	token := getToken(t, member.Identity{ID: "m1", Username: "juma", Role: member.RoleUser})

	t.Run("create today's entry", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/study-tables", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}

		var entry study.Entry
		if err := json.Unmarshal(rec.Body.Bytes(), &entry); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if entry.MemberID != "m1" || !entry.Day.Equal(study.Today()) {
			t.Errorf("entry = (%s, %s); want (m1, %s)", entry.MemberID, entry.Day, study.Today())
		}

		// a second create converges on the existing entry
		req, rec = newAuthRequest(http.MethodPost, "/v1/study-tables", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusOK)
		}
	})

	t.Run("update today's entry", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"study_time": 60, "completed": true})
		req, rec := newAuthRequest(http.MethodPut, "/v1/study-tables/today", token, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}

		var entry study.Entry
		if err := json.Unmarshal(rec.Body.Bytes(), &entry); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if entry.StudySeconds != 60 || !entry.Completed {
			t.Errorf("entry = %+v; want study_time 60, completed", entry)
		}
	})

	t.Run("study time without entry creates it lazily", func(t *testing.T) {
		otherToken := getToken(t, member.Identity{ID: "m2", Username: "asha", Role: member.RoleUser})
		body := marchallObj(t, map[string]int{"study_time": 60})
		req, rec := newAuthRequest(http.MethodPut, "/v1/study-tables/today", otherToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}

		var entry study.Entry
		if err := json.Unmarshal(rec.Body.Bytes(), &entry); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if entry.StudySeconds != 60 {
			t.Errorf("StudySeconds = %d; want 60", entry.StudySeconds)
		}
	})

	t.Run("completion without entry is not found", func(t *testing.T) {
		otherToken := getToken(t, member.Identity{ID: "m3", Username: "baraka", Role: member.RoleUser})
		body := marchallObj(t, map[string]interface{}{"completed": true})
		req, rec := newAuthRequest(http.MethodPut, "/v1/study-tables/today", otherToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %v; want %v; body %s", rec.Code, http.StatusNotFound, rec.Body.String())
		}
	})
}
