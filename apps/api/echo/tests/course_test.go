package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/member"
	"github.com/trezcool/darasa/core/watch"
	testutil "github.com/trezcool/darasa/tests"
)

func Test_tokenApi_decode(t *testing.T) {
	resetDB(t)

	ident := member.Identity{ID: "m1", Username: "juma", Email: "juma@test.cd", Role: member.RoleUser}

	tests := []httpTest{
		{name: "no token is anonymous", path: "/v1/token/decode", wantData: marchallObj(t, member.Identity{})},
		{name: "garbage token is anonymous", path: "/v1/token/decode", token: "lol", wantData: marchallObj(t, member.Identity{})},
		{name: "valid token", path: "/v1/token/decode", token: getToken(t, ident), wantData: marchallObj(t, ident)},
	}
	runTable(t, tests)
}

func Test_courseApi_retrieve(t *testing.T) {
	resetDB(t)

	crs := testutil.CreateCourse(t, courseRepo, "Go Basics", "mwalimu")
	token := getToken(t, member.Identity{ID: "m1", Username: "juma", Role: member.RoleUser})

	tests := []httpTest{
		{name: "Auth required", path: "/v1/courses/" + crs.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Not found", path: "/v1/courses/lol", token: token, wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "course not found"}),
		},
		{name: "Found", path: "/v1/courses/" + crs.ID, token: token, wantData: marchallObj(t, crs)},
	}
	runTable(t, tests)
}

func Test_courseApi_videos(t *testing.T) {
	resetDB(t)

	crs := testutil.CreateCourse(t, courseRepo, "Go Basics", "mwalimu")
	empty := testutil.CreateCourse(t, courseRepo, "Go Advanced", "mwalimu")
	testutil.CreateVideo(t, courseRepo, crs.ID, "ext-1", "Introduction")
	testutil.CreateVideo(t, courseRepo, crs.ID, "ext-2", "Packages")

	// catalog order as served by the repository
	vids, err := courseRepo.QueryVideosByCourse(context.Background(), crs.ID)
	if err != nil {
		t.Fatalf("QueryVideosByCourse() failed: %v", err)
	}

	token := getToken(t, member.Identity{ID: "m1", Username: "juma", Role: member.RoleUser})

	tests := []httpTest{
		{name: "Auth required", path: "/v1/courses/" + crs.ID + "/videos", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "No videos", path: "/v1/courses/" + empty.ID + "/videos", token: token, wantData: marchallObj(t, []course.Video{})},
		{name: "Videos in order", path: "/v1/courses/" + crs.ID + "/videos", token: token, wantData: marchallObj(t, vids)},
	}
	runTable(t, tests)
}

func Test_courseApi_purchaseStatus(t *testing.T) {
	resetDB(t)

	crs := testutil.CreateCourse(t, courseRepo, "Go Basics", "mwalimu")
	testutil.SetPurchase(t, courseRepo, "buyer", crs.ID, true)
	testutil.SetPurchase(t, courseRepo, "refunded", crs.ID, false)

	buyerToken := getToken(t, member.Identity{ID: "buyer", Username: "juma", Role: member.RoleUser})
	refundedToken := getToken(t, member.Identity{ID: "refunded", Username: "asha", Role: member.RoleUser})
	strangerToken := getToken(t, member.Identity{ID: "stranger", Username: "baraka", Role: member.RoleUser})
	adminToken := getToken(t, member.Identity{ID: "boss", Username: "boss", Role: member.RoleAdmin})

	path := "/v1/courses/" + crs.ID + "/purchase"

	tests := []httpTest{
		{name: "Auth required", path: path, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Purchased", path: path, token: buyerToken, wantData: marchallObj(t, map[string]bool{"purchased": true})},
		{name: "Explicit member_id", path: path + "?member_id=buyer", token: buyerToken, wantData: marchallObj(t, map[string]bool{"purchased": true})},
		{name: "Unpurchased record", path: path, token: refundedToken, wantData: marchallObj(t, map[string]bool{"purchased": false})},
		{
			name: "No record is not found", path: path, token: strangerToken, wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "purchase not found"}),
		},
		{
			name: "Cannot query another member", path: path + "?member_id=buyer", token: strangerToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{name: "Admin can query any member", path: path + "?member_id=buyer", token: adminToken, wantData: marchallObj(t, map[string]bool{"purchased": true})},
	}
	runTable(t, tests)
}

func Test_courseApi_authorize(t *testing.T) {
	resetDB(t)

	crs := testutil.CreateCourse(t, courseRepo, "Go Basics", "mwalimu")
	vid := testutil.CreateVideo(t, courseRepo, crs.ID, "ext-1", "Introduction")
	testutil.SetPurchase(t, courseRepo, "buyer", crs.ID, true)
	testutil.SetPurchase(t, courseRepo, "refunded", crs.ID, false)

	path := "/v1/videos/" + vid.ID + "/authorize"

	tests := []httpTest{
		{name: "Auth required", path: path, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Unknown video", path: "/v1/videos/lol/authorize",
			token:    getToken(t, member.Identity{ID: "buyer", Username: "juma", Role: member.RoleUser}),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "video not found"}),
		},
		{
			name:  "Admin always allowed", path: path,
			token:    getToken(t, member.Identity{ID: "boss", Username: "boss", Role: member.RoleAdmin}),
			wantData: marchallObj(t, watch.Allow()),
		},
		{
			name:  "Purchased user allowed", path: path,
			token:    getToken(t, member.Identity{ID: "buyer", Username: "juma", Role: member.RoleUser}),
			wantData: marchallObj(t, watch.Allow()),
		},
		{
			name:  "Unpurchased user denied", path: path,
			token:    getToken(t, member.Identity{ID: "refunded", Username: "asha", Role: member.RoleUser}),
			wantData: marchallObj(t, watch.Deny(watch.DenyPurchaseRequired)),
		},
		{
			name:  "User without purchase record denied", path: path,
			token:    getToken(t, member.Identity{ID: "stranger", Username: "baraka", Role: member.RoleUser}),
			wantData: marchallObj(t, watch.Deny(watch.DenyPurchaseRequired)),
		},
		{
			name:  "Course owner allowed", path: path,
			token:    getToken(t, member.Identity{ID: "t1", Username: "mwalimu", Role: member.RoleInstructor}),
			wantData: marchallObj(t, watch.Allow()),
		},
		{
			name:  "Other instructor denied", path: path,
			token:    getToken(t, member.Identity{ID: "t2", Username: "intruder", Role: member.RoleInstructor}),
			wantData: marchallObj(t, watch.Deny(watch.DenyNotOwner)),
		},
	}
	runTable(t, tests)
}

func Test_courseApi_saveDuration(t *testing.T) {
	resetDB(t)

	crs := testutil.CreateCourse(t, courseRepo, "Go Basics", "mwalimu")
	vid := testutil.CreateVideo(t, courseRepo, crs.ID, "ext-1", "Introduction")
	token := getToken(t, member.Identity{ID: "m1", Username: "juma", Role: member.RoleUser})

	body := func(videoID string, seconds int) []byte {
		return marchallObj(t, course.SaveDuration{VideoID: videoID, TotalDuration: seconds})
	}

	t.Run("first save wins", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/videos/play-time", token, body(vid.ID, 600))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusNoContent, rec.Body.String())
		}

		// a later save with a different value is a no-op
		req, rec = newAuthRequest(http.MethodPost, "/v1/videos/play-time", token, body(vid.ID, 900))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusNoContent, rec.Body.String())
		}

		refreshed, err := courseRepo.GetVideo(context.Background(), vid.ID)
		if err != nil {
			t.Fatalf("GetVideo() failed: %v", err)
		}
		if !refreshed.HasDuration() || refreshed.TotalDuration.Int != 600 {
			t.Errorf("TotalDuration = %v; want 600", refreshed.TotalDuration)
		}
	})

	tests := []httpTest{
		{name: "Auth required", method: http.MethodPost, path: "/v1/videos/play-time", body: body(vid.ID, 600), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Missing duration", method: http.MethodPost, path: "/v1/videos/play-time", token: token,
			body: marchallObj(t, map[string]string{"video_id": vid.ID}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"total_duration": "this field is required"}),
		},
		{
			name: "Unknown video", method: http.MethodPost, path: "/v1/videos/play-time", token: token,
			body: body("lol", 600), wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "video not found"}),
		},
	}
	runTable(t, tests)
}

func Test_courseApi_resolveDuration(t *testing.T) {
	resetDB(t)

	crs := testutil.CreateCourse(t, courseRepo, "Go Basics", "mwalimu")
	vid := testutil.CreateVideo(t, courseRepo, crs.ID, resolvableExternalID, "Introduction")
	unknown := testutil.CreateVideo(t, courseRepo, crs.ID, "nope", "Mystery")
	token := getToken(t, member.Identity{ID: "m1", Username: "juma", Role: member.RoleUser})

	t.Run("resolves and persists", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/videos/"+vid.ID+"/resolve-duration", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, map[string]int{"total_duration": 3723})}, rec)

		refreshed, err := courseRepo.GetVideo(context.Background(), vid.ID)
		if err != nil {
			t.Fatalf("GetVideo() failed: %v", err)
		}
		if !refreshed.HasDuration() || refreshed.TotalDuration.Int != 3723 {
			t.Errorf("TotalDuration = %v; want 3723", refreshed.TotalDuration)
		}
	})

	t.Run("provider miss reports zero", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/videos/"+unknown.ID+"/resolve-duration", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, map[string]int{"total_duration": 0})}, rec)

		refreshed, err := courseRepo.GetVideo(context.Background(), unknown.ID)
		if err != nil {
			t.Fatalf("GetVideo() failed: %v", err)
		}
		if refreshed.HasDuration() {
			t.Errorf("TotalDuration = %v; want unset", refreshed.TotalDuration)
		}
	})
}
