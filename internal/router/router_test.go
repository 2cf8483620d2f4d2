package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"pixelnest/internal/events"
	"pixelnest/internal/handlers"
	"pixelnest/internal/services"
	"pixelnest/internal/store/storetest"

	"github.com/gin-gonic/gin"
)

type memBlobs struct {
	mu      sync.Mutex
	n       int
	objects map[string]bool
}

func (b *memBlobs) Upload(_ context.Context, file services.ImageFile) (*services.UploadResult, error) {
	if _, err := io.ReadAll(file.Reader); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.n++
	id := fmt.Sprintf("posts/%d-%s", b.n, file.Filename)
	b.objects[id] = true
	return &services.UploadResult{URL: "https://cdn.test/" + id, PublicID: id}, nil
}

func (b *memBlobs) Delete(_ context.Context, publicID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, publicID)
	return nil
}

type failingMailer struct{}

func (failingMailer) Send(services.Email) error { return errors.New("smtp: connection refused") }

type nopPublisher struct{}

func (nopPublisher) PublishPostCreated(context.Context, events.PostCreated) {}
func (nopPublisher) Close() error                                          { return nil }

type denyAfter struct {
	mu    sync.Mutex
	count map[string]int64
}

func (d *denyAfter) Allow(_ context.Context, key string, limit int64, _ time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.count[key]++
	return d.count[key] <= limit, nil
}

type testApp struct {
	engine *gin.Engine
	auth   *services.AuthService
}

func newTestApp(t *testing.T, limiter *denyAfter) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := storetest.NewUsers()
	posts := storetest.NewPosts(users)
	contacts := storetest.NewContacts()

	auth, err := services.NewAuthService(users, "test-secret", 24*time.Hour)
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	postSvc := services.NewPostService(posts, &memBlobs{objects: map[string]bool{}}, nopPublisher{})
	contactSvc := services.NewContactService(contacts, failingMailer{}, "admin@pixelnest.test")

	d := Deps{
		Auth:            handlers.NewAuthHandler(auth, 72*time.Hour, false),
		Posts:           handlers.NewPostHandler(postSvc),
		Contact:         handlers.NewContactHandler(contactSvc),
		Resolver:        auth,
		RateLimit:       2,
		RateLimitWindow: time.Minute,
	}
	if limiter != nil {
		d.Limiter = limiter
	}
	return &testApp{engine: New(d), auth: auth}
}

func (a *testApp) do(t *testing.T, req *http.Request, token string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var body map[string]interface{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", req.Method, req.URL.Path, err, w.Body.String())
		}
	}
	return w, body
}

func (a *testApp) json(t *testing.T, method, path string, payload interface{}, token string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&buf).Encode(payload); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return a.do(t, req, token)
}

func (a *testApp) multipart(t *testing.T, method, path string, fields map[string]string, filename, token string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("imageFile", filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte("\x89PNG fake image"))
	}
	mw.Close()

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return a.do(t, req, token)
}

// register signs a user up and logs in, returning the session token.
func (a *testApp) register(t *testing.T, name, email, password string) string {
	t.Helper()
	w, body := a.json(t, http.MethodPost, "/api/v1/auth/signup",
		map[string]string{"name": name, "email": email, "password": password}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("signup %s: %d %v", email, w.Code, body)
	}
	w, body = a.json(t, http.MethodPost, "/api/v1/auth/login",
		map[string]string{"email": email, "password": password}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: %d %v", email, w.Code, body)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("login %s: no token in body", email)
	}
	return token
}

func (a *testApp) createPost(t *testing.T, token, title string) uint {
	t.Helper()
	w, body := a.multipart(t, http.MethodPost, "/api/v1/posts/createPost",
		map[string]string{"title": title, "description": "D"}, "a.png", token)
	if w.Code != http.StatusCreated {
		t.Fatalf("create post: %d %v", w.Code, body)
	}
	post := body["post"].(map[string]interface{})
	return uint(post["id"].(float64))
}

func TestLikeToggleScenario(t *testing.T) {
	app := newTestApp(t, nil)
	alice := app.register(t, "alice", "alice@x.com", "secret1")

	w, body := app.multipart(t, http.MethodPost, "/api/v1/posts/createPost",
		map[string]string{"title": "T", "description": "D"}, "a.png", alice)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %v", w.Code, body)
	}
	post := body["post"].(map[string]interface{})
	if post["imageUrl"] == "" || post["imageUrl"] == nil {
		t.Fatalf("expected imageUrl, got %v", post)
	}
	if _, leaked := post["password"]; leaked {
		t.Error("post must not expose owner internals")
	}
	id := uint(post["id"].(float64))

	bob := app.register(t, "bob", "bob@x.com", "secret2")
	path := fmt.Sprintf("/api/v1/posts/likeToggle/%d", id)

	w, body = app.json(t, http.MethodPut, path, nil, bob)
	if w.Code != http.StatusOK || body["liked"] != true {
		t.Fatalf("first toggle: %d %v", w.Code, body)
	}
	w, body = app.json(t, http.MethodPut, path, nil, bob)
	if w.Code != http.StatusOK || body["liked"] != false {
		t.Fatalf("second toggle: %d %v", w.Code, body)
	}
}

func TestLoginCookieAndProfile(t *testing.T) {
	app := newTestApp(t, nil)
	app.json(t, http.MethodPost, "/api/v1/auth/signup",
		map[string]string{"name": "alice", "email": "alice@x.com", "password": "secret1"}, "")

	w, body := app.json(t, http.MethodPost, "/api/v1/auth/login",
		map[string]string{"email": "Alice@X.com", "password": "secret1"}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login: %d %v", w.Code, body)
	}

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "token" {
			cookie = c
		}
	}
	if cookie == nil || !cookie.HttpOnly || cookie.Value != body["token"] {
		t.Fatalf("expected HTTP-only token cookie matching the body, got %+v", cookie)
	}
	if cookie.MaxAge != int((72 * time.Hour).Seconds()) {
		t.Errorf("expected 3 day cookie, got MaxAge=%d", cookie.MaxAge)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/profile", nil)
	req.AddCookie(cookie)
	w, body = app.do(t, req, "")
	if w.Code != http.StatusOK {
		t.Fatalf("profile: %d %v", w.Code, body)
	}
	user := body["user"].(map[string]interface{})
	if user["email"] != "alice@x.com" {
		t.Errorf("unexpected profile %v", user)
	}
	if _, ok := user["password"]; ok {
		t.Error("password hash must never be serialized")
	}
}

func TestLogoutDoesNotRevokeToken(t *testing.T) {
	app := newTestApp(t, nil)
	token := app.register(t, "alice", "alice@x.com", "secret1")

	w, _ := app.json(t, http.MethodGet, "/api/v1/auth/logout", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("logout: %d", w.Code)
	}
	cleared := false
	for _, c := range w.Result().Cookies() {
		if c.Name == "token" && c.Value == "" && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("expected logout to expire the token cookie")
	}

	// A token captured before logout keeps working until it expires.
	w, _ = app.json(t, http.MethodGet, "/api/v1/auth/profile", nil, token)
	if w.Code != http.StatusOK {
		t.Errorf("expected captured token to remain valid, got %d", w.Code)
	}
}

func TestAuthFailures(t *testing.T) {
	app := newTestApp(t, nil)
	app.register(t, "alice", "alice@x.com", "secret1")

	w, _ := app.json(t, http.MethodPost, "/api/v1/auth/signup",
		map[string]string{"name": "alice2", "email": "ALICE@x.com", "password": "secret1"}, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("duplicate email: expected 400, got %d", w.Code)
	}

	w, _ = app.json(t, http.MethodPost, "/api/v1/auth/login",
		map[string]string{"email": "nobody@x.com", "password": "secret1"}, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown email: expected 400, got %d", w.Code)
	}

	w, _ = app.json(t, http.MethodPost, "/api/v1/auth/login",
		map[string]string{"email": "alice@x.com", "password": "wrong"}, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("wrong password: expected 400, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w, _ = app.do(t, req, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed body: expected 400, got %d", w.Code)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	app := newTestApp(t, nil)

	for _, r := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/auth/profile"},
		{http.MethodGet, "/api/v1/posts/myPosts"},
		{http.MethodPost, "/api/v1/posts/createPost"},
		{http.MethodGet, "/api/v1/posts/getPost/1"},
		{http.MethodPut, "/api/v1/posts/likeToggle/1"},
		{http.MethodGet, "/api/v1/posts/getUser/1"},
		{http.MethodPost, "/api/v1/posts/comment/1"},
		{http.MethodDelete, "/api/v1/posts/deletePost/1"},
	} {
		w, body := app.json(t, r.method, r.path, nil, "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", r.method, r.path, w.Code)
		}
		if body["success"] != false {
			t.Errorf("%s %s: expected error envelope, got %v", r.method, r.path, body)
		}
	}

	w, _ := app.json(t, http.MethodGet, "/api/v1/posts/myPosts", nil, "garbage")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("invalid token: expected 401, got %d", w.Code)
	}
}

func TestCreatePostValidation(t *testing.T) {
	app := newTestApp(t, nil)
	alice := app.register(t, "alice", "alice@x.com", "secret1")

	tests := []struct {
		name     string
		title    string
		filename string
		status   int
	}{
		{"gif rejected", "T", "photo.GIF", http.StatusBadRequest},
		{"upper-case png accepted", "T", "photo.PNG", http.StatusCreated},
		{"100 char title", strings.Repeat("t", 100), "a.jpg", http.StatusCreated},
		{"101 char title", strings.Repeat("t", 101), "a.jpg", http.StatusBadRequest},
		{"missing image", "T", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := app.multipart(t, http.MethodPost, "/api/v1/posts/createPost",
				map[string]string{"title": tt.title, "description": "D"}, tt.filename, alice)
			if w.Code != tt.status {
				t.Errorf("expected %d, got %d: %v", tt.status, w.Code, body)
			}
		})
	}
}

func TestPostOwnershipOverHTTP(t *testing.T) {
	app := newTestApp(t, nil)
	alice := app.register(t, "alice", "alice@x.com", "secret1")
	bob := app.register(t, "bob", "bob@x.com", "secret2")
	id := app.createPost(t, alice, "T")

	w, _ := app.multipart(t, http.MethodPut, fmt.Sprintf("/api/v1/posts/editPost/%d", id),
		map[string]string{"title": "mine now"}, "", bob)
	if w.Code != http.StatusForbidden {
		t.Errorf("edit by non-owner: expected 403, got %d", w.Code)
	}
	w, _ = app.json(t, http.MethodDelete, fmt.Sprintf("/api/v1/posts/deletePost/%d", id), nil, bob)
	if w.Code != http.StatusForbidden {
		t.Errorf("delete by non-owner: expected 403, got %d", w.Code)
	}

	w, body := app.multipart(t, http.MethodPut, fmt.Sprintf("/api/v1/posts/editPost/%d", id),
		map[string]string{"title": "Renamed"}, "b.webp", alice)
	if w.Code != http.StatusOK {
		t.Fatalf("edit by owner: %d %v", w.Code, body)
	}
	if post := body["post"].(map[string]interface{}); post["title"] != "Renamed" || post["description"] != "D" {
		t.Errorf("unexpected edited post %v", post)
	}

	w, body = app.json(t, http.MethodGet, fmt.Sprintf("/api/v1/posts/getPost/%d", id), nil, bob)
	if w.Code != http.StatusOK || body["isOwner"] != false {
		t.Errorf("get as bob: %d %v", w.Code, body)
	}
	w, body = app.json(t, http.MethodGet, fmt.Sprintf("/api/v1/posts/getPost/%d", id), nil, alice)
	if w.Code != http.StatusOK || body["isOwner"] != true {
		t.Errorf("get as alice: %d %v", w.Code, body)
	}

	app.json(t, http.MethodPost, fmt.Sprintf("/api/v1/posts/comment/%d", id), map[string]string{"comment": "hi"}, bob)

	w, _ = app.json(t, http.MethodDelete, fmt.Sprintf("/api/v1/posts/deletePost/%d", id), nil, alice)
	if w.Code != http.StatusOK {
		t.Fatalf("delete by owner: %d", w.Code)
	}
	w, _ = app.json(t, http.MethodGet, fmt.Sprintf("/api/v1/posts/getUserComments/%d", id), nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("comments of deleted post: expected 404, got %d", w.Code)
	}
	w, _ = app.json(t, http.MethodGet, "/api/v1/posts/getPost/abc", nil, alice)
	if w.Code != http.StatusNotFound {
		t.Errorf("malformed id: expected 404, got %d", w.Code)
	}
}

func TestCommentsOverHTTP(t *testing.T) {
	app := newTestApp(t, nil)
	alice := app.register(t, "alice", "alice@x.com", "secret1")
	bob := app.register(t, "bob", "bob@x.com", "secret2")
	id := app.createPost(t, alice, "T")

	w, body := app.json(t, http.MethodPost, fmt.Sprintf("/api/v1/posts/comment/%d", id), map[string]string{"comment": "  lovely  "}, bob)
	if w.Code != http.StatusCreated {
		t.Fatalf("add comment: %d %v", w.Code, body)
	}
	comment := body["comment"].(map[string]interface{})
	if comment["text"] != "lovely" || comment["status"] != "" {
		t.Errorf("unexpected comment %v", comment)
	}
	commentID := uint(comment["id"].(float64))

	w, _ = app.json(t, http.MethodPost, fmt.Sprintf("/api/v1/posts/comment/%d", id), map[string]string{"comment": "   "}, bob)
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank comment: expected 400, got %d", w.Code)
	}

	editPath := fmt.Sprintf("/api/v1/posts/comment/%d/edit/%d", id, commentID)
	w, _ = app.json(t, http.MethodPut, editPath, map[string]string{"comment": "mine"}, alice)
	if w.Code != http.StatusForbidden {
		t.Errorf("edit by post owner: expected 403, got %d", w.Code)
	}
	w, body = app.json(t, http.MethodPut, editPath, map[string]string{"comment": "lovely!"}, bob)
	if w.Code != http.StatusOK {
		t.Fatalf("edit by author: %d %v", w.Code, body)
	}

	w, body = app.json(t, http.MethodPost, fmt.Sprintf("/api/v1/posts/comment/%d", id), map[string]string{"text": "also nice"}, alice)
	if w.Code != http.StatusCreated {
		t.Fatalf("add comment via text field: %d %v", w.Code, body)
	}

	// Listing comments needs no session.
	w, body = app.json(t, http.MethodGet, fmt.Sprintf("/api/v1/posts/getUserComments/%d", id), nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list comments: %d %v", w.Code, body)
	}
	comments := body["comments"].([]interface{})
	if len(comments) != 2 {
		t.Fatalf("expected two comments, got %v", comments)
	}
	first := comments[0].(map[string]interface{})
	if first["status"] != "edited" || first["text"] != "lovely!" {
		t.Errorf("unexpected listed comment %v", first)
	}
	if author := first["user"].(map[string]interface{}); author["email"] != "bob@x.com" {
		t.Errorf("expected author populated, got %v", author)
	}
	if second := comments[1].(map[string]interface{}); second["text"] != "also nice" {
		t.Errorf("unexpected second comment %v", second)
	}

	w, _ = app.json(t, http.MethodDelete, fmt.Sprintf("/api/v1/posts/comment/%d/delete/%d", id, commentID), nil, alice)
	if w.Code != http.StatusForbidden {
		t.Errorf("delete by post owner: expected 403, got %d", w.Code)
	}
	w, _ = app.json(t, http.MethodDelete, fmt.Sprintf("/api/v1/posts/comment/%d/delete/%d", id, commentID), nil, bob)
	if w.Code != http.StatusOK {
		t.Errorf("delete by author: expected 200, got %d", w.Code)
	}
}

func TestListingsNewestFirst(t *testing.T) {
	app := newTestApp(t, nil)
	alice := app.register(t, "alice", "alice@x.com", "secret1")
	bob := app.register(t, "bob", "bob@x.com", "secret2")
	first := app.createPost(t, alice, "first")
	second := app.createPost(t, bob, "second")
	third := app.createPost(t, alice, "third")

	w, body := app.json(t, http.MethodGet, "/api/v1/posts/allPosts", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("allPosts: %d", w.Code)
	}
	got := postIDs(body)
	if len(got) != 3 || got[0] != third || got[1] != second || got[2] != first {
		t.Errorf("allPosts order %v", got)
	}

	w, body = app.json(t, http.MethodGet, "/api/v1/posts/myPosts", nil, alice)
	if w.Code != http.StatusOK {
		t.Fatalf("myPosts: %d", w.Code)
	}
	got = postIDs(body)
	if len(got) != 2 || got[0] != third || got[1] != first {
		t.Errorf("myPosts order %v", got)
	}
	creator := body["posts"].([]interface{})[0].(map[string]interface{})["createdBy"].(map[string]interface{})
	if creator["name"] != "alice" {
		t.Errorf("expected creator populated, got %v", creator)
	}
}

func postIDs(body map[string]interface{}) []uint {
	var out []uint
	for _, p := range body["posts"].([]interface{}) {
		out = append(out, uint(p.(map[string]interface{})["id"].(float64)))
	}
	return out
}

func TestLikersOverHTTP(t *testing.T) {
	app := newTestApp(t, nil)
	alice := app.register(t, "alice", "alice@x.com", "secret1")
	bob := app.register(t, "bob", "bob@x.com", "secret2")
	id := app.createPost(t, alice, "T")

	app.json(t, http.MethodPut, fmt.Sprintf("/api/v1/posts/likeToggle/%d", id), nil, bob)

	w, body := app.json(t, http.MethodGet, fmt.Sprintf("/api/v1/posts/getUser/%d", id), nil, alice)
	if w.Code != http.StatusOK {
		t.Fatalf("getUser: %d %v", w.Code, body)
	}
	users := body["users"].([]interface{})
	if len(users) != 1 {
		t.Fatalf("expected one liker, got %v", users)
	}
	if liker := users[0].(map[string]interface{}); liker["name"] != "bob" || liker["email"] != "bob@x.com" {
		t.Errorf("unexpected liker %v", liker)
	}

	w, _ = app.json(t, http.MethodPut, "/api/v1/posts/likeToggle/999", nil, bob)
	if w.Code != http.StatusNotFound {
		t.Errorf("like missing post: expected 404, got %d", w.Code)
	}
}

func TestContactEndpoint(t *testing.T) {
	app := newTestApp(t, nil)

	valid := map[string]interface{}{
		"name":     "Carol",
		"email":    "carol@example.com",
		"subject":  "Hello",
		"message":  "Lovely gallery, thank you!",
		"sendCopy": true,
	}
	// The mailer always fails; the submission must still succeed.
	w, body := app.json(t, http.MethodPost, "/api/v1/contact", valid, "")
	if w.Code != http.StatusOK || body["success"] != true || body["id"] == nil {
		t.Fatalf("contact: %d %v", w.Code, body)
	}

	invalid := map[string]interface{}{"name": "C", "email": "carol@example.com", "subject": "Hi", "message": "Lovely gallery!"}
	w, _ = app.json(t, http.MethodPost, "/api/v1/contact", invalid, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid contact: expected 400, got %d", w.Code)
	}
}

func TestContactRateLimited(t *testing.T) {
	app := newTestApp(t, &denyAfter{count: map[string]int64{}})
	payload := map[string]string{"name": "C", "email": "bad", "subject": "", "message": ""}

	for i := 0; i < 2; i++ {
		if w, _ := app.json(t, http.MethodPost, "/api/v1/contact", payload, ""); w.Code != http.StatusBadRequest {
			t.Fatalf("request %d: expected 400, got %d", i+1, w.Code)
		}
	}
	w, body := app.json(t, http.MethodPost, "/api/v1/contact", payload, "")
	if w.Code != http.StatusTooManyRequests || body["success"] != false {
		t.Errorf("expected 429 envelope, got %d %v", w.Code, body)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t, nil)

	w, body := app.json(t, http.MethodGet, "/healthz", nil, "")
	if w.Code != http.StatusOK || body["success"] != true {
		t.Errorf("healthz: %d %v", w.Code, body)
	}

	app.json(t, http.MethodGet, "/api/v1/posts/allPosts", nil, "")
	w, _ = app.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil), "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "pixelnest_http_requests_total") {
		t.Errorf("metrics: %d", w.Code)
	}
}
