package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/account-portal/internal/core/domain"
	"github.com/arklim/account-portal/internal/infra/config"
	"github.com/arklim/account-portal/internal/infra/security"
	"github.com/arklim/account-portal/internal/repository"
	"github.com/arklim/account-portal/internal/transport/http/routes"
	"github.com/arklim/account-portal/internal/usecase"
)

// memoryRepo is an in-memory account store for end-to-end handler tests.
type memoryRepo struct {
	mu       sync.Mutex
	accounts map[string]domain.Account
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{accounts: make(map[string]domain.Account)}
}

func (m *memoryRepo) Create(_ context.Context, account domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if existing.Username == account.Username {
			return repository.ErrDuplicateUsername
		}
		if existing.Email == account.Email {
			return repository.ErrDuplicateEmail
		}
	}
	m.accounts[account.ID] = account
	return nil
}

func (m *memoryRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &account, nil
}

func (m *memoryRepo) GetByUsername(_ context.Context, username string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, account := range m.accounts {
		if account.Username == username {
			copied := account
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryRepo) UsernameTaken(_ context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, account := range m.accounts {
		if account.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryRepo) EmailTaken(_ context.Context, email string, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, account := range m.accounts {
		if id == excludeID {
			continue
		}
		if account.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryRepo) UpdateProfile(_ context.Context, id string, email, firstName, lastName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.Email = email
	account.FirstName = firstName
	account.LastName = lastName
	m.accounts[id] = account
	return nil
}

func (m *memoryRepo) UpdatePassword(_ context.Context, id string, passwordHash string, passwordAlgo string, changedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.PasswordHash = passwordHash
	account.PasswordAlgo = passwordAlgo
	account.LastPasswordChange = changedAt
	m.accounts[id] = account
	return nil
}

func (m *memoryRepo) RecordLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.LastLogin = &at
	m.accounts[id] = account
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.accounts, id)
	return nil
}

// fastHasher avoids Argon2 cost in request-level tests.
type fastHasher struct{}

func (fastHasher) Hash(password string) (string, error)          { return "h:" + password, nil }
func (fastHasher) Verify(password, encoded string) (bool, error) { return encoded == "h:"+password, nil }
func (fastHasher) Algorithm() string                             { return "test" }

func newTestRouter(t *testing.T) (*gin.Engine, *memoryRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := newMemoryRepo()
	log := zap.NewNop()
	policy := security.NewPasswordPolicy()
	hasher := fastHasher{}

	cfg := &config.AppConfig{}
	cfg.App.Env = "test"
	cfg.App.TemplateGlob = "../../../../web/templates/*.tmpl"
	cfg.Session.CookieName = "portal_session"
	cfg.Session.Secret = "test-only-secret"
	cfg.Session.MaxAge = time.Hour

	engine := routes.New(routes.Dependencies{
		Config:       cfg,
		Logger:       log,
		Accounts:     repo,
		Registration: usecase.NewRegistrationService(repo, policy, hasher, log),
		Auth:         usecase.NewAuthService(repo, policy, hasher, log),
		Profile:      usecase.NewProfileService(repo, log),
	})

	return engine, repo
}

// browser carries cookies across requests like a real user agent.
type browser struct {
	t       *testing.T
	engine  *gin.Engine
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T, engine *gin.Engine) *browser {
	return &browser{t: t, engine: engine, cookies: make(map[string]*http.Cookie)}
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(http.MethodGet, path, nil)
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	return b.do(http.MethodPost, path, form)
}

func (b *browser) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()

	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, cookie := range b.cookies {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	b.engine.ServeHTTP(rec, req)

	for _, cookie := range rec.Result().Cookies() {
		if cookie.MaxAge < 0 {
			delete(b.cookies, cookie.Name)
			continue
		}
		b.cookies[cookie.Name] = cookie
	}

	return rec
}

func registerAccount(t *testing.T, b *browser, username, email, password string) {
	t.Helper()
	rec := b.post("/register/", url.Values{
		"username":         {username},
		"email":            {email},
		"first_name":       {"Ana"},
		"last_name":        {"Lopez"},
		"password":         {password},
		"password_confirm": {password},
	})
	if rec.Code != http.StatusFound {
		t.Fatalf("registration expected redirect, got %d: %s", rec.Code, rec.Body.String())
	}
}

func login(t *testing.T, b *browser, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	return b.post("/login/", url.Values{
		"username": {username},
		"password": {password},
	})
}

func TestRegistrationFlow(t *testing.T) {
	engine, repo := newTestRouter(t)
	b := newBrowser(t, engine)

	rec := b.get("/register/")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for registration form, got %d", rec.Code)
	}

	registerAccount(t, b, "ana", "Ana@Example.COM", "Str0ng!pw")

	if len(repo.accounts) != 1 {
		t.Fatalf("expected 1 account, got %d", len(repo.accounts))
	}
	for _, account := range repo.accounts {
		if account.Email != "ana@example.com" {
			t.Fatalf("email not normalized: %q", account.Email)
		}
	}

	// The success flash shows on the login page exactly once.
	rec = b.get("/login/")
	if !strings.Contains(rec.Body.String(), "Your account has been created") {
		t.Fatal("expected success flash on login page")
	}
	rec = b.get("/login/")
	if strings.Contains(rec.Body.String(), "Your account has been created") {
		t.Fatal("flash must not repeat on a second render")
	}
}

func TestRegistrationRejectsDuplicateUsername(t *testing.T) {
	engine, _ := newTestRouter(t)
	b := newBrowser(t, engine)
	registerAccount(t, b, "ana", "ana@example.com", "Str0ng!pw")

	rec := b.post("/register/", url.Values{
		"username":         {"ana"},
		"email":            {"other@example.com"},
		"password":         {"Str0ng!pw"},
		"password_confirm": {"Str0ng!pw"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected re-rendered form, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "already taken") {
		t.Fatal("expected username taken error in response")
	}
	// Submitted values other than the passwords are preserved.
	if !strings.Contains(rec.Body.String(), "other@example.com") {
		t.Fatal("expected submitted email to be echoed back")
	}
}

func TestRegistrationRejectsWeakPassword(t *testing.T) {
	engine, repo := newTestRouter(t)
	b := newBrowser(t, engine)

	rec := b.post("/register/", url.Values{
		"username":         {"ana"},
		"email":            {"ana@example.com"},
		"password":         {"password1"},
		"password_confirm": {"password1"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected re-rendered form, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "too weak") {
		t.Fatalf("expected weak password error, body: %s", rec.Body.String())
	}
	if len(repo.accounts) != 0 {
		t.Fatal("no account may be created for a weak password")
	}
}

func TestLoginAndProfileAccess(t *testing.T) {
	engine, _ := newTestRouter(t)
	b := newBrowser(t, engine)
	registerAccount(t, b, "ana", "ana@example.com", "Str0ng!pw")

	rec := login(t, b, "ana", "Str0ng!pw")
	if rec.Code != http.StatusFound {
		t.Fatalf("expected login redirect, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/profile/" {
		t.Fatalf("expected redirect to /profile/, got %q", loc)
	}

	rec = b.get("/profile/")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on profile, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ana@example.com") {
		t.Fatal("profile page should show the account email")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	engine, _ := newTestRouter(t)
	b := newBrowser(t, engine)
	registerAccount(t, b, "ana", "ana@example.com", "Str0ng!pw")

	for _, password := range []string{"wrong-password", ""} {
		rec := login(t, b, "ana", password)
		if rec.Code == http.StatusFound {
			t.Fatalf("login with password %q must not redirect", password)
		}
	}

	rec := login(t, b, "nobody", "Str0ng!pw")
	if !strings.Contains(rec.Body.String(), "Invalid username or password") {
		t.Fatal("unknown username must produce the generic credential error")
	}
}

func TestAnonymousProfileRedirectsWithNext(t *testing.T) {
	engine, _ := newTestRouter(t)
	b := newBrowser(t, engine)

	rec := b.get("/edit_profile/")
	if rec.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	loc := rec.Header().Get("Location")
	if loc != "/login/?next="+url.QueryEscape("/edit_profile/") {
		t.Fatalf("unexpected redirect target %q", loc)
	}
}

func TestLoginHonorsNextPath(t *testing.T) {
	engine, _ := newTestRouter(t)
	b := newBrowser(t, engine)
	registerAccount(t, b, "ana", "ana@example.com", "Str0ng!pw")

	rec := b.post("/login/", url.Values{
		"username": {"ana"},
		"password": {"Str0ng!pw"},
		"next":     {"/edit_profile/"},
	})
	if loc := rec.Header().Get("Location"); loc != "/edit_profile/" {
		t.Fatalf("expected redirect to next target, got %q", loc)
	}
}

func TestLoginHonorsNextQueryParameter(t *testing.T) {
	engine, _ := newTestRouter(t)
	b := newBrowser(t, engine)
	registerAccount(t, b, "ana", "ana@example.com", "Str0ng!pw")

	rec := b.post("/login/?next=/edit_profile/", url.Values{
		"username": {"ana"},
		"password": {"Str0ng!pw"},
	})
	if loc := rec.Header().Get("Location"); loc != "/edit_profile/" {
		t.Fatalf("expected redirect to query next target, got %q", loc)
	}
}

func TestLoginIgnoresExternalNext(t *testing.T) {
	engine, _ := newTestRouter(t)
	b := newBrowser(t, engine)
	registerAccount(t, b, "ana", "ana@example.com", "Str0ng!pw")

	for _, next := range []string{"https://evil.example", "//evil.example", "relative/path"} {
		b2 := newBrowser(t, engine)
		rec := b2.post("/login/", url.Values{
			"username": {"ana"},
			"password": {"Str0ng!pw"},
			"next":     {next},
		})
		if loc := rec.Header().Get("Location"); loc != "/profile/" {
			t.Fatalf("next=%q must fall back to /profile/, got %q", next, loc)
		}
	}
}

func TestIndexRedirectsAuthenticatedUser(t *testing.T) {
	engine, _ := newTestRouter(t)
	b := newBrowser(t, engine)

	if rec := b.get("/"); rec.Code != http.StatusOK {
		t.Fatalf("anonymous landing page expected 200, got %d", rec.Code)
	}

	registerAccount(t, b, "ana", "ana@example.com", "Str0ng!pw")
	login(t, b, "ana", "Str0ng!pw")

	rec := b.get("/")
	if rec.Code != http.StatusFound {
		t.Fatalf("expected redirect for signed-in user, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/profile/" {
		t.Fatalf("expected redirect to /profile/, got %q", loc)
	}
}

func TestAuthenticatedUserSkipsLoginAndRegister(t *testing.T) {
	engine, _ := newTestRouter(t)
	b := newBrowser(t, engine)
	registerAccount(t, b, "ana", "ana@example.com", "Str0ng!pw")
	login(t, b, "ana", "Str0ng!pw")

	for _, path := range []string{"/login/", "/register/"} {
		rec := b.get(path)
		if rec.Code != http.StatusFound {
			t.Fatalf("expected redirect from %s, got %d", path, rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "/profile/" {
			t.Fatalf("expected redirect to /profile/ from %s, got %q", path, loc)
		}
	}
}

func TestLogoutEndsSession(t *testing.T) {
	engine, _ := newTestRouter(t)
	b := newBrowser(t, engine)
	registerAccount(t, b, "ana", "ana@example.com", "Str0ng!pw")
	login(t, b, "ana", "Str0ng!pw")

	rec := b.get("/logout/")
	if rec.Code != http.StatusFound {
		t.Fatalf("expected logout redirect, got %d", rec.Code)
	}

	rec = b.get("/")
	if !strings.Contains(rec.Body.String(), "You have signed out") {
		t.Fatal("expected sign-out flash on landing page")
	}

	rec = b.get("/profile/")
	if rec.Code != http.StatusFound {
		t.Fatalf("profile must require login after logout, got %d", rec.Code)
	}
}

func TestEditProfile(t *testing.T) {
	engine, repo := newTestRouter(t)
	b := newBrowser(t, engine)
	registerAccount(t, b, "ana", "ana@example.com", "Str0ng!pw")
	login(t, b, "ana", "Str0ng!pw")

	rec := b.post("/edit_profile/", url.Values{
		"email":      {"New@Example.COM"},
		"first_name": {"Anita"},
		"last_name":  {"Lopez"},
	})
	if rec.Code != http.StatusFound {
		t.Fatalf("expected redirect after edit, got %d: %s", rec.Code, rec.Body.String())
	}

	for _, account := range repo.accounts {
		if account.Email != "new@example.com" {
			t.Fatalf("email not updated and normalized: %q", account.Email)
		}
		if account.FirstName != "Anita" {
			t.Fatalf("first name not updated: %q", account.FirstName)
		}
	}

	rec = b.get("/profile/")
	if !strings.Contains(rec.Body.String(), "Your profile has been updated") {
		t.Fatal("expected update flash on profile page")
	}
}

func TestEditProfileRejectsTakenEmail(t *testing.T) {
	engine, _ := newTestRouter(t)
	other := newBrowser(t, engine)
	registerAccount(t, other, "benito", "benito@example.com", "Str0ng!pw")

	b := newBrowser(t, engine)
	registerAccount(t, b, "ana", "ana@example.com", "Str0ng!pw")
	login(t, b, "ana", "Str0ng!pw")

	rec := b.post("/edit_profile/", url.Values{
		"email": {"benito@example.com"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected re-rendered form, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "already registered") {
		t.Fatal("expected email taken error")
	}
}

func TestEditProfileKeepsOwnEmail(t *testing.T) {
	engine, _ := newTestRouter(t)
	b := newBrowser(t, engine)
	registerAccount(t, b, "ana", "ana@example.com", "Str0ng!pw")
	login(t, b, "ana", "Str0ng!pw")

	rec := b.post("/edit_profile/", url.Values{
		"email":      {"ana@example.com"},
		"first_name": {"Ana"},
	})
	if rec.Code != http.StatusFound {
		t.Fatalf("resubmitting own email must succeed, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestChangePasswordKeepsSession(t *testing.T) {
	engine, _ := newTestRouter(t)
	b := newBrowser(t, engine)
	registerAccount(t, b, "ana", "ana@example.com", "Str0ng!pw")
	login(t, b, "ana", "Str0ng!pw")

	rec := b.post("/change_password/", url.Values{
		"current_password":     {"Str0ng!pw"},
		"new_password":         {"N3w!passw0rd"},
		"new_password_confirm": {"N3w!passw0rd"},
	})
	if rec.Code != http.StatusFound {
		t.Fatalf("expected redirect after password change, got %d: %s", rec.Code, rec.Body.String())
	}

	// The session survives the password change.
	rec = b.get("/profile/")
	if rec.Code != http.StatusOK {
		t.Fatalf("session must stay valid after password change, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Your password has been changed") {
		t.Fatal("expected password change flash")
	}

	// Old password no longer works, the new one does.
	b2 := newBrowser(t, engine)
	if rec := login(t, b2, "ana", "Str0ng!pw"); rec.Code == http.StatusFound {
		t.Fatal("old password must be rejected")
	}
	if rec := login(t, b2, "ana", "N3w!passw0rd"); rec.Code != http.StatusFound {
		t.Fatal("new password must be accepted")
	}
}

func TestChangePasswordRejectsWrongCurrent(t *testing.T) {
	engine, _ := newTestRouter(t)
	b := newBrowser(t, engine)
	registerAccount(t, b, "ana", "ana@example.com", "Str0ng!pw")
	login(t, b, "ana", "Str0ng!pw")

	rec := b.post("/change_password/", url.Values{
		"current_password":     {"wrong"},
		"new_password":         {"N3w!passw0rd"},
		"new_password_confirm": {"N3w!passw0rd"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected re-rendered form, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Current password is incorrect") {
		t.Fatal("expected current password error")
	}
}

func TestDeleteAccountInvalidatesSession(t *testing.T) {
	engine, repo := newTestRouter(t)
	b := newBrowser(t, engine)
	registerAccount(t, b, "ana", "ana@example.com", "Str0ng!pw")
	login(t, b, "ana", "Str0ng!pw")

	rec := b.get("/delete_profile/")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "permanently delete") {
		t.Fatalf("expected confirmation page, got %d", rec.Code)
	}

	rec = b.post("/delete_profile/", nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("expected redirect after deletion, got %d", rec.Code)
	}
	if len(repo.accounts) != 0 {
		t.Fatal("account row must be removed")
	}

	rec = b.get("/")
	if !strings.Contains(rec.Body.String(), "Your account has been deleted") {
		t.Fatal("expected deletion flash on landing page")
	}

	rec = b.get("/profile/")
	if rec.Code != http.StatusFound {
		t.Fatalf("deleted account must not access profile, got %d", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	engine, _ := newTestRouter(t)
	b := newBrowser(t, engine)

	rec := b.get("/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from healthz, got %d", rec.Code)
	}

	rec = b.get("/readyz")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from readyz with no checks, got %d", rec.Code)
	}
}
