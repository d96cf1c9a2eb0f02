package auth

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/dalemusser/authform/config"
	"github.com/dalemusser/authform/internal/app/resources"
	"github.com/dalemusser/authform/internal/app/store/accounts"
	"github.com/dalemusser/authform/middleware"
	"github.com/dalemusser/authform/pantry/csrf"
	"github.com/dalemusser/authform/pantry/forms"
	"github.com/dalemusser/authform/pantry/session"
	"github.com/dalemusser/authform/templates"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var nonceRe = regexp.MustCompile(`name="submit_nonce" value="([^"]+)"`)

type browser struct {
	t      *testing.T
	srv    *httptest.Server
	client *http.Client
}

type response struct {
	status   int
	location string
	body     string
}

func newServer(t *testing.T, limiter *middleware.RateLimiter) (*browser, *accounts.MemoryStore) {
	t.Helper()

	views := templates.New(nil, resources.Funcs())
	require.NoError(t, views.Boot(resources.SharedSet(), TemplateSet()))

	store := session.NewMemoryStore(0)
	cfg := session.DefaultConfig()
	cfg.Secure = false
	mgr := session.NewManager(store, cfg)
	accts := accounts.NewMemoryStore(bcrypt.MinCost)

	h := NewHandler(Deps{Sessions: mgr, Accounts: accts, Views: views})
	r := chi.NewRouter()
	Mount(r, h, &config.CoreConfig{}, limiter)

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		_ = mgr.Close()
		if limiter != nil {
			limiter.Close()
		}
	})

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &browser{t: t, srv: srv, client: client}, accts
}

func (b *browser) do(req *http.Request) response {
	b.t.Helper()
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return response{status: resp.StatusCode, location: resp.Header.Get("Location"), body: string(body)}
}

func (b *browser) get(path string) response {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.srv.URL+path, nil)
	require.NoError(b.t, err)
	return b.do(req)
}

func (b *browser) post(path string, form url.Values, headers map[string]string) response {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodPost, b.srv.URL+path, strings.NewReader(form.Encode()))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return b.do(req)
}

// open loads a form page and returns its CSRF token and submission nonce.
func (b *browser) open(path string) (token, nonce string) {
	b.t.Helper()
	res := b.get(path)
	require.Equal(b.t, http.StatusOK, res.status)
	token = csrf.MetaToken(strings.NewReader(res.body))
	require.NotEmpty(b.t, token)
	m := nonceRe.FindStringSubmatch(res.body)
	require.Len(b.t, m, 2, "no submission nonce on %s", path)
	return token, m[1]
}

// submit opens path and posts fields with the page's token and nonce.
func (b *browser) submit(path string, fields url.Values) response {
	b.t.Helper()
	token, nonce := b.open(path)
	form := url.Values{csrf.FieldName: {token}, forms.NonceField: {nonce}}
	for k, v := range fields {
		form[k] = v
	}
	return b.post(path, form, nil)
}

func registerAccount(t *testing.T, accts *accounts.MemoryStore, email, password string) {
	t.Helper()
	_, err := accts.Register(t.Context(), accounts.NewAccount{
		Name:     "Thandi",
		Email:    email,
		Phone:    "0821234567",
		Password: password,
	})
	require.NoError(t, err)
}

func TestLoginPageRendersGuards(t *testing.T) {
	b, _ := newServer(t, nil)
	res := b.get("/login")

	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, `<meta name="csrf-token" content="`)
	assert.Regexp(t, nonceRe, res.body)
	assert.Contains(t, res.body, `id="email-error"`)
	assert.Contains(t, res.body, `id="password-error"`)
	assert.Contains(t, res.body, `data-toggle-for="password"`)
	assert.NotContains(t, res.body, "toast show")
}

func TestLoginRejectsMissingCSRF(t *testing.T) {
	b, _ := newServer(t, nil)
	_, nonce := b.open("/login")

	res := b.post("/login", url.Values{
		forms.NonceField: {nonce},
		"email":          {"user@example.com"},
		"password":       {"secret123"},
	}, nil)
	assert.Equal(t, http.StatusForbidden, res.status)
}

func TestLoginFieldErrors(t *testing.T) {
	b, _ := newServer(t, nil)
	res := b.submit("/login", url.Values{"email": {"user@example"}, "password": {""}})

	require.Equal(t, http.StatusUnprocessableEntity, res.status)
	assert.Contains(t, res.body, `id="email-error" class="field-error" role="alert">Please enter a valid email address.</div>`)
	assert.Contains(t, res.body, `id="password-error" class="field-error" role="alert">This field is required.</div>`)
	assert.Contains(t, res.body, `class="error"`)
	assert.Contains(t, res.body, `value="user@example"`)
	assert.Regexp(t, nonceRe, res.body, "re-rendered form needs a fresh nonce")
}

func TestLoginBadCredentials(t *testing.T) {
	b, accts := newServer(t, nil)
	registerAccount(t, accts, "user@example.com", "correct-horse")

	res := b.submit("/login", url.Values{"email": {"user@example.com"}, "password": {"wrong-horse"}})
	require.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/login", res.location)

	page := b.get("/login")
	assert.Contains(t, page.body, `class="toast show error"`)
	assert.Contains(t, page.body, "Invalid email or password.")
	assert.Contains(t, page.body, `data-duration="3000"`)

	again := b.get("/login")
	assert.NotContains(t, again.body, "Invalid email or password.", "toast shows once")
}

func TestDuplicateSubmissionIsIgnored(t *testing.T) {
	b, accts := newServer(t, nil)
	registerAccount(t, accts, "user@example.com", "correct-horse")

	token, nonce := b.open("/login")
	form := url.Values{
		csrf.FieldName:   {token},
		forms.NonceField: {nonce},
		"email":          {"user@example.com"},
		"password":       {"wrong-horse"},
	}
	first := b.post("/login", form, nil)
	require.Equal(t, http.StatusSeeOther, first.status)

	second := b.post("/login", form, nil)
	require.Equal(t, http.StatusSeeOther, second.status)
	assert.Equal(t, "/login", second.location)

	page := b.get("/login")
	assert.Contains(t, page.body, "This form was already submitted.")
}

func TestRegisterThenSignInAndOut(t *testing.T) {
	b, accts := newServer(t, nil)

	res := b.submit("/register", url.Values{
		"name":     {"Thandi Nkosi"},
		"email":    {"Thandi@Example.com"},
		"phone":    {"+27 82 123 4567"},
		"password": {"correct-horse"},
		"confirm":  {"correct-horse"},
	})
	require.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/login", res.location)
	assert.Equal(t, 1, accts.Len())

	acct, err := accts.Authenticate(t.Context(), "thandi@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "0821234567", acct.Phone)

	login := b.get("/login")
	assert.Contains(t, login.body, "Account created. Please sign in.")

	res = b.submit("/login", url.Values{"email": {"thandi@example.com"}, "password": {"correct-horse"}})
	require.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/", res.location)

	home := b.get("/")
	assert.Contains(t, home.body, "Hello, Thandi Nkosi")
	assert.Contains(t, home.body, "thandi@example.com")
	assert.Contains(t, home.body, "Welcome back, Thandi Nkosi.")

	token := csrf.MetaToken(strings.NewReader(home.body))
	res = b.post("/logout", url.Values{csrf.FieldName: {token}}, nil)
	require.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/login", res.location)

	home = b.get("/")
	assert.NotContains(t, home.body, "Hello,")
	assert.Contains(t, home.body, "You have been signed out.")
}

func TestLoginHonorsSafeReturn(t *testing.T) {
	tests := []struct {
		name string
		ret  string
		want string
	}{
		{"local path", "/account?tab=profile", "/account?tab=profile"},
		{"absolute url", "https://evil.example/", "/"},
		{"protocol relative", "//evil.example/", "/"},
		{"back to login", "/login", "/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, accts := newServer(t, nil)
			registerAccount(t, accts, "user@example.com", "correct-horse")

			path := "/login?" + url.Values{"return": {tt.ret}}.Encode()
			res := b.submit(path, url.Values{"email": {"user@example.com"}, "password": {"correct-horse"}})
			require.Equal(t, http.StatusSeeOther, res.status)
			assert.Equal(t, tt.want, res.location)
		})
	}
}

func TestRegisterValidation(t *testing.T) {
	b, _ := newServer(t, nil)
	res := b.submit("/register", url.Values{
		"name":     {""},
		"email":    {"nobody"},
		"phone":    {"2782123"},
		"password": {"short"},
		"confirm":  {"other"},
	})

	require.Equal(t, http.StatusUnprocessableEntity, res.status)
	assert.Contains(t, res.body, "Please enter a valid email address.")
	assert.Contains(t, res.body, "Please enter a 10-digit phone number.")
	assert.Contains(t, res.body, "Must be at least 8 characters.")
	assert.Contains(t, res.body, "Passwords do not match.")
	assert.Contains(t, res.body, `id="name-error" class="field-error" role="alert">This field is required.</div>`)
	assert.Contains(t, res.body, `value="082 123"`, "phone is shown formatted")
	assert.NotContains(t, res.body, `value="short"`, "passwords are never echoed")
}

func TestRegisterRejectsPasswordOverBcryptLimit(t *testing.T) {
	b, accts := newServer(t, nil)
	long := strings.Repeat("\u00e9", 40)

	res := b.submit("/register", url.Values{
		"name":     {"Thandi Nkosi"},
		"email":    {"thandi@example.com"},
		"phone":    {"0821234567"},
		"password": {long},
		"confirm":  {long},
	})
	require.Equal(t, http.StatusUnprocessableEntity, res.status)
	assert.Contains(t, res.body, `id="password-error" class="field-error" role="alert">Must be at most 72 bytes.</div>`)
	assert.Equal(t, 0, accts.Len())
}

func TestRegisterDuplicateEmail(t *testing.T) {
	b, accts := newServer(t, nil)
	registerAccount(t, accts, "user@example.com", "correct-horse")

	res := b.submit("/register", url.Values{
		"name":     {"Someone Else"},
		"email":    {"USER@example.com"},
		"phone":    {"0821234567"},
		"password": {"another-pass"},
		"confirm":  {"another-pass"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, res.status)
	assert.Contains(t, res.body, `id="email-error" class="field-error" role="alert">An account with this email already exists.</div>`)
	assert.Equal(t, 1, accts.Len())
}

func TestPhoneFormatSnippet(t *testing.T) {
	b, _ := newServer(t, nil)
	token, _ := b.open("/register")
	hdr := map[string]string{csrf.HeaderName: token, "HX-Request": "true"}

	res := b.post("/auth/phone/format", url.Values{"id": {"phone"}, "phone": {"(082) 123-4567"}}, hdr)
	require.Equal(t, http.StatusOK, res.status)
	assert.True(t, strings.HasPrefix(res.body, `<input id="phone"`))
	assert.Contains(t, res.body, `value="082 123 4567"`)
	assert.Contains(t, res.body, `hx-post="/auth/phone/format"`)
	assert.NotContains(t, res.body, "<html")

	res = b.post("/auth/phone/format", url.Values{"id": {"cell"}, "cell": {"27821234567"}}, hdr)
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, `id="cell"`)
	assert.Contains(t, res.body, `value="082 123 4567"`)

	res = b.post("/auth/phone/format", url.Values{"id": {`x"><script>`}}, hdr)
	assert.Equal(t, http.StatusBadRequest, res.status)

	res = b.post("/auth/phone/format", url.Values{"id": {"phone"}, "phone": {"082"}}, nil)
	assert.Equal(t, http.StatusForbidden, res.status)
}

func TestAPIEndpoints(t *testing.T) {
	b, _ := newServer(t, nil)

	var vis forms.Visibility
	res := b.get("/api/password/toggle?type=password")
	require.Equal(t, http.StatusOK, res.status)
	require.NoError(t, json.Unmarshal([]byte(res.body), &vis))
	assert.Equal(t, forms.TypeText, vis.Type)
	assert.Equal(t, forms.EyeOffIcon, vis.Icon)

	res = b.get("/api/password/toggle?type=bogus")
	require.NoError(t, json.Unmarshal([]byte(res.body), &vis))
	assert.Equal(t, forms.TypeText, vis.Type)

	var em emailResult
	res = b.get("/api/validate/email?" + url.Values{"email": {"user@example.com"}}.Encode())
	require.NoError(t, json.Unmarshal([]byte(res.body), &em))
	assert.Equal(t, emailResult{Email: "user@example.com", Valid: true}, em)

	res = b.get("/api/validate/email?" + url.Values{"email": {"user@@example.com"}}.Encode())
	require.NoError(t, json.Unmarshal([]byte(res.body), &em))
	assert.False(t, em.Valid)

	var ph phoneResult
	res = b.get("/api/format/phone?" + url.Values{"phone": {"27821234567"}}.Encode())
	require.NoError(t, json.Unmarshal([]byte(res.body), &ph))
	assert.Equal(t, phoneResult{Input: "27821234567", Formatted: "082 123 4567", Digits: "0821234567"}, ph)
}

func TestFormPostsAreRateLimited(t *testing.T) {
	b, _ := newServer(t, middleware.NewRateLimiter(middleware.PerMinute(1), 1))

	first := b.submit("/login", url.Values{"email": {"a@b.co"}, "password": {"x"}})
	require.Equal(t, http.StatusSeeOther, first.status)

	second := b.submit("/login", url.Values{"email": {"a@b.co"}, "password": {"x"}})
	require.Equal(t, http.StatusSeeOther, second.status)
	assert.Equal(t, "/login", second.location)

	page := b.get("/login")
	assert.Contains(t, page.body, "Too many attempts.")
}
