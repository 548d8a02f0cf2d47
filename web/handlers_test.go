package web_test

import (
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	ab "github.com/panyam/addrbook"
	"github.com/panyam/addrbook/stores"
	"github.com/panyam/addrbook/web"
)

// stubRenderer records which page was rendered and with what data, so the
// tests can assert on handler output without parsing HTML.
type stubRenderer struct {
	page string
	data any
}

func (s *stubRenderer) Render(w http.ResponseWriter, page string, data any) error {
	s.page = page
	s.data = data
	w.WriteHeader(http.StatusOK)
	_, err := w.Write([]byte(page))
	return err
}

type testApp struct {
	server   *httptest.Server
	client   *http.Client
	renderer *stubRenderer
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	store := stores.NewFSUserStore(t.TempDir())
	logger := zap.NewNop().Sugar()

	auth := ab.NewAuth("testapp", store, scs.New(), logger)
	auth.JWTSecretKey = "test-secret"

	local := &ab.LocalAuth{
		ValidateCredentials: ab.NewCredentialsValidator(store),
		CreateUser:          ab.NewCreateUserFunc(store),
		UsernameField:       "loginUsername",
		PasswordField:       "loginPassword",
		EmailField:          "loginEmail",
		HandleUser:          auth.OnLocalUser,
		OnSignupError:       ab.RedirectingErrorHandler("/register"),
		OnLoginError:        ab.RedirectingErrorHandler("/login"),
		Logger:              logger,
	}

	renderer := &stubRenderer{}
	srv := web.NewServer(auth, local, ab.NewContactService(store, logger), renderer, logger)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testApp{server: ts, client: client, renderer: renderer}
}

func (app *testApp) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := app.client.Get(app.server.URL + path)
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

func (app *testApp) post(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := app.client.Post(app.server.URL+path,
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

func (app *testApp) register(t *testing.T, username, password string) {
	t.Helper()
	resp := app.post(t, "/register", url.Values{
		"username": {username},
		"email":    {username + "@example.com"},
		"password": {password},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/home", resp.Header.Get("Location"))
}

func location(resp *http.Response) string {
	return resp.Header.Get("Location")
}

func TestProtectedRoutesRedirectAnonymous(t *testing.T) {
	app := newTestApp(t)
	paths := []string{
		"/home", "/about", "/contact", "/book", "/search",
		"/groups/Friends", "/new-contact", "/delete-contact/some-id",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			resp := app.get(t, path)
			assert.Equal(t, http.StatusFound, resp.StatusCode)
			assert.Equal(t, "/", location(resp))
		})
	}
}

func TestIndexPage(t *testing.T) {
	app := newTestApp(t)

	resp := app.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "landing", app.renderer.page)

	app.register(t, "alice", "s3cretpass")

	resp = app.get(t, "/")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/home", location(resp), "authenticated clients skip the landing page")
}

func TestRegisterLoginLogoutFlow(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "alice", "s3cretpass")

	resp := app.get(t, "/home")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "home", app.renderer.page)

	resp = app.get(t, "/logout")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", location(resp))

	resp = app.get(t, "/home")
	assert.Equal(t, http.StatusFound, resp.StatusCode, "logout must end the session")

	resp = app.post(t, "/login", url.Values{
		"loginUsername": {"alice"},
		"loginPassword": {"s3cretpass"},
	})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/home", location(resp))

	resp = app.get(t, "/home")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoginFailureReturnsToForm(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "alice", "s3cretpass")
	app.get(t, "/logout")

	resp := app.post(t, "/login", url.Values{
		"loginUsername": {"alice"},
		"loginPassword": {"wrongpass1"},
	})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", location(resp))

	resp = app.get(t, "/home")
	assert.Equal(t, http.StatusFound, resp.StatusCode, "failed login must not authenticate")
}

func TestContactLifecycle(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "alice", "s3cretpass")

	resp := app.post(t, "/new-contact", url.Values{
		"name":            {"Bob Jones"},
		"companyOrSchool": {"Acme"},
		"group":           {"Work"},
		"phone":           {"555-0100"},
		"email":           {"bob@example.com"},
		"address":         {"1 Main St"},
	})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/book", location(resp))

	resp = app.get(t, "/book")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "book", app.renderer.page)
	book := app.renderer.data.(web.BookData)
	assert.Equal(t, "Your Contacts", book.Heading)
	require.Len(t, book.Book, 1)
	assert.Equal(t, "Bob Jones", book.Book[0].Name)
	assert.Equal(t, "Work", book.Book[0].Group)
	require.NotEmpty(t, book.Book[0].Id)

	resp = app.get(t, "/delete-contact/"+book.Book[0].Id)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/book", location(resp))

	app.get(t, "/book")
	assert.Empty(t, app.renderer.data.(web.BookData).Book)
}

func TestSearch(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "alice", "s3cretpass")
	app.post(t, "/new-contact", url.Values{"name": {"Bob Jones"}})
	app.post(t, "/new-contact", url.Values{"name": {"Carol White"}})

	resp := app.post(t, "/search", url.Values{"searchInput": {"bob"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "book", app.renderer.page)
	book := app.renderer.data.(web.BookData)
	assert.Equal(t, "Search Results", book.Heading)
	require.Len(t, book.Book, 1)
	assert.Equal(t, "Bob Jones", book.Book[0].Name)
}

func TestGroupPages(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "alice", "s3cretpass")
	app.post(t, "/new-contact", url.Values{"name": {"Bob Jones"}, "group": {"Work"}})
	app.post(t, "/new-contact", url.Values{"name": {"Carol White"}})

	resp := app.get(t, "/home")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	groups := app.renderer.data.(web.GroupsData)
	assert.Equal(t, []string{"Work", ab.DefaultGroup}, groups.Groups)

	resp = app.get(t, "/groups/Work")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	book := app.renderer.data.(web.BookData)
	assert.Equal(t, "Work", book.Heading)
	require.Len(t, book.Book, 1)
	assert.Equal(t, "Bob Jones", book.Book[0].Name)
}

func TestNewContactRequiresName(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "alice", "s3cretpass")

	resp := app.post(t, "/new-contact", url.Values{"group": {"Work"}})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/new-contact", location(resp), "a rejected contact returns to the form")

	app.get(t, "/book")
	assert.Empty(t, app.renderer.data.(web.BookData).Book)
}

func TestDuplicateRegistration(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "alice", "s3cretpass")
	app.get(t, "/logout")

	resp := app.post(t, "/register", url.Values{
		"username": {"alice"},
		"email":    {"other@example.com"},
		"password": {"differentpass"},
	})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/register", location(resp))
}
