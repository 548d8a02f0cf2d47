package addrbook_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	ab "github.com/panyam/addrbook"
	"github.com/panyam/addrbook/stores"
)

// newLocalAuth builds a LocalAuth over an fs store with the redirecting
// error handlers the web server uses. handledUser captures the user passed
// to HandleUser on success.
func newLocalAuth(t *testing.T) (*ab.LocalAuth, *ab.User) {
	t.Helper()
	store := stores.NewFSUserStore(t.TempDir())
	handled := &ab.User{}
	local := &ab.LocalAuth{
		ValidateCredentials: ab.NewCredentialsValidator(store),
		CreateUser:          ab.NewCreateUserFunc(store),
		UsernameField:       "loginUsername",
		PasswordField:       "loginPassword",
		EmailField:          "loginEmail",
		OnSignupError:       ab.RedirectingErrorHandler("/register"),
		OnLoginError:        ab.RedirectingErrorHandler("/login"),
		HandleUser: func(authtype, provider string, token *oauth2.Token, user *ab.User, w http.ResponseWriter, r *http.Request) {
			*handled = *user
			http.Redirect(w, r, "/home", http.StatusFound)
		},
	}
	return local, handled
}

func postForm(t *testing.T, handler http.HandlerFunc, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func signup(t *testing.T, local *ab.LocalAuth, username, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	return postForm(t, local.HandleSignup, "/register", url.Values{
		"username": {username},
		"email":    {email},
		"password": {password},
	})
}

func login(t *testing.T, local *ab.LocalAuth, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	return postForm(t, local.HandleLogin, "/login", url.Values{
		"loginUsername": {username},
		"loginPassword": {password},
	})
}

func TestSignupAuthenticatesNewUser(t *testing.T) {
	local, handled := newLocalAuth(t)

	w := signup(t, local, "alice", "alice@example.com", "s3cretpass")

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/home", w.Header().Get("Location"))
	assert.Equal(t, "alice", handled.Username)
	assert.NotEmpty(t, handled.Id)
	assert.NotEqual(t, "s3cretpass", handled.PasswordHash, "password must be stored hashed")
}

func TestSignupDuplicateUsername(t *testing.T) {
	local, _ := newLocalAuth(t)
	signup(t, local, "alice", "alice@example.com", "s3cretpass")

	w := signup(t, local, "alice", "other@example.com", "differentpass")

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/register", w.Header().Get("Location"))
}

func TestSignupRejectsBadInput(t *testing.T) {
	local, _ := newLocalAuth(t)
	cases := []struct {
		name     string
		username string
		email    string
		password string
	}{
		{"short username", "al", "alice@example.com", "s3cretpass"},
		{"bad email", "alice", "not-an-email", "s3cretpass"},
		{"short password", "alice", "alice@example.com", "short"},
		{"empty username", "", "alice@example.com", "s3cretpass"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := signup(t, local, tc.username, tc.email, tc.password)
			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, "/register", w.Header().Get("Location"))
		})
	}
}

func TestLoginSuccess(t *testing.T) {
	local, handled := newLocalAuth(t)
	signup(t, local, "alice", "alice@example.com", "s3cretpass")
	*handled = ab.User{}

	w := login(t, local, "alice", "s3cretpass")

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/home", w.Header().Get("Location"))
	assert.Equal(t, "alice", handled.Username)
}

func TestLoginFailures(t *testing.T) {
	local, handled := newLocalAuth(t)
	signup(t, local, "alice", "alice@example.com", "s3cretpass")

	cases := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "alice", "wrongpass1"},
		{"unknown user", "mallory", "s3cretpass"},
		{"empty password", "alice", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			*handled = ab.User{}
			w := login(t, local, tc.username, tc.password)
			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, "/login", w.Header().Get("Location"), "failures must return to the login form")
			assert.Empty(t, handled.Id, "no user may be authenticated on failure")
		})
	}
}

func TestLoginDefaultErrorIsJSON(t *testing.T) {
	local, _ := newLocalAuth(t)
	local.OnLoginError = nil

	w := login(t, local, "alice", "whatever1")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
}

func TestLoginJSONBody(t *testing.T) {
	local, handled := newLocalAuth(t)
	signup(t, local, "alice", "alice@example.com", "s3cretpass")
	*handled = ab.User{}

	body := `{"loginUsername": "alice", "loginPassword": "s3cretpass"}`
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	local.HandleLogin(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "alice", handled.Username)
}

func TestSignupCreatesEmptyAddressBook(t *testing.T) {
	local, handled := newLocalAuth(t)
	signup(t, local, "alice", "alice@example.com", "s3cretpass")

	assert.Empty(t, handled.AddressBook)
	assert.Equal(t, ab.ProviderLocal, handled.Provider)
}
