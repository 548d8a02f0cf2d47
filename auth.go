package addrbook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Auth owns the session lifecycle: it establishes a session after a
// successful local or federated authentication, terminates it on logout,
// and exposes the middleware that resolves a request back to a user id.
type Auth struct {
	Session    *scs.SessionManager
	Middleware Middleware

	// Must be passed in
	UserStore UserStore

	Logger *zap.SugaredLogger

	// Optional name that can be used as a prefix for all required vars
	AppName string

	// Name of the session variable where the auth token is stored
	AuthTokenSessionVar string

	// All the domains where the auth token cookies will be set on a login
	// success or logout
	CookieDomains []string

	// JWT related fields
	JwtIssuer    string
	JWTSecretKey string

	// How long is a session cookie valid for.  Defaults to 1 day
	SessionTimeoutInSeconds int

	// Where a successful auth lands and where a logout lands
	PostLoginURL  string
	PostLogoutURL string
}

func NewAuth(appName string, store UserStore, session *scs.SessionManager, logger *zap.SugaredLogger) *Auth {
	out := &Auth{
		AppName:   appName,
		UserStore: store,
		Session:   session,
		Logger:    logger,
	}
	return out.EnsureDefaults()
}

func (a *Auth) EnsureDefaults() *Auth {
	if a.AppName == "" {
		a.AppName = "AddrBook"
	}
	if a.SessionTimeoutInSeconds <= 0 {
		a.SessionTimeoutInSeconds = 86400
	}
	if a.JwtIssuer == "" {
		a.JwtIssuer = fmt.Sprintf("%s-Issuer", a.AppName)
	}
	if a.AuthTokenSessionVar == "" {
		a.AuthTokenSessionVar = fmt.Sprintf("%sAuthToken", a.AppName)
	}
	if a.PostLoginURL == "" {
		a.PostLoginURL = "/home"
	}
	if a.PostLogoutURL == "" {
		a.PostLogoutURL = "/"
	}
	if a.Logger == nil {
		a.Logger = zap.NewNop().Sugar()
	}
	if a.Middleware.AuthTokenCookieName == "" {
		a.Middleware.AuthTokenCookieName = a.AuthTokenSessionVar
	}
	if a.Middleware.VerifyToken == nil {
		a.Middleware.VerifyToken = a.verifyJWT
	}
	if a.Middleware.SessionGetter == nil {
		a.Middleware.SessionGetter = func(r *http.Request, param string) any {
			return a.Session.GetString(r.Context(), param)
		}
	}
	if a.Middleware.Logger == nil {
		a.Middleware.Logger = a.Logger
	}
	a.Middleware.EnsureReasonableDefaults()
	return a
}

// OnLocalUser is the HandleUserFunc wired into LocalAuth: the user is
// already known, so establish the session and go to the dashboard.
func (a *Auth) OnLocalUser(authtype, provider string, token *oauth2.Token, user *User, w http.ResponseWriter, r *http.Request) {
	a.SetLoggedInUser(user, w, r)
	http.Redirect(w, r, a.PostLoginURL, http.StatusFound)
}

// OnFederatedUser is called by the oauth2 callback handlers with the raw
// provider profile after a successful code exchange. It finds or creates the
// matching user, establishes the session and redirects to the dashboard. Any
// failure sends the client back to the anonymous landing page.
func (a *Auth) OnFederatedUser(authtype, provider string, token *oauth2.Token, userInfo map[string]any, w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), StorageTimeout)
	defer cancel()

	user, err := a.EnsureFederatedUser(ctx, provider, userInfo)
	if err != nil {
		a.Logger.Errorw("federated auth failed", "provider", provider, "err", err)
		http.Redirect(w, r, a.PostLogoutURL, http.StatusFound)
		return
	}
	a.SetLoggedInUser(user, w, r)
	http.Redirect(w, r, a.PostLoginURL, http.StatusFound)
}

// EnsureFederatedUser finds or creates the user record for a federated
// identity. The lookup key is (provider, providerId) - never email, which
// the user can change at the provider. Repeated callbacks for the same
// identity are idempotent: lookup always precedes creation.
func (a *Auth) EnsureFederatedUser(ctx context.Context, provider string, userInfo map[string]any) (*User, error) {
	providerId, email := federatedIdentity(provider, userInfo)
	if providerId == "" {
		return nil, fmt.Errorf("%w: profile has no %s id", ErrUpstreamAuth, provider)
	}
	if email == "" {
		return nil, fmt.Errorf("%w: profile has no email", ErrUpstreamAuth)
	}

	user, err := a.UserStore.GetUserByProvider(ctx, provider, providerId)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	user = &User{
		Id:          NewUserId(),
		Username:    federatedUsername(provider, providerId, userInfo),
		Email:       email,
		Provider:    provider,
		ProviderId:  providerId,
		Profile:     userInfo,
		AddressBook: []Contact{},
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	if err := a.UserStore.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateAccount) {
			// Lost a race with a concurrent callback for the same identity
			return a.UserStore.GetUserByProvider(ctx, provider, providerId)
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	a.Logger.Infow("created federated user", "provider", provider, "user", user.Id)
	return user, nil
}

// HandleLogout terminates the session. A cleanup failure is logged as a
// session error; the client is redirected either way.
func (a *Auth) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := a.SetLoggedInUser(nil, w, r); err != nil {
		a.Logger.Errorw("logout failed", "err", fmt.Errorf("%w: %v", ErrSession, err))
		http.Redirect(w, r, a.PostLoginURL, http.StatusFound)
		return
	}
	http.Redirect(w, r, a.PostLogoutURL, http.StatusFound)
}

// SetLoggedInUser sets the session and auth token cookies on all the cookie
// domains we care about. Passing a nil user unsets them (logout).
func (a *Auth) SetLoggedInUser(user *User, w http.ResponseWriter, r *http.Request) error {
	a.EnsureDefaults()
	domains := a.CookieDomains
	if slices.Index(a.CookieDomains, "") < 0 { // default domain
		domains = append(domains, "")
	}
	for _, cookieDomain := range domains {
		http.SetCookie(w, &http.Cookie{
			Name:   "oauthstate",
			Value:  "",
			MaxAge: -1, Expires: time.Now(),
			Domain: cookieDomain,
			Path:   "/",
		})

		if user != nil {
			a.Session.Put(r.Context(), "loggedInUserId", user.Id)

			tokenString, err := a.signJWT(user)
			if err != nil {
				a.Logger.Errorw("error signing token", "err", err)
				continue
			}
			a.Session.Put(r.Context(), a.AuthTokenSessionVar, tokenString)
			http.SetCookie(w, &http.Cookie{
				Name:     a.AuthTokenSessionVar,
				Value:    tokenString,
				Domain:   cookieDomain,
				Path:     "/",
				HttpOnly: true,
				Expires:  time.Now().Add(time.Second * time.Duration(a.SessionTimeoutInSeconds)),
				MaxAge:   a.SessionTimeoutInSeconds,
			})
		} else {
			if err := a.Session.Destroy(r.Context()); err != nil {
				return err
			}
			http.SetCookie(w, &http.Cookie{
				Name:    a.AuthTokenSessionVar,
				Domain:  cookieDomain,
				Path:    "/",
				MaxAge:  -1,
				Expires: time.Now(),
			})
		}
	}
	return nil
}

func (a *Auth) signJWT(user *User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.Id,
		"iss": a.JwtIssuer,
		"exp": time.Now().Add(time.Second * time.Duration(a.SessionTimeoutInSeconds)).Unix(),
		"iat": time.Now().Unix(),
	})
	return token.SignedString([]byte(a.JWTSecretKey))
}

func (a *Auth) verifyJWT(tokenString string) (loggedInUserId string, t any, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte(a.JWTSecretKey), nil
	})
	if err != nil {
		return "", nil, err
	}
	if !token.Valid {
		return "", nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims == nil {
		return "", nil, fmt.Errorf("claims is not a map")
	}
	sub, err := claims.GetSubject()
	if sub == "" {
		return "", nil, fmt.Errorf("subject not found")
	} else if err != nil {
		return "", nil, err
	}
	return sub, token, nil
}

// federatedIdentity pulls the provider-scoped subject id and email out of a
// raw profile blob. Google's userinfo endpoint uses "id"/"sub" (string);
// GitHub's user endpoint uses "id" (number).
func federatedIdentity(provider string, userInfo map[string]any) (providerId, email string) {
	switch v := userInfo["id"].(type) {
	case string:
		providerId = v
	case float64:
		providerId = strconv.FormatInt(int64(v), 10)
	}
	if providerId == "" {
		if sub, ok := userInfo["sub"].(string); ok {
			providerId = sub
		}
	}
	email, _ = userInfo["email"].(string)
	return providerId, email
}

// federatedUsername derives a unique local handle for a new federated user.
// Provider logins are human friendly but not unique across providers, so the
// handle is provider-qualified; display names live in the profile blob.
func federatedUsername(provider, providerId string, userInfo map[string]any) string {
	if login, ok := userInfo["login"].(string); ok && login != "" {
		return provider + ":" + strings.ToLower(login)
	}
	if email, ok := userInfo["email"].(string); ok && email != "" {
		return provider + ":" + strings.ToLower(email)
	}
	return provider + ":" + providerId
}
