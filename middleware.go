package addrbook

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

type userParamNameKey string

// Middleware resolves the requesting client to a logged in user id, checking
// the session first and falling back to a signed auth token presented as a
// header or cookie. Resolution fails open: anything absent or malformed
// yields the anonymous state, never an error.
type Middleware struct {
	AuthTokenHeaderName string
	AuthTokenCookieName string
	UserParamName       string

	// Where EnsureUser sends anonymous clients. If CallbackURLParam is also
	// set, the original path is carried along as that query parameter.
	RedirectURL      string
	CallbackURLParam string

	SessionGetter func(r *http.Request, param string) any
	VerifyToken   func(tokenString string) (loggedInUserId string, token any, err error)

	Logger *zap.SugaredLogger
}

// EnsureReasonableDefaults ensures the config values have reasonable defaults.
func (a *Middleware) EnsureReasonableDefaults() {
	if a.UserParamName == "" {
		a.UserParamName = "loggedInUserId"
	}
	if a.AuthTokenHeaderName == "" {
		a.AuthTokenHeaderName = "Authorization"
	}
	if a.RedirectURL == "" {
		a.RedirectURL = "/"
	}
	if a.Logger == nil {
		a.Logger = zap.NewNop().Sugar()
	}
}

// GetLoggedInUserId gets the ID of the logged in user from the current
// request, or "" for an anonymous client.
func (a *Middleware) GetLoggedInUserId(r *http.Request) string {
	v := r.Context().Value(userParamNameKey(a.UserParamName))
	if v != nil {
		loggedInUserId := v.(string)
		if loggedInUserId != "" {
			return loggedInUserId
		}
	}

	userParam := a.SessionGetter(r, a.UserParamName)
	if userParam != "" && userParam != nil {
		return userParam.(string)
	}

	if a.VerifyToken == nil {
		a.Logger.Warn("no auth token verifier configured")
		return ""
	}

	// Otherwise check the Auth header and cookies
	authTokens := r.Header.Values(a.AuthTokenHeaderName)
	// r.CookiesNamed requires Go 1.23+; filter r.Cookies() for older toolchains
	for _, cookie := range r.Cookies() {
		if cookie.Name == a.AuthTokenCookieName && len(cookie.Value) > 0 {
			// a cookie may be sent instead when making non-api calls
			authTokens = append(authTokens, cookie.Value)
		}
	}

	for _, authToken := range authTokens {
		authToken = strings.TrimPrefix(authToken, "Bearer ")
		loggedInUserId, _, err := a.VerifyToken(authToken)
		if err == nil && loggedInUserId != "" {
			return loggedInUserId
		} else if err != nil {
			a.Logger.Debugw("error verifying token", "err", err)
		}
	}

	return ""
}

// ExtractUser fetches the user id from the request and makes it available to
// downstream handlers as a request scoped variable.
//
// Note this does not perform any redirects if a valid user does not exist.
// To also enforce a user exists, use the EnsureUser handler which both
// calls ExtractUser and ensures that user is logged in.
func (a *Middleware) ExtractUser(next http.Handler) http.Handler {
	a.EnsureReasonableDefaults()
	return http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			userParam := a.GetLoggedInUserId(r)
			next.ServeHTTP(w, a.setLoggedInUserId(userParam, r))
		},
	)
}

// EnsureUser redirects anonymous clients to RedirectURL and otherwise makes
// the logged in user id available to downstream handlers.
func (a *Middleware) EnsureUser(next http.Handler) http.Handler {
	a.EnsureReasonableDefaults()
	return http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			userParam := a.GetLoggedInUserId(r)
			if userParam == "" {
				target := a.RedirectURL
				if a.CallbackURLParam != "" {
					originalUrl := r.URL.Path
					encodedUrl := strings.Replace(url.QueryEscape(originalUrl), "+", "%20", -1)
					target = fmt.Sprintf("%s?%s=%s", a.RedirectURL, a.CallbackURLParam, encodedUrl)
				}
				http.Redirect(w, r, target, http.StatusFound)
				return
			}
			next.ServeHTTP(w, a.setLoggedInUserId(userParam, r))
		},
	)
}

// Set the logged in user id into the request's variable set
// This will make it available to all other handlers downstream
func (a *Middleware) setLoggedInUserId(userId string, r *http.Request) *http.Request {
	contextWithUser := context.WithValue(r.Context(), userParamNameKey(a.UserParamName), userId)
	return r.WithContext(contextWithUser)
}
