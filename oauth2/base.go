// Package oauth2 implements the federated identity bridges. Each provider
// is the same two-step contract: a stateless redirect to the provider's
// consent screen, and a callback that exchanges the authorization code for a
// profile and hands it to the application's HandleUserFunc.
package oauth2

import (
	"context"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// ExchangeTimeout bounds the code exchange and the userinfo fetch so that a
// slow provider cannot stall the callback indefinitely.
const ExchangeTimeout = 10 * time.Second

type BaseOAuth2 struct {
	ClientId     string
	ClientSecret string
	CallbackURL  string
	HandleUser   HandleUserFunc

	// AuthFailureURL is where the client is sent when the provider rejects
	// the exchange. Defaults to the anonymous landing page.
	AuthFailureURL string

	// HTTPClient is used for userinfo fetches. Can be overridden for testing.
	HTTPClient *http.Client

	Logger *zap.SugaredLogger

	oauthConfig oauth2.Config
	mux         *http.ServeMux
}

func NewBaseOAuth2(clientId string, clientSecret string, callbackUrl string, handleUser HandleUserFunc) *BaseOAuth2 {
	if clientId == "" {
		clientId = os.Getenv("OAUTH2_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("OAUTH2_CLIENT_SECRET")
	}
	if callbackUrl == "" {
		callbackUrl = os.Getenv("OAUTH2_CALLBACK_URL")
	}
	out := &BaseOAuth2{
		ClientId:       clientId,
		ClientSecret:   clientSecret,
		CallbackURL:    callbackUrl,
		HandleUser:     handleUser,
		AuthFailureURL: "/",
		mux:            http.NewServeMux(),
		oauthConfig: oauth2.Config{
			ClientID:     clientId,
			ClientSecret: clientSecret,
			RedirectURL:  callbackUrl,
		},
	}
	out.setupHandlers()
	return out
}

func (b *BaseOAuth2) setupHandlers() {
	b.mux.HandleFunc("/", OauthRedirector(&b.oauthConfig))
}

// Handler returns the handler serving this provider's redirect and callback
// routes. Mount it under a prefix like /auth/google with http.StripPrefix.
func (b *BaseOAuth2) Handler() http.Handler {
	return b.mux
}

// SetHTTPClient overrides the client used for the code exchange and the
// userinfo fetch. Tests use this to point at a fake provider.
func (b *BaseOAuth2) SetHTTPClient(client *http.Client) {
	b.HTTPClient = client
}

// SetOAuthEndpoint overrides the provider's auth and token endpoints.
func (b *BaseOAuth2) SetOAuthEndpoint(endpoint oauth2.Endpoint) {
	b.oauthConfig.Endpoint = endpoint
}

// ExchangeContext returns the context used for the code exchange. The
// configured HTTP client is carried in the context so the oauth2 library
// uses it for the token request.
func (b *BaseOAuth2) ExchangeContext() (context.Context, context.CancelFunc) {
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, b.getHTTPClient())
	return context.WithTimeout(ctx, ExchangeTimeout)
}

func (b *BaseOAuth2) getHTTPClient() *http.Client {
	if b.HTTPClient != nil {
		return b.HTTPClient
	}
	return &http.Client{Timeout: ExchangeTimeout}
}

func (b *BaseOAuth2) logger() *zap.SugaredLogger {
	if b.Logger == nil {
		b.Logger = zap.NewNop().Sugar()
	}
	return b.Logger
}
