// Package web is the HTTP surface of the address book: routing, page
// handlers and the redirect-on-error policy. All state lives in the
// services handed to the Server; nothing here is global.
package web

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	ab "github.com/panyam/addrbook"
)

// Server wires the auth and contact services to the route table.
type Server struct {
	Auth     *ab.Auth
	Local    *ab.LocalAuth
	Contacts *ab.ContactService
	Renderer Renderer
	Logger   *zap.SugaredLogger

	// Optional federated providers; nil providers are simply not mounted.
	Google http.Handler
	Github http.Handler
}

func NewServer(auth *ab.Auth, local *ab.LocalAuth, contacts *ab.ContactService, renderer Renderer, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Server{
		Auth:     auth,
		Local:    local,
		Contacts: contacts,
		Renderer: renderer,
		Logger:   logger,
	}
}

// Handler builds the full route table. Session state is loaded and saved
// around every request; the auth middleware guards the contact pages and
// redirects anonymous clients to the landing page.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	// Anonymous-facing routes
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/login", s.renderPage("login")).Methods(http.MethodGet)
	r.HandleFunc("/login", s.Local.HandleLogin).Methods(http.MethodPost)
	r.HandleFunc("/register", s.renderPage("register")).Methods(http.MethodGet)
	r.HandleFunc("/register", s.Local.HandleSignup).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.Auth.HandleLogout).Methods(http.MethodGet)

	if s.Google != nil {
		r.PathPrefix("/auth/google/").Handler(http.StripPrefix("/auth/google", s.Google))
	}
	if s.Github != nil {
		r.PathPrefix("/auth/github/").Handler(http.StripPrefix("/auth/github", s.Github))
	}

	// Contact management routes, all behind the auth middleware
	protected := []struct {
		method  string
		path    string
		handler http.HandlerFunc
	}{
		{http.MethodGet, "/home", s.handleHome},
		{http.MethodGet, "/about", s.renderPage("about")},
		{http.MethodGet, "/contact", s.renderPage("contact")},
		{http.MethodGet, "/book", s.handleBook},
		{http.MethodGet, "/search", s.renderPage("search")},
		{http.MethodPost, "/search", s.handleSearch},
		{http.MethodGet, "/groups/{groupName}", s.handleGroup},
		{http.MethodGet, "/new-contact", s.handleNewContactForm},
		{http.MethodPost, "/new-contact", s.handleNewContact},
		{http.MethodGet, "/delete-contact/{contactId}", s.handleDeleteContact},
	}
	for _, route := range protected {
		r.Handle(route.path, s.Auth.Middleware.EnsureUser(route.handler)).Methods(route.method)
	}

	return s.Auth.Session.LoadAndSave(r)
}
