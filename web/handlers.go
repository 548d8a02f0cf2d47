package web

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	ab "github.com/panyam/addrbook"
)

// handleIndex sends authenticated users to their dashboard and everyone
// else to the anonymous landing page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.Auth.Middleware.GetLoggedInUserId(r) != "" {
		http.Redirect(w, r, "/home", http.StatusFound)
		return
	}
	s.render(w, "landing", nil)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	userId := s.Auth.Middleware.GetLoggedInUserId(r)
	groups, err := s.Contacts.Groups(r.Context(), userId)
	if err != nil {
		s.bailOut(w, r, userId, err)
		return
	}
	s.render(w, "home", GroupsData{Groups: groups})
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	userId := s.Auth.Middleware.GetLoggedInUserId(r)
	book, err := s.Contacts.List(r.Context(), userId)
	if err != nil {
		s.bailOut(w, r, userId, err)
		return
	}
	s.render(w, "book", BookData{Heading: "Your Contacts", Book: book})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	userId := s.Auth.Middleware.GetLoggedInUserId(r)
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/search", http.StatusFound)
		return
	}
	filtered, err := s.Contacts.Search(r.Context(), userId, r.FormValue("searchInput"))
	if err != nil {
		s.bailOut(w, r, userId, err)
		return
	}
	s.render(w, "book", BookData{Heading: "Search Results", Book: filtered})
}

func (s *Server) handleGroup(w http.ResponseWriter, r *http.Request) {
	userId := s.Auth.Middleware.GetLoggedInUserId(r)
	groupName := mux.Vars(r)["groupName"]
	filtered, err := s.Contacts.ListByGroup(r.Context(), userId, groupName)
	if err != nil {
		s.bailOut(w, r, userId, err)
		return
	}
	s.render(w, "book", BookData{Heading: groupName, Book: filtered})
}

func (s *Server) handleNewContactForm(w http.ResponseWriter, r *http.Request) {
	userId := s.Auth.Middleware.GetLoggedInUserId(r)
	groups, err := s.Contacts.Groups(r.Context(), userId)
	if err != nil {
		s.bailOut(w, r, userId, err)
		return
	}
	s.render(w, "entry", GroupsData{Groups: groups})
}

// handleNewContact appends a contact and returns to the book. A storage
// failure sends the client back to the form instead of a failure page.
func (s *Server) handleNewContact(w http.ResponseWriter, r *http.Request) {
	userId := s.Auth.Middleware.GetLoggedInUserId(r)
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/new-contact", http.StatusFound)
		return
	}
	contact := ab.Contact{
		Name:            r.FormValue("name"),
		CompanyOrSchool: r.FormValue("companyOrSchool"),
		Group:           r.FormValue("group"),
		Phone:           r.FormValue("phone"),
		Email:           r.FormValue("email"),
		Address:         r.FormValue("address"),
	}
	if _, err := s.Contacts.Add(r.Context(), userId, contact); err != nil {
		s.Logger.Errorw("failed to add contact", "user", userId, "err", err)
		http.Redirect(w, r, "/new-contact", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/book", http.StatusFound)
}

// handleDeleteContact removes the contact with the given id. The book page
// is where deletes originate, so all outcomes land back there.
func (s *Server) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	userId := s.Auth.Middleware.GetLoggedInUserId(r)
	contactId := mux.Vars(r)["contactId"]
	if err := s.Contacts.RemoveById(r.Context(), userId, contactId); err != nil && !errors.Is(err, ab.ErrContactNotFound) {
		s.Logger.Errorw("failed to delete contact", "user", userId, "contact", contactId, "err", err)
	}
	http.Redirect(w, r, "/book", http.StatusFound)
}

// renderPage returns a handler for pages that take no data.
func (s *Server) renderPage(page string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, page, nil)
	}
}

func (s *Server) render(w http.ResponseWriter, page string, data any) {
	if err := s.Renderer.Render(w, page, data); err != nil {
		s.Logger.Errorw("render failed", "page", page, "err", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// bailOut handles a failed user-scoped read. A session that resolves to a
// since-deleted user is terminated; either way the client lands back on
// the landing page rather than a failure page.
func (s *Server) bailOut(w http.ResponseWriter, r *http.Request, userId string, err error) {
	if errors.Is(err, ab.ErrUserNotFound) {
		s.Logger.Warnw("session references missing user", "user", userId)
		if serr := s.Auth.SetLoggedInUser(nil, w, r); serr != nil {
			s.Logger.Errorw("failed to clear session", "err", serr)
		}
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	s.Logger.Errorw("storage failure", "user", userId, "err", err)
	http.Redirect(w, r, "/", http.StatusFound)
}
