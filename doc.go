// Package addrbook implements a personal address book with pluggable
// authentication and storage.
//
// The package separates three concerns: accounts, sessions, and contacts.
//
// Account: a unique user in the system, created either with a local
// username/password pair or on first login through a federated provider
// (Google, GitHub). Each account owns exactly one address book.
//
// Session: a server-side scs session holding the logged in user id, paired
// with a signed JWT cookie so other services behind the same domain can
// verify the login without a session lookup.
//
// Contact: an entry in an account's address book, grouped into named
// groups and addressable by a stable id.
//
// # Basic Usage
//
// Pick a store, wire the auth layer around it, and mount the handlers:
//
//	import (
//	    ab "github.com/panyam/addrbook"
//	    "github.com/panyam/addrbook/stores"
//	)
//
//	store := stores.NewFSUserStore("/path/to/storage")
//	session := scs.New()
//	auth := ab.NewAuth("myapp", store, session, logger)
//	auth.JWTSecretKey = os.Getenv("SESSION_SECRET")
//
//	local := &ab.LocalAuth{
//	    ValidateCredentials: ab.NewCredentialsValidator(store),
//	    CreateUser:          ab.NewCreateUserFunc(store),
//	    HandleUser:          auth.OnLocalUser,
//	}
//
//	contacts := ab.NewContactService(store, logger)
//
// The web package ties these together into a complete server, and the
// stores/mongo and stores/gorm packages provide database-backed stores.
package addrbook
