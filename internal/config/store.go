package config

// Credential represents a stored credential entry.
type Credential struct {
	Service string
	Name    string
	Key     string
	Value   string
}

// Setting is one stored configuration value on the server side, addressed by
// destination, scope and resource (request id).
type Setting struct {
	Destination string
	Scope       string
	Resource    string
	Name        string
	Value       string
}

// User is an administrator allowed to use the admin server.
type User struct {
	UID          string
	PasswordHash string
}

// Store abstracts over the backing storage for certadmin.
type Store interface {
	// Credentials (admin passwords per profile on the client side)
	GetCredential(service, name, key string) (string, error)
	SetCredential(service, name, key, value string) error
	ListCredentials(service string) ([]Credential, error)
	DeleteCredential(service, name string) error

	// Settings served by `certadmin serve`
	ReadSettings(destination, scope, resource string) ([]Setting, error)
	WriteSettings(settings []Setting) error
	SeedSettings(settings []Setting) (int, error)

	// Users of `certadmin serve`
	GetUser(uid string) (*User, error)
	SetUser(uid, passwordHash string) error
	ListUsers() ([]User, error)

	Close() error
}
