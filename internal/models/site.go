package models

// Site holds the credentials stored for one site. The zero value is a
// valid, empty record.
type Site struct {
	username string
	email    string
	password string
}

// NewSite creates a site record. Any field may be empty.
func NewSite(username, email, password string) Site {
	return Site{
		username: username,
		email:    email,
		password: password,
	}
}

// Username returns the login name used on the site.
func (s Site) Username() string { return s.username }

// Email returns the email address registered on the site.
func (s Site) Email() string { return s.email }

// Password returns the site password.
func (s Site) Password() string { return s.password }

// Equal reports whether both records hold the same three fields.
func (s Site) Equal(other Site) bool {
	return s.username == other.username &&
		s.email == other.email &&
		s.password == other.password
}

// String never includes the password.
func (s Site) String() string {
	return "Site{username=" + s.username + ", email=" + s.email + "}"
}
