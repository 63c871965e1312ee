package domain

// AccountKind distinguishes how an account was resolved.
type AccountKind string

const (
	// AccountAuthenticatedUser is the user the client is authenticated as.
	AccountAuthenticatedUser AccountKind = "authenticated_user"

	// AccountUser is any other user.
	AccountUser AccountKind = "user"

	// AccountOrganization is an organization.
	AccountOrganization AccountKind = "organization"
)

// AccountRef names the account a run backs up.
type AccountRef struct {
	// Organization, when set, wins over everything else.
	Organization string

	// Username selects a user by login.
	Username string

	// Self selects the authenticated user.
	Self bool
}

// Account is a resolved user or organization.
type Account struct {
	Login string
	Kind  AccountKind

	// Raw is the API representation of the account.
	Raw Document
}

// URL returns a URL-valued field of the raw account, without any URI template suffix.
func (a *Account) URL(key string) string {
	return StripURITemplate(a.Raw.String(key))
}
