package driven

// CredentialSource supplies a stored password or API token.
type CredentialSource interface {
	// Secret returns the stored secret. ok is false when the source does not exist.
	Secret() (secret string, ok bool, err error)
}
