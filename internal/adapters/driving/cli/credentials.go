package cli

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/custodia-labs/github-backup/internal/core/domain"
)

// readPassword reads a line from the terminal without echo.
var readPassword = term.ReadPassword

// resolveCredentials builds the credentials for login from the -p flag.
// Without -p the run is anonymous unless login is a token. A bare -p reads
// the credential file, or prompts when there is none.
func resolveCredentials(login string) (domain.Credentials, error) {
	creds := domain.Credentials{Login: login}
	if password != askPassword {
		creds.Password = password
		return creds, nil
	}

	source, err := backend.Credentials()
	if err != nil {
		return creds, err
	}
	secret, ok, err := source.Secret()
	if err != nil {
		return creds, err
	}
	if ok {
		creds.Password = secret
		return creds, nil
	}

	fmt.Fprintf(os.Stderr, "Enter password for %s: ", login)
	raw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return creds, fmt.Errorf("read password: %w", err)
	}
	creds.Password = string(raw)
	return creds, nil
}
