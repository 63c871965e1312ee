package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/github-backup/internal/core/domain"
	"github.com/custodia-labs/github-backup/internal/core/ports/driven"
)

// askPassword is the value of a bare -p: read the credential file or prompt.
const askPassword = "-"

// Shared by all commands.
var (
	configPath string
	apiURL     string
	password   string
	debug      bool
	quiet      bool
)

// Backup options.
var (
	visibility   string
	affiliation  []string
	mirror       bool
	skipForks    bool
	skipRepos    bool
	skipList     []string
	gitArgs      []string
	protocol     string
	suffix       string
	prefix       string
	username     string
	organization string
	include      domain.Include
	everything   bool
	workers      int
	useState     bool
	noState      bool
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "configuration file (default ~/.github-backup/config.toml)")
	pf.StringVar(&apiURL, "api-url", "", "GitHub Enterprise API URL")
	pf.StringVarP(&password, "password", "p", "",
		"password or API token; give no value to read ~/.github-backup.conf or prompt")
	pf.Lookup("password").NoOptDefVal = askPassword
	pf.BoolVarP(&debug, "debug", "d", false, "show debug info")
	pf.BoolVarP(&quiet, "quiet", "q", false, "only show warnings and errors")

	f := rootCmd.Flags()
	f.StringVarP(&visibility, "visibility", "v", domain.VisibilityAll, "filter repos by visibility: all, public or private")
	f.StringSliceVarP(&affiliation, "affiliation", "a", nil,
		"filter repos by affiliation: owner, collaborator, organization_member (default owner)")
	f.BoolVarP(&mirror, "mirror", "m", false, "create bare mirrors")
	f.BoolVarP(&skipForks, "skip-forks", "f", false, "skip forks")
	f.BoolVar(&skipRepos, "skip-repos", false, "skip backing up repositories")
	f.StringSliceVar(&skipList, "skip", nil, "repository name (or owner/name) to skip")
	f.StringArrayVarP(&gitArgs, "git", "g", nil, "extra argument passed to git")
	f.StringVarP(&protocol, "type", "t", string(domain.ProtocolSSH), "clone protocol: git, http or ssh")
	f.StringVarP(&suffix, "suffix", "s", "", "suffix for repository directory names")
	f.StringVarP(&prefix, "prefix", "P", "", "prefix for repository directory names")
	f.StringVarP(&username, "username", "u", "", "back up the account of USER")
	f.StringVarP(&organization, "organization", "o", "", "back up the repositories of ORG")
	f.BoolVarP(&include.Account, "account", "A", false, "include account data")
	f.BoolVar(&everything, "all", false, "include everything except gists and starred gists")
	f.BoolVar(&include.Starred, "starred", false, "include starred repositories")
	f.BoolVar(&include.Watched, "watched", false, "include watched repositories")
	f.BoolVar(&include.Followers, "followers", false, "include followers")
	f.BoolVar(&include.Following, "following", false, "include followed users")
	f.BoolVar(&include.Issues, "issues", false, "include issues")
	f.BoolVar(&include.IssueComments, "issue-comments", false, "include issue comments")
	f.BoolVar(&include.IssueEvents, "issue-events", false, "include issue events")
	f.BoolVar(&include.Pulls, "pulls", false, "include pull requests")
	f.BoolVar(&include.PullComments, "pull-comments", false, "include pull request review comments")
	f.BoolVar(&include.PullCommits, "pull-commits", false, "include pull request commits")
	f.BoolVar(&include.Keys, "keys", false, "include ssh keys")
	f.BoolVar(&include.Wiki, "wikis", false, "include wiki clones")
	f.BoolVar(&include.Gists, "gists", false, "include gists")
	f.BoolVar(&include.StarredGists, "starred-gists", false, "include starred gists")
	f.BoolVar(&include.Releases, "releases", false, "include releases")
	f.BoolVar(&include.Assets, "assets", false, "include release assets")
	f.IntVar(&workers, "workers", 1, "number of repositories processed at once")
	f.BoolVar(&useState, "state", true, "record mirrors and runs in BACKUPDIR/.github-backup/state.db")
	f.BoolVar(&noState, "no-state", false, "do not record state")
	rootCmd.MarkFlagsMutuallyExclusive("state", "no-state")
}

// configKeys maps flags to the configuration keys providing their defaults.
var configKeys = []struct {
	flag string
	key  string
}{
	{"type", "backup.type"},
	{"mirror", "backup.mirror"},
	{"workers", "backup.workers"},
	{"prefix", "backup.prefix"},
	{"suffix", "backup.suffix"},
	{"skip-forks", "backup.skip_forks"},
	{"visibility", "backup.visibility"},
	{"affiliation", "backup.affiliation"},
	{"skip", "backup.skip"},
	{"git", "git.args"},
	{"api-url", "github.api_url"},
}

// applyConfig copies configured values into the flags the user did not set.
func applyConfig(flags *pflag.FlagSet, cfg driven.ConfigStore) error {
	for _, ck := range configKeys {
		f := flags.Lookup(ck.flag)
		if f == nil || f.Changed {
			continue
		}
		val, ok := cfg.Get(ck.key)
		if !ok {
			continue
		}

		if sv, isSlice := f.Value.(pflag.SliceValue); isSlice {
			if err := sv.Replace(cfg.GetStringSlice(ck.key)); err != nil {
				return fmt.Errorf("config %s: %w", ck.key, err)
			}
			continue
		}
		s, err := configValue(cfg, ck.key, f.Value.Type(), val)
		if err == nil {
			err = f.Value.Set(s)
		}
		if err != nil {
			return fmt.Errorf("config %s: %w", ck.key, err)
		}
	}
	return nil
}

// configValue reads key with the getter matching the flag type.
func configValue(cfg driven.ConfigStore, key, typ string, val any) (string, error) {
	switch typ {
	case "bool":
		if _, ok := val.(bool); !ok {
			return "", fmt.Errorf("%w: want true or false, got %v", domain.ErrInvalidInput, val)
		}
		return strconv.FormatBool(cfg.GetBool(key)), nil
	case "int":
		switch val.(type) {
		case int, int64:
			return strconv.Itoa(cfg.GetInt(key)), nil
		}
		return "", fmt.Errorf("%w: want an integer, got %v", domain.ErrInvalidInput, val)
	default:
		if _, ok := val.(string); !ok {
			return "", fmt.Errorf("%w: want a string, got %v", domain.ErrInvalidInput, val)
		}
		return cfg.GetString(key), nil
	}
}

// buildOptions assembles the run options from the flags.
func buildOptions(backupDir string) (domain.BackupOptions, error) {
	p, err := domain.ParseProtocol(protocol)
	if err != nil {
		return domain.BackupOptions{}, err
	}

	inc := include
	if everything {
		inc.Everything()
	}

	opts := domain.BackupOptions{
		BackupDir:    backupDir,
		Organization: organization,
		Username:     username,
		Visibility:   visibility,
		Affiliation:  append([]string(nil), affiliation...),
		Mirror:       mirror,
		Protocol:     p,
		Prefix:       prefix,
		Suffix:       suffix,
		SkipForks:    skipForks,
		SkipRepos:    skipRepos,
		Skip:         append([]string(nil), skipList...),
		GitArgs:      append([]string(nil), gitArgs...),
		Quiet:        quiet,
		Workers:      workers,
		Include:      inc,
	}
	opts.Normalize()
	if err := opts.Validate(); err != nil {
		return domain.BackupOptions{}, err
	}
	return opts, nil
}

// stateEnabled reports whether the mirror ledger is used.
func stateEnabled() bool {
	return useState && !noState
}

// loadConfig applies the configuration file to cmd's flags.
func loadConfig(cmd *cobra.Command) error {
	cfg, err := backend.Config(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return applyConfig(cmd.Flags(), cfg)
}
