package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/custodia-labs/github-backup/internal/core/domain"
	"github.com/custodia-labs/github-backup/internal/core/ports/driven"
)

// --- Fake implementations of the driven ports ---

// fakeFS is an in-memory driven.BackupFS.
type fakeFS struct {
	mu    sync.Mutex
	files map[string][]byte
	dirs  map[string]bool
}

func newFakeFS() *fakeFS {
	return &fakeFS{files: make(map[string][]byte), dirs: make(map[string]bool)}
}

func (f *fakeFS) EnsureDir(dir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for d := dir; d != "/" && d != "." && !f.dirs[d]; d = filepath.Dir(d) {
		f.dirs[d] = true
	}
	return nil
}

func (f *fakeFS) Exists(path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[path]
	return ok || f.dirs[path], nil
}

func (f *fakeFS) WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	f.put(path, data)
	return nil
}

func (f *fakeFS) Create(path string) (io.WriteCloser, error) {
	f.put(path, nil)
	return &fakeFile{fs: f, path: path}, nil
}

func (f *fakeFS) Size(path string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[path]
	if !ok {
		return 0, fmt.Errorf("%s: %w", path, domain.ErrNotFound)
	}
	return int64(len(data)), nil
}

func (f *fakeFS) put(path string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = data
}

func (f *fakeFS) has(path string) bool {
	ok, _ := f.Exists(path)
	return ok
}

func (f *fakeFS) doc(path string) domain.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	dec := json.NewDecoder(bytes.NewReader(f.files[path]))
	dec.UseNumber()
	var d domain.Document
	if err := dec.Decode(&d); err != nil {
		return nil
	}
	return d
}

func (f *fakeFS) list(path string) []domain.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	var docs []domain.Document
	if err := json.Unmarshal(f.files[path], &docs); err != nil {
		return nil
	}
	return docs
}

// snapshot copies the current file contents.
func (f *fakeFS) snapshot() map[string][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.files)
}

func (f *fakeFS) paths(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for p := range f.files {
		if strings.HasPrefix(p, prefix) {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return out
}

type fakeFile struct {
	fs   *fakeFS
	path string
	buf  bytes.Buffer
}

func (w *fakeFile) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *fakeFile) Close() error {
	w.fs.put(w.path, w.buf.Bytes())
	return nil
}

// gitCall is one recorded git invocation.
type gitCall struct {
	Sub   string
	Args  []string
	Extra []string
	Dir   string
}

func (c gitCall) String() string {
	return strings.Join(append(append([]string{c.Sub}, c.Extra...), c.Args...), " ")
}

// fakeGit records invocations and creates marker files on clone.
type fakeGit struct {
	mu    sync.Mutex
	fs    *fakeFS
	calls []gitCall
	fail  map[string]error
}

func newFakeGit(fs *fakeFS) *fakeGit {
	return &fakeGit{fs: fs, fail: make(map[string]error)}
}

func (g *fakeGit) Run(_ context.Context, sub string, args, extra []string, dir string) error {
	g.mu.Lock()
	g.calls = append(g.calls, gitCall{Sub: sub, Args: args, Extra: extra, Dir: dir})
	err := g.fail[sub]
	g.mu.Unlock()
	if err != nil {
		return err
	}

	if sub == "clone" && g.fs != nil {
		target := filepath.Join(dir, args[len(args)-1])
		if slices.Contains(args, "--mirror") {
			g.fs.put(filepath.Join(target, "config"), []byte{})
		} else {
			g.fs.put(filepath.Join(target, ".git", "config"), []byte{})
		}
	}
	return nil
}

func (g *fakeGit) Calls() []gitCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]gitCall(nil), g.calls...)
}

func (g *fakeGit) CallsFor(sub string) []gitCall {
	var out []gitCall
	for _, c := range g.Calls() {
		if c.Sub == sub {
			out = append(out, c)
		}
	}
	return out
}

// configValues returns the git config values written in dir.
func (g *fakeGit) configValues(dir string) map[string]string {
	values := make(map[string]string)
	for _, c := range g.CallsFor("config") {
		if c.Dir == dir && len(c.Args) == 3 {
			values[c.Args[1]] = c.Args[2]
		}
	}
	return values
}

// fakeHosting is a scripted driven.HostingAPI.
type fakeHosting struct {
	mu sync.Mutex

	authenticated bool
	account       *domain.Account
	resolveErr    error
	refs          []domain.AccountRef

	repoPages    [][]*domain.Repository
	gistPages    [][]*domain.Gist
	starredGists []*domain.Gist
	filters      []driven.RepoFilter
	pagesServed  int

	docs    map[string]domain.Document
	lists   map[string][]domain.Document
	search  map[string][]domain.Document
	assets  map[int64][]byte
	limits  domain.RateLimits
	fetched []string

	// throttle makes the next n calls fail with domain.ErrRateLimited.
	throttle int
}

func newFakeHosting() *fakeHosting {
	return &fakeHosting{
		docs:   make(map[string]domain.Document),
		lists:  make(map[string][]domain.Document),
		search: make(map[string][]domain.Document),
		assets: make(map[int64][]byte),
	}
}

func (h *fakeHosting) throttled() error {
	if h.throttle > 0 {
		h.throttle--
		return fmt.Errorf("fake: %w", domain.ErrRateLimited)
	}
	return nil
}

func (h *fakeHosting) Authenticated() bool { return h.authenticated }

func (h *fakeHosting) ResolveAccount(_ context.Context, ref domain.AccountRef) (*domain.Account, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.refs = append(h.refs, ref)
	if err := h.throttled(); err != nil {
		return nil, err
	}
	if h.resolveErr != nil {
		return nil, h.resolveErr
	}
	return h.account, nil
}

func (h *fakeHosting) ListRepositories(
	_ context.Context, _ *domain.Account, filter driven.RepoFilter, page int,
) ([]*domain.Repository, int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.throttled(); err != nil {
		return nil, 0, err
	}
	h.filters = append(h.filters, filter)
	h.pagesServed++
	return pageOf(h.repoPages, page)
}

func (h *fakeHosting) ListGists(_ context.Context, _ *domain.Account, page int) ([]*domain.Gist, int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return pageOf(h.gistPages, page)
}

func (h *fakeHosting) ListStarredGists(_ context.Context, page int) ([]*domain.Gist, int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return pageOf([][]*domain.Gist{h.starredGists}, page)
}

func (h *fakeHosting) FetchJSON(_ context.Context, url string) (domain.Document, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fetched = append(h.fetched, url)
	if err := h.throttled(); err != nil {
		return nil, err
	}
	d, ok := h.docs[url]
	if !ok {
		return nil, fmt.Errorf("fake: %s: %w", url, domain.ErrNotFound)
	}
	return d.Clone(), nil
}

func (h *fakeHosting) ListJSON(_ context.Context, url string, page int) ([]domain.Document, int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fetched = append(h.fetched, url)
	if err := h.throttled(); err != nil {
		return nil, 0, err
	}
	docs, ok := h.lists[url]
	if !ok {
		return nil, 0, fmt.Errorf("fake: %s: %w", url, domain.ErrNotFound)
	}
	return pageOf([][]domain.Document{docs}, page)
}

func (h *fakeHosting) SearchIssues(_ context.Context, query string, page int) ([]domain.Document, int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fetched = append(h.fetched, "search:"+query)
	return pageOf([][]domain.Document{h.search[query]}, page)
}

func (h *fakeHosting) DownloadAsset(_ context.Context, _, _ string, id int64, w io.Writer) (int64, error) {
	h.mu.Lock()
	data, ok := h.assets[id]
	h.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("fake: asset %d: %w", id, domain.ErrNotFound)
	}
	n, err := w.Write(data)
	return int64(n), err
}

func (h *fakeHosting) RateLimits(context.Context) (*domain.RateLimits, error) {
	l := h.limits
	return &l, nil
}

func (h *fakeHosting) Fetched() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.fetched...)
}

func pageOf[T any](pages [][]T, page int) ([]T, int, error) {
	if page < 1 || page > len(pages) {
		return nil, 0, nil
	}
	next := page + 1
	if next > len(pages) {
		next = 0
	}
	return pages[page-1], next, nil
}

// fakeFactory returns a prepared client per credential kind.
type fakeFactory struct {
	mu        sync.Mutex
	withCreds *fakeHosting
	anonymous *fakeHosting
	created   []domain.Credentials
}

func (f *fakeFactory) New(_ context.Context, creds domain.Credentials) (driven.HostingAPI, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, creds)
	if creds.Anonymous() || f.withCreds == nil {
		return f.anonymous, nil
	}
	return f.withCreds, nil
}
