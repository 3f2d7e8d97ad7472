package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"watchtower/internal/modkit/repokit"
	perr "watchtower/internal/platform/errors"
	"watchtower/internal/platform/lock"
	ptime "watchtower/internal/platform/time"
	"watchtower/internal/services/watchtower/domain"
	"watchtower/internal/services/watchtower/repo"
)

var errBoom = errors.New("boom")

// memRepo is an in memory repo.Repo
type memRepo struct {
	mu          sync.Mutex
	users       []domain.UserRow
	infractions []domain.InfractionRow
	userErr     error
	countErr    error
	insertErr   error
}

func (m *memRepo) UserByDiscordID(_ context.Context, id int64) (domain.UserRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.userErr != nil {
		return domain.UserRow{}, m.userErr
	}
	for _, u := range m.users {
		if u.DiscordID == id {
			return u, nil
		}
	}
	return domain.UserRow{}, perr.ErrNotFound
}

func (m *memRepo) UserBySteamID(_ context.Context, steam string) (domain.UserRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.userErr != nil {
		return domain.UserRow{}, m.userErr
	}
	for _, u := range m.users {
		if u.SteamID == steam {
			return u, nil
		}
	}
	return domain.UserRow{}, perr.ErrNotFound
}

func (m *memRepo) CountInfractions(_ context.Context, steam string, discord int64, reason string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.countErr != nil {
		return 0, m.countErr
	}
	n := 0
	for _, x := range m.infractions {
		if x.Reason != reason {
			continue
		}
		if (steam != "" && x.SteamID == steam) || (steam == "" && x.DiscordID == discord) {
			n++
		}
	}
	return n, nil
}

func (m *memRepo) InsertInfraction(_ context.Context, row domain.InfractionRow) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	row.ID = int64(len(m.infractions) + 1)
	m.infractions = append(m.infractions, row)
	return row.ID, nil
}

func (m *memRepo) ListInfractions(_ context.Context, steam string, discord int64, limit int) ([]domain.InfractionRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.InfractionRow
	for i := len(m.infractions) - 1; i >= 0 && len(out) < limit; i-- {
		x := m.infractions[i]
		if (steam != "" && x.SteamID == steam) || (discord != 0 && x.DiscordID == discord) {
			out = append(out, x)
		}
	}
	return out, nil
}

// fakeDB only runs transactions; the repo fake ignores the queryer
type fakeDB struct{ txs int }

func (f *fakeDB) Exec(context.Context, string, ...any) (repokit.CommandTag, error) { return nil, nil }
func (f *fakeDB) Query(context.Context, string, ...any) (repokit.Rows, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeDB) QueryRow(context.Context, string, ...any) repokit.Row { return nil }
func (f *fakeDB) Tx(_ context.Context, fn func(repokit.Queryer) error) error {
	f.txs++
	return fn(f)
}

type sent struct {
	channelID string
	content   string
}

type fileBatch struct {
	channelID string
	content   string
	files     []domain.File
}

// fakeChannels is an in memory audit channel
type fakeChannels struct {
	mu sync.Mutex

	shape    domain.ChannelShape
	shapeErr error
	active   []domain.Thread
	archived []domain.Thread
	listErr  error

	forumErr   error
	threadErr  error
	starterErr error
	sendErr    error
	filesErr   error
	embedErr   error

	seq      int
	created  []string
	sent     []sent
	embeds   []domain.Embed
	files    []fileBatch
	deleted  []string
	listHook func()
}

func (f *fakeChannels) id() string { f.seq++; return fmt.Sprintf("t%d", f.seq) }

func (f *fakeChannels) Shape(context.Context, string) (domain.ChannelShape, error) {
	return f.shape, f.shapeErr
}

func (f *fakeChannels) ActiveThreads(context.Context, string) ([]domain.Thread, error) {
	if f.listHook != nil {
		f.listHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Thread(nil), f.active...), f.listErr
}

func (f *fakeChannels) ArchivedThreads(context.Context, string) ([]domain.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Thread(nil), f.archived...), f.listErr
}

func (f *fakeChannels) newThread(name string) domain.Thread {
	th := domain.Thread{ID: f.id(), Name: name}
	f.active = append(f.active, th)
	f.created = append(f.created, name)
	return th
}

func (f *fakeChannels) CreateForumPost(_ context.Context, _, name, _ string) (domain.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forumErr != nil {
		return domain.Thread{}, f.forumErr
	}
	return f.newThread(name), nil
}

func (f *fakeChannels) CreateThread(_ context.Context, _, name string) (domain.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.threadErr != nil {
		return domain.Thread{}, f.threadErr
	}
	return f.newThread(name), nil
}

func (f *fakeChannels) StartThreadFromMessage(_ context.Context, _, _, name string) (domain.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.starterErr != nil {
		return domain.Thread{}, f.starterErr
	}
	return f.newThread(name), nil
}

func (f *fakeChannels) Send(_ context.Context, channelID, content string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, sent{channelID: channelID, content: content})
	return f.id(), nil
}

func (f *fakeChannels) SendEmbed(_ context.Context, _ string, e domain.Embed) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.embedErr != nil {
		return f.embedErr
	}
	f.embeds = append(f.embeds, e)
	return nil
}

func (f *fakeChannels) SendFiles(_ context.Context, channelID, content string, files []domain.File) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.filesErr != nil {
		return f.filesErr
	}
	f.files = append(f.files, fileBatch{channelID: channelID, content: content, files: files})
	return nil
}

func (f *fakeChannels) Delete(_ context.Context, _, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

// contents returns every plain message posted to channelID
func (f *fakeChannels) contents(channelID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, s := range f.sent {
		if s.channelID == channelID {
			out = append(out, s.content)
		}
	}
	return out
}

type fakeDirectory map[int64]string

func (d fakeDirectory) UserName(_ context.Context, id int64) (string, error) {
	if n, ok := d[id]; ok {
		return n, nil
	}
	return "", errors.New("unknown user")
}

type fakeHistory struct {
	msgs []domain.Message
	err  error
}

func (h fakeHistory) Messages(context.Context, string) ([]domain.Message, error) { return h.msgs, h.err }

// fakeFetcher serves zeroed payloads of the size encoded in the url path
type fakeFetcher struct {
	mu    sync.Mutex
	sizes map[string]int
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	n, ok := f.sizes[url]
	if !ok {
		return nil, errors.New("404")
	}
	return make([]byte, n), nil
}

type fakeHost struct {
	mu       sync.Mutex
	fail     map[string]bool
	order    []string
	onUpload func()
}

func (h *fakeHost) Upload(_ context.Context, filename string, _ []byte) (string, error) {
	if h.onUpload != nil {
		h.onUpload()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.order = append(h.order, filename)
	if h.fail[filename] || h.fail["*"] {
		return "", errBoom
	}
	return "https://files.catbox.moe/" + filename, nil
}

type fakeScorer struct {
	reqs []domain.ScoreRequest
	res  domain.ScoreResult
}

func (f *fakeScorer) Apply(_ context.Context, req domain.ScoreRequest) domain.ScoreResult {
	f.reqs = append(f.reqs, req)
	res := f.res
	if res.Status == "" {
		res.Status = domain.ScoreApplied
	}
	return res
}

type fakeConv struct {
	paste   domain.Message
	err     error
	replies []string
	waited  time.Duration
}

func (c *fakeConv) Reply(_ context.Context, content string) error {
	c.replies = append(c.replies, content)
	return nil
}

func (c *fakeConv) AwaitReply(_ context.Context, d time.Duration) (domain.Message, error) {
	c.waited = d
	return c.paste, c.err
}

type fakeSink struct {
	events []domain.InfractionEvent
	err    error
}

func (s *fakeSink) Append(_ context.Context, ev domain.InfractionEvent) error {
	s.events = append(s.events, ev)
	return s.err
}

// rig bundles a service with its fakes
type rig struct {
	svc   *Svc
	repo  *memRepo
	db    *fakeDB
	ch    *fakeChannels
	dir   fakeDirectory
	hist  *fakeHistory
	fetch *fakeFetcher
	host  *fakeHost
	score *fakeScorer
	sink  *fakeSink
	clock *ptime.Fixed
}

const auditChannel = "audit"

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newRig(opts ...func(*Options)) *rig {
	r := &rig{
		repo:  &memRepo{},
		db:    &fakeDB{},
		ch:    &fakeChannels{shape: domain.ShapeForum},
		dir:   fakeDirectory{},
		hist:  &fakeHistory{},
		fetch: &fakeFetcher{sizes: map[string]int{}},
		host:  &fakeHost{fail: map[string]bool{}},
		score: &fakeScorer{},
		sink:  &fakeSink{},
		clock: ptime.NewFixed(t0),
	}
	o := Options{ChannelID: auditChannel, Clock: r.clock}
	for _, fn := range opts {
		fn(&o)
	}
	binder := repokit.BindFunc[repo.Repo](func(repokit.Queryer) repo.Repo { return r.repo })
	r.svc = New(r.db, binder, Ports{
		History:   historyFunc(func() fakeHistory { return *r.hist }),
		Directory: r.dir,
		Channels:  r.ch,
		Fetcher:   r.fetch,
		Host:      r.host,
		Scorer:    r.score,
		Locker:    lock.NewLocal(),
		Events:    r.sink,
	}, o)
	return r
}

// historyFunc reads the rig history at call time so tests can set it after newRig
type historyFunc func() fakeHistory

func (h historyFunc) Messages(ctx context.Context, id string) ([]domain.Message, error) {
	return h().Messages(ctx, id)
}

func attachmentMsg(id, author string, at time.Time, text string, files ...domain.Attachment) domain.Message {
	return domain.Message{ID: id, AuthorName: author, Timestamp: at, Content: text, Attachments: files}
}

func att(name string, size int) domain.Attachment {
	return domain.Attachment{Filename: name, URL: "cdn://" + name, Size: int64(size)}
}

func hasPrefix(xs []string, prefix string) int {
	n := 0
	for _, x := range xs {
		if strings.HasPrefix(x, prefix) {
			n++
		}
	}
	return n
}
