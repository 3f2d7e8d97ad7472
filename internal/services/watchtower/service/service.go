// Package service contains the watchtower offender pipeline
package service

import (
	"time"

	"golang.org/x/time/rate"

	"watchtower/internal/modkit/repokit"
	"watchtower/internal/platform/lock"
	ptime "watchtower/internal/platform/time"
	"watchtower/internal/services/watchtower/domain"
	"watchtower/internal/services/watchtower/repo"
)

const (
	// MaxHostBytes is the largest file the content host accepts
	MaxHostBytes = 250 << 20

	// MaxFallbackBytes is the largest file attached directly to a destination
	MaxFallbackBytes = 25 << 20

	// MessageLimit is the most characters the platform accepts in one message
	MessageLimit = 2000

	// StarterText opens threads created off a message or as a forum post
	StarterText = "Watchtower thread initialized."

	lockPrefix = "watchtower:dest:"
)

// Ports are the chat platform and external collaborators the pipeline drives
type Ports struct {
	History   domain.History
	Directory domain.Directory
	Channels  domain.Channels
	Fetcher   domain.Fetcher
	Host      domain.ContentHost
	Scorer    domain.Scorer

	// Locker serializes destination lookup and creation per audit channel
	Locker lock.Locker

	// Events is optional; when set every recorded infraction is mirrored to it
	Events domain.EventSink
}

// Options control pipeline behavior
type Options struct {
	// ChannelID is the audit channel
	ChannelID string

	// AttachmentBatch is how many fallback files go in one message, 1..10
	AttachmentBatch int

	// PasteTimeout bounds the wait for the moderator paste
	PasteTimeout time.Duration

	// ContextMessages is how many recent ticket messages go in the embed
	ContextMessages int

	// UploadLimiter throttles content host calls; nil means unthrottled
	UploadLimiter *rate.Limiter

	Clock ptime.Clock
}

// Svc implements domain.Resolver and domain.InfractionQuery
type Svc struct {
	db     repokit.TxRunner
	binder repokit.Binder[repo.Repo]
	ports  Ports
	opts   Options
}

// New constructs the service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo], ports Ports, opt Options) *Svc {
	if db == nil {
		panic("watchtower.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("watchtower.Service requires a non nil Repo binder")
	}
	if ports.History == nil || ports.Directory == nil || ports.Channels == nil || ports.Fetcher == nil {
		panic("watchtower.Service requires the chat platform ports")
	}
	if ports.Host == nil {
		panic("watchtower.Service requires a non nil ContentHost")
	}
	if ports.Scorer == nil {
		panic("watchtower.Service requires a non nil Scorer")
	}
	if ports.Locker == nil {
		ports.Locker = lock.NewLocal()
	}
	if opt.ChannelID == "" {
		panic("watchtower.Service requires an audit ChannelID")
	}

	if opt.AttachmentBatch <= 0 || opt.AttachmentBatch > 10 {
		opt.AttachmentBatch = 10
	}
	if opt.PasteTimeout <= 0 {
		opt.PasteTimeout = 20 * time.Minute
	}
	if opt.ContextMessages <= 0 {
		opt.ContextMessages = 20
	}
	if opt.Clock == nil {
		opt.Clock = ptime.System{}
	}

	return &Svc{db: db, binder: binder, ports: ports, opts: opt}
}

// repo binds the repository to the pool
func (s *Svc) repo() repo.Repo { return s.binder.Bind(s.db) }
