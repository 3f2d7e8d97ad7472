package service

import (
	"context"
	"errors"

	perr "watchtower/internal/platform/errors"
	"watchtower/internal/platform/logger"
	"watchtower/internal/services/watchtower/domain"
)

// destinationStrategy is the capability surface of one audit channel shape
type destinationStrategy interface {
	strategy() string
	locateByName(ctx context.Context, name string) (domain.Destination, bool, error)
	create(ctx context.Context, name string) (domain.Destination, error)
	post(ctx context.Context, dest domain.Destination, content string) error
}

// threadIndex implements lookup and posting shared by every shape
type threadIndex struct {
	ch        domain.Channels
	channelID string
}

func (t threadIndex) locateByName(ctx context.Context, name string) (domain.Destination, bool, error) {
	active, err := t.ch.ActiveThreads(ctx, t.channelID)
	if err != nil {
		return domain.Destination{}, false, perr.Wrap(err, perr.ErrorCodeUpstream, "list active threads")
	}
	if d, ok := match(active, name); ok {
		return d, true, nil
	}
	archived, err := t.ch.ArchivedThreads(ctx, t.channelID)
	if err != nil {
		return domain.Destination{}, false, perr.Wrap(err, perr.ErrorCodeUpstream, "list archived threads")
	}
	d, ok := match(archived, name)
	return d, ok, nil
}

func (t threadIndex) post(ctx context.Context, dest domain.Destination, content string) error {
	_, err := t.ch.Send(ctx, dest.ID, content)
	return err
}

func match(ts []domain.Thread, name string) (domain.Destination, bool) {
	for _, th := range ts {
		if th.Name == name {
			return domain.Destination{ID: th.ID, Name: th.Name}, true
		}
	}
	return domain.Destination{}, false
}

// forumPosts creates forum posts with the starter text as their first message
type forumPosts struct{ threadIndex }

func (forumPosts) strategy() string { return "forum" }

func (f forumPosts) create(ctx context.Context, name string) (domain.Destination, error) {
	th, err := f.ch.CreateForumPost(ctx, f.channelID, name, StarterText)
	if err != nil {
		return domain.Destination{}, err
	}
	return domain.Destination{ID: th.ID, Name: name, Created: true}, nil
}

// textThreads creates standalone threads in a text channel
type textThreads struct{ threadIndex }

func (textThreads) strategy() string { return "text" }

func (t textThreads) create(ctx context.Context, name string) (domain.Destination, error) {
	th, err := t.ch.CreateThread(ctx, t.channelID, name)
	if err != nil {
		return domain.Destination{}, err
	}
	return domain.Destination{ID: th.ID, Name: name, Created: true}, nil
}

// starterThreads posts the starter text and opens a thread off that message
type starterThreads struct{ threadIndex }

func (starterThreads) strategy() string { return "starter" }

func (s starterThreads) create(ctx context.Context, name string) (domain.Destination, error) {
	msgID, err := s.ch.Send(ctx, s.channelID, StarterText)
	if err != nil {
		return domain.Destination{}, err
	}
	th, err := s.ch.StartThreadFromMessage(ctx, s.channelID, msgID, name)
	if err != nil {
		return domain.Destination{}, err
	}
	return domain.Destination{ID: th.ID, Name: name, Created: true}, nil
}

// strategies probes the audit channel and returns creation paths in order,
// native first and the starter message path last
func (s *Svc) strategies(ctx context.Context) ([]destinationStrategy, error) {
	idx := threadIndex{ch: s.ports.Channels, channelID: s.opts.ChannelID}
	shape, err := s.ports.Channels.Shape(ctx, s.opts.ChannelID)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "watchtower channel invalid or inaccessible")
	}
	switch shape {
	case domain.ShapeForum:
		return []destinationStrategy{forumPosts{idx}, starterThreads{idx}}, nil
	case domain.ShapeText:
		return []destinationStrategy{textThreads{idx}, starterThreads{idx}}, nil
	default:
		return []destinationStrategy{starterThreads{idx}}, nil
	}
}

// LocateDestination finds the thread named name in the audit channel or
// creates it. Lookup and creation run under a lock keyed on the channel so
// concurrent invocations never create the same name twice
func (s *Svc) LocateDestination(ctx context.Context, name string) (domain.Destination, error) {
	if name == "" {
		return domain.Destination{}, perr.InvalidArgf("destination name is empty")
	}
	log := logger.C(ctx).With().Str("destination", name).Logger()

	release, err := s.ports.Locker.Acquire(ctx, lockPrefix+s.opts.ChannelID)
	if err != nil {
		return domain.Destination{}, perr.Wrap(err, perr.ErrorCodeTimeout, "acquire destination lock")
	}
	defer release()

	strats, err := s.strategies(ctx)
	if err != nil {
		return domain.Destination{}, err
	}

	d, ok, err := strats[0].locateByName(ctx, name)
	if err != nil {
		destinations.WithLabelValues("lookup_failed", strats[0].strategy()).Inc()
		return domain.Destination{}, err
	}
	if ok {
		destinations.WithLabelValues("reused", strats[0].strategy()).Inc()
		return d, nil
	}

	var errs []error
	for _, st := range strats {
		d, err := st.create(ctx, name)
		if err == nil {
			destinations.WithLabelValues("created", st.strategy()).Inc()
			log.Info().Str("strategy", st.strategy()).Str("thread_id", d.ID).Msg("destination created")
			return d, nil
		}
		log.Warn().Err(err).Str("strategy", st.strategy()).Msg("destination create failed")
		errs = append(errs, err)
	}
	destinations.WithLabelValues("failed", "all").Inc()
	return domain.Destination{}, perr.Wrapf(errors.Join(errs...), perr.ErrorCodeUpstream, "create destination %q", name)
}

// post sends content to a destination through the shared thread surface
func (s *Svc) post(ctx context.Context, dest domain.Destination, content string) error {
	return threadIndex{ch: s.ports.Channels, channelID: s.opts.ChannelID}.post(ctx, dest, content)
}
