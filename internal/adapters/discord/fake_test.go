package discord

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// fakeSession is an in memory Session; unset lookups return errors
type fakeSession struct {
	mu sync.Mutex

	users    map[string]*discordgo.User
	channels map[string]*discordgo.Channel
	history  []*discordgo.Message // newest first
	active   []*discordgo.Channel
	archived []*discordgo.Channel // newest archive first

	archivedCalls []*time.Time
	historyCalls  []string

	seq       int
	sent      []string
	embeds    []*discordgo.MessageEmbed
	complex   []*discordgo.MessageSend
	fileBytes [][]byte
	deleted   []string
	threads   []string
	responds  []*discordgo.InteractionResponse
	followups []*discordgo.WebhookParams
	commands  []*discordgo.ApplicationCommand
	handlers  int
	opened    bool
	closed    bool
	sendErr   error
}

func (f *fakeSession) id() string { f.seq++; return fmt.Sprintf("m%d", f.seq) }

func (f *fakeSession) Open() error { f.opened = true; return nil }
func (f *fakeSession) Close() error { f.closed = true; return nil }
func (f *fakeSession) AddHandler(any) func() { f.handlers++; return func() {} }

func (f *fakeSession) User(id string, _ ...discordgo.RequestOption) (*discordgo.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, errors.New("unknown user")
}

func (f *fakeSession) Channel(id string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if c, ok := f.channels[id]; ok {
		return c, nil
	}
	return nil, errors.New("unknown channel")
}

func (f *fakeSession) ChannelMessages(_ string, limit int, beforeID, _, _ string, _ ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	f.historyCalls = append(f.historyCalls, beforeID)
	start := 0
	if beforeID != "" {
		for i, m := range f.history {
			if m.ID == beforeID {
				start = i + 1
			}
		}
	}
	end := min(start+limit, len(f.history))
	return f.history[start:end], nil
}

func (f *fakeSession) GuildThreadsActive(string, ...discordgo.RequestOption) (*discordgo.ThreadsList, error) {
	return &discordgo.ThreadsList{Threads: f.active}, nil
}

func (f *fakeSession) ThreadsArchived(_ string, before *time.Time, limit int, _ ...discordgo.RequestOption) (*discordgo.ThreadsList, error) {
	f.archivedCalls = append(f.archivedCalls, before)
	var page []*discordgo.Channel
	for _, th := range f.archived {
		if before == nil || th.ThreadMetadata.ArchiveTimestamp.Before(*before) {
			page = append(page, th)
		}
	}
	more := len(page) > limit
	if more {
		page = page[:limit]
	}
	return &discordgo.ThreadsList{Threads: page, HasMore: more}, nil
}

func (f *fakeSession) newThread(name string) *discordgo.Channel {
	f.threads = append(f.threads, name)
	return &discordgo.Channel{ID: f.id(), Name: name}
}

func (f *fakeSession) ForumThreadStart(_, name string, _ int, _ string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	return f.newThread(name), nil
}

func (f *fakeSession) ThreadStart(_, name string, _ discordgo.ChannelType, _ int, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	return f.newThread(name), nil
}

func (f *fakeSession) MessageThreadStart(_, _ string, name string, _ int, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	return f.newThread(name), nil
}

func (f *fakeSession) ChannelMessageSend(_ string, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, content)
	return &discordgo.Message{ID: f.id()}, nil
}

func (f *fakeSession) ChannelMessageSendEmbed(_ string, e *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.embeds = append(f.embeds, e)
	return &discordgo.Message{ID: f.id()}, nil
}

func (f *fakeSession) ChannelMessageSendComplex(_ string, ms *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.complex = append(f.complex, ms)
	for _, file := range ms.Files {
		b, _ := io.ReadAll(file.Reader)
		f.fileBytes = append(f.fileBytes, b)
	}
	return &discordgo.Message{ID: f.id()}, nil
}

func (f *fakeSession) ChannelMessageDelete(_, id string, _ ...discordgo.RequestOption) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeSession) InteractionRespond(_ *discordgo.Interaction, r *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responds = append(f.responds, r)
	return nil
}

func (f *fakeSession) FollowupMessageCreate(_ *discordgo.Interaction, _ bool, p *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.followups = append(f.followups, p)
	return &discordgo.Message{}, nil
}

func (f *fakeSession) ApplicationCommandCreate(_, _ string, cmd *discordgo.ApplicationCommand, _ ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error) {
	f.commands = append(f.commands, cmd)
	return cmd, nil
}

func (f *fakeSession) followupContents() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.followups))
	for i, p := range f.followups {
		out[i] = p.Content
	}
	return out
}
