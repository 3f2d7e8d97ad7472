package discord

import (
	"bytes"
	"context"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"

	pstrings "watchtower/internal/platform/strings"
	"watchtower/internal/services/watchtower/domain"
)

const (
	// MessageLimit is the longest plain message content the platform accepts
	MessageLimit = 2000

	pageSize        = 100
	maxHistory      = 10000
	maxArchivePages = 50
	archiveMinutes  = 10080
)

// Platform implements the History, Directory and Channels ports over a session
type Platform struct {
	s Session
}

// NewPlatform wraps s
func NewPlatform(s Session) *Platform { return &Platform{s: s} }

// UserName implements domain.Directory
func (p *Platform) UserName(ctx context.Context, discordID int64) (string, error) {
	u, err := p.s.User(strconv.FormatInt(discordID, 10), discordgo.WithContext(ctx))
	if err != nil {
		return "", wrap(err, "fetch user")
	}
	return displayName(u), nil
}

// Messages implements domain.History by paging backwards from the newest message
func (p *Platform) Messages(ctx context.Context, channelID string) ([]domain.Message, error) {
	var (
		out    []domain.Message
		before string
	)
	for len(out) < maxHistory {
		page, err := p.s.ChannelMessages(channelID, pageSize, before, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, wrap(err, "read channel history")
		}
		for _, m := range page {
			out = append(out, toMessage(m))
		}
		if len(page) < pageSize {
			break
		}
		before = page[len(page)-1].ID
	}
	// pages arrive newest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Shape implements domain.Channels
func (p *Platform) Shape(ctx context.Context, channelID string) (domain.ChannelShape, error) {
	ch, err := p.s.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return "", wrap(err, "fetch channel")
	}
	switch ch.Type {
	case discordgo.ChannelTypeGuildForum:
		return domain.ShapeForum, nil
	case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews:
		return domain.ShapeText, nil
	default:
		return domain.ShapeUnsupported, nil
	}
}

// ActiveThreads implements domain.Channels; the guild listing is filtered to channelID
func (p *Platform) ActiveThreads(ctx context.Context, channelID string) ([]domain.Thread, error) {
	ch, err := p.s.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrap(err, "fetch channel")
	}
	list, err := p.s.GuildThreadsActive(ch.GuildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrap(err, "list active threads")
	}
	var out []domain.Thread
	for _, th := range list.Threads {
		if th.ParentID == channelID {
			out = append(out, domain.Thread{ID: th.ID, Name: th.Name})
		}
	}
	return out, nil
}

// ArchivedThreads implements domain.Channels
func (p *Platform) ArchivedThreads(ctx context.Context, channelID string) ([]domain.Thread, error) {
	var (
		out    []domain.Thread
		before *time.Time
	)
	for range maxArchivePages {
		list, err := p.s.ThreadsArchived(channelID, before, pageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, wrap(err, "list archived threads")
		}
		for _, th := range list.Threads {
			out = append(out, domain.Thread{ID: th.ID, Name: th.Name})
		}
		if !list.HasMore || len(list.Threads) == 0 {
			break
		}
		last := list.Threads[len(list.Threads)-1]
		if last.ThreadMetadata == nil {
			break
		}
		ts := last.ThreadMetadata.ArchiveTimestamp
		before = &ts
	}
	return out, nil
}

// CreateForumPost implements domain.Channels
func (p *Platform) CreateForumPost(ctx context.Context, channelID, name, content string) (domain.Thread, error) {
	th, err := p.s.ForumThreadStart(channelID, name, archiveMinutes, content, discordgo.WithContext(ctx))
	if err != nil {
		return domain.Thread{}, wrap(err, "create forum post")
	}
	return domain.Thread{ID: th.ID, Name: th.Name}, nil
}

// CreateThread implements domain.Channels
func (p *Platform) CreateThread(ctx context.Context, channelID, name string) (domain.Thread, error) {
	th, err := p.s.ThreadStart(channelID, name, discordgo.ChannelTypeGuildPublicThread, archiveMinutes, discordgo.WithContext(ctx))
	if err != nil {
		return domain.Thread{}, wrap(err, "create thread")
	}
	return domain.Thread{ID: th.ID, Name: th.Name}, nil
}

// StartThreadFromMessage implements domain.Channels
func (p *Platform) StartThreadFromMessage(ctx context.Context, channelID, messageID, name string) (domain.Thread, error) {
	th, err := p.s.MessageThreadStart(channelID, messageID, name, archiveMinutes, discordgo.WithContext(ctx))
	if err != nil {
		return domain.Thread{}, wrap(err, "start thread from message")
	}
	return domain.Thread{ID: th.ID, Name: th.Name}, nil
}

// Send implements domain.Channels; content past the platform limit is cut
func (p *Platform) Send(ctx context.Context, channelID, content string) (string, error) {
	m, err := p.s.ChannelMessageSend(channelID, pstrings.Truncate(content, MessageLimit), discordgo.WithContext(ctx))
	if err != nil {
		return "", wrap(err, "send message")
	}
	return m.ID, nil
}

// SendEmbed implements domain.Channels
func (p *Platform) SendEmbed(ctx context.Context, channelID string, e domain.Embed) error {
	_, err := p.s.ChannelMessageSendEmbed(channelID, toEmbed(e), discordgo.WithContext(ctx))
	return wrap(err, "send embed")
}

// SendFiles implements domain.Channels
func (p *Platform) SendFiles(ctx context.Context, channelID, content string, files []domain.File) error {
	ms := &discordgo.MessageSend{Content: pstrings.Truncate(content, MessageLimit)}
	for _, f := range files {
		ms.Files = append(ms.Files, &discordgo.File{
			Name:        f.Name,
			ContentType: pstrings.FirstNonBlank(f.ContentType, "application/octet-stream"),
			Reader:      bytes.NewReader(f.Data),
		})
	}
	_, err := p.s.ChannelMessageSendComplex(channelID, ms, discordgo.WithContext(ctx))
	return wrap(err, "send files")
}

// Delete implements domain.Channels
func (p *Platform) Delete(ctx context.Context, channelID, messageID string) error {
	return wrap(p.s.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)), "delete message")
}
