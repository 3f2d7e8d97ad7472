package domain

import (
	"context"
	"time"
)

// Invocation identifies one /resolve run
type Invocation struct {
	ID            string
	GuildID       string
	ChannelID     string
	TicketID      string
	ModeratorID   string
	ModeratorName string
}

// Attachment is a file reference on a chat message
type Attachment struct {
	Filename    string
	URL         string
	ContentType string
	Size        int64
}

// Message is a chat message as the core needs it
type Message struct {
	ID          string
	ChannelID   string
	AuthorID    string
	AuthorName  string
	Content     string
	Timestamp   time.Time
	Attachments []Attachment
}

// ChannelShape is the thread capability the audit channel exposes
type ChannelShape string

const (
	// ShapeForum channels hold posts created with a starter message
	ShapeForum ChannelShape = "forum"

	// ShapeText channels hold threads created directly or off a message
	ShapeText ChannelShape = "text"

	// ShapeUnsupported is anything else
	ShapeUnsupported ChannelShape = "unsupported"
)

// Thread is a thread or forum post inside the audit channel
type Thread struct {
	ID   string
	Name string
}

// EmbedField is one name/value pair on an embed
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a rich audit card
type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []EmbedField
	Timestamp   time.Time
}

// File is an outgoing direct attachment
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Directory resolves display names for discord users
type Directory interface {
	UserName(ctx context.Context, discordID int64) (string, error)
}

// History reads a channel conversation
type History interface {
	// Messages returns the whole channel history oldest first
	Messages(ctx context.Context, channelID string) ([]Message, error)
}

// Fetcher downloads attachment bytes
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Channels is the thread and message surface of the chat platform
type Channels interface {
	Shape(ctx context.Context, channelID string) (ChannelShape, error)
	ActiveThreads(ctx context.Context, channelID string) ([]Thread, error)
	ArchivedThreads(ctx context.Context, channelID string) ([]Thread, error)
	CreateForumPost(ctx context.Context, channelID, name, content string) (Thread, error)
	CreateThread(ctx context.Context, channelID, name string) (Thread, error)
	StartThreadFromMessage(ctx context.Context, channelID, messageID, name string) (Thread, error)
	Send(ctx context.Context, channelID, content string) (string, error)
	SendEmbed(ctx context.Context, channelID string, e Embed) error
	SendFiles(ctx context.Context, channelID, content string, files []File) error
	Delete(ctx context.Context, channelID, messageID string) error
}

// Conversation is the moderator facing side of one invocation
type Conversation interface {
	// Reply sends an ephemeral message to the moderator
	Reply(ctx context.Context, content string) error

	// AwaitReply blocks for the next message from the moderator in the
	// invocation channel; it returns a Timeout coded error when d passes
	AwaitReply(ctx context.Context, d time.Duration) (Message, error)
}

// ContentHost uploads a single file and returns its public url
type ContentHost interface {
	Upload(ctx context.Context, filename string, data []byte) (string, error)
}

// Scorer applies point penalties
type Scorer interface {
	Apply(ctx context.Context, req ScoreRequest) ScoreResult
}

// EventSink receives the analytics copy of each recorded infraction
type EventSink interface {
	Append(ctx context.Context, ev InfractionEvent) error
}

// InfractionQuery lists recorded infractions for an identity
type InfractionQuery interface {
	ListInfractions(ctx context.Context, steamID string, discordID int64, limit int) ([]InfractionRow, error)
}

// Resolver is the orchestrator facing port of the watchtower service
type Resolver interface {
	Resolve(ctx context.Context, inv Invocation, conv Conversation) Summary
}
