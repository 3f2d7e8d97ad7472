package discord

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	perr "watchtower/internal/platform/errors"
	"watchtower/internal/platform/logger"
	pstrings "watchtower/internal/platform/strings"
	"watchtower/internal/services/watchtower/domain"
)

const (
	// CommandName is the slash command that starts a resolve
	CommandName = "resolve"

	ticketOption = "ticket"
	busyText     = "A resolve is already waiting for your paste in this channel."
)

// Bot routes /resolve interactions to the resolver and pastes back to the
// conversation waiting on them
type Bot struct {
	s        Session
	resolver domain.Resolver
	guildID  string
	log      logger.Logger
	newID    func() string

	mu      sync.Mutex
	waiters map[waitKey]chan domain.Message
	base    context.Context
	wg      sync.WaitGroup
}

// waitKey scopes a pending paste to one moderator in one channel
type waitKey struct {
	channelID string
	userID    string
}

// NewBot wires r to s; guildID scopes the command registration and may be empty
func NewBot(s Session, r domain.Resolver, guildID string) *Bot {
	return &Bot{
		s:        s,
		resolver: r,
		guildID:  guildID,
		log:      *logger.Named("discord"),
		newID:    func() string { return uuid.NewString() },
		waiters:  map[waitKey]chan domain.Message{},
		base:     context.Background(),
	}
}

// Run opens the gateway and serves until ctx is done, then waits for
// in flight resolves to unwind
func (b *Bot) Run(ctx context.Context) error {
	b.mu.Lock()
	b.base = ctx
	b.mu.Unlock()

	removes := []func(){
		b.s.AddHandler(b.onReady),
		b.s.AddHandler(b.onInteraction),
		b.s.AddHandler(b.onMessage),
	}
	defer func() {
		for _, rm := range removes {
			rm()
		}
	}()

	if err := b.s.Open(); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "open discord gateway")
	}
	b.log.Info().Msg("discord gateway open")

	<-ctx.Done()
	err := b.s.Close()
	b.wg.Wait()
	b.log.Info().Msg("discord gateway closed")
	return err
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	if r.User == nil {
		return
	}
	_, err := b.s.ApplicationCommandCreate(r.User.ID, b.guildID, &discordgo.ApplicationCommand{
		Name:        CommandName,
		Description: "Bulk log offenders from this ticket to Watchtower",
		Options: []*discordgo.ApplicationCommandOption{{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        ticketOption,
			Description: "Ticket id shown on the resolution card",
			Required:    false,
		}},
	})
	if err != nil {
		b.log.Error().Err(err).Msg("register resolve command failed")
		return
	}
	b.log.Info().Str("guild_id", b.guildID).Msg("resolve command registered")
}

func (b *Bot) onInteraction(_ *discordgo.Session, ic *discordgo.InteractionCreate) {
	if ic.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := ic.ApplicationCommandData()
	if data.Name != CommandName {
		return
	}
	i := ic.Interaction

	err := b.s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		b.log.Error().Err(err).Msg("defer resolve interaction failed")
		return
	}

	inv := domain.Invocation{
		ID:        b.newID(),
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
	}
	for _, o := range data.Options {
		if o.Name == ticketOption {
			inv.TicketID = o.StringValue()
		}
	}
	if u := interactionUser(i); u != nil {
		inv.ModeratorID = u.ID
		inv.ModeratorName = u.Username
	}

	b.mu.Lock()
	ctx := b.base
	b.mu.Unlock()

	conv, ok := b.open(i, inv)
	if !ok {
		_ = conv.Reply(ctx, busyText)
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer conv.close()
		b.resolver.Resolve(ctx, inv, conv)
	}()
}

func (b *Bot) onMessage(_ *discordgo.Session, mc *discordgo.MessageCreate) {
	if mc.Author == nil || mc.Author.Bot {
		return
	}
	key := waitKey{channelID: mc.ChannelID, userID: mc.Author.ID}
	b.mu.Lock()
	ch, ok := b.waiters[key]
	if ok {
		delete(b.waiters, key)
	}
	b.mu.Unlock()
	if ok {
		ch <- toMessage(mc.Message)
	}
}

// open registers the paste waiter before the prompt goes out so a fast
// paste is never missed; ok is false when the key is already waiting
func (b *Bot) open(i *discordgo.Interaction, inv domain.Invocation) (*conversation, bool) {
	c := &conversation{b: b, i: i, key: waitKey{channelID: inv.ChannelID, userID: inv.ModeratorID}, ch: make(chan domain.Message, 1)}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, busy := b.waiters[c.key]; busy {
		return c, false
	}
	b.waiters[c.key] = c.ch
	return c, true
}

func interactionUser(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

// conversation implements domain.Conversation over interaction followups
type conversation struct {
	b   *Bot
	i   *discordgo.Interaction
	key waitKey
	ch  chan domain.Message
}

func (c *conversation) Reply(ctx context.Context, content string) error {
	_, err := c.b.s.FollowupMessageCreate(c.i, true, &discordgo.WebhookParams{
		Content: pstrings.Truncate(content, MessageLimit),
		Flags:   discordgo.MessageFlagsEphemeral,
	}, discordgo.WithContext(ctx))
	return wrap(err, "followup")
}

func (c *conversation) AwaitReply(ctx context.Context, d time.Duration) (domain.Message, error) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case m := <-c.ch:
		return m, nil
	case <-t.C:
		return domain.Message{}, perr.Timeoutf("no paste within %s", d)
	case <-ctx.Done():
		return domain.Message{}, perr.Wrap(ctx.Err(), perr.ErrorCodeUnavailable, "resolve cancelled")
	}
}

// close drops the waiter if the paste never arrived
func (c *conversation) close() {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	if cur, ok := c.b.waiters[c.key]; ok && cur == c.ch {
		delete(c.b.waiters, c.key)
	}
}
