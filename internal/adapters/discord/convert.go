package discord

import (
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"

	perr "watchtower/internal/platform/errors"
	"watchtower/internal/services/watchtower/domain"
)

func displayName(u *discordgo.User) string {
	if u == nil {
		return ""
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

func toMessage(m *discordgo.Message) domain.Message {
	out := domain.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
	if m.Author != nil {
		out.AuthorID = m.Author.ID
		out.AuthorName = displayName(m.Author)
	}
	if m.Member != nil && m.Member.Nick != "" {
		out.AuthorName = m.Member.Nick
	}
	for _, a := range m.Attachments {
		out.Attachments = append(out.Attachments, domain.Attachment{
			Filename:    a.Filename,
			URL:         a.URL,
			ContentType: a.ContentType,
			Size:        int64(a.Size),
		})
	}
	return out
}

func toEmbed(e domain.Embed) *discordgo.MessageEmbed {
	out := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
	}
	if !e.Timestamp.IsZero() {
		out.Timestamp = e.Timestamp.UTC().Format(time.RFC3339)
	}
	for _, f := range e.Fields {
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	return out
}

// wrap maps REST failures onto project codes; nil stays nil
func wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		switch rest.Response.StatusCode {
		case http.StatusNotFound:
			return perr.Wrap(err, perr.ErrorCodeNotFound, msg)
		case http.StatusForbidden, http.StatusUnauthorized:
			return perr.Wrap(err, perr.ErrorCodeUnauthorized, msg)
		case http.StatusTooManyRequests:
			return perr.Wrap(err, perr.ErrorCodeTooManyRequests, msg)
		}
	}
	return perr.Wrap(err, perr.ErrorCodeUpstream, msg)
}
