package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	pstrings "watchtower/internal/platform/strings"
	"watchtower/internal/services/watchtower/domain"
)

// platform limits on embeds
const (
	embedDescriptionLimit = 4096
	embedFieldLimit       = 1024
	contextSnippetLimit   = 700
	truncatedSuffix       = "\n...(truncated)"

	colorPenalty = 0xFF0000
	colorNotice  = 0xFFA500
)

// PromptText is sent when a resolve starts
const PromptText = "Bulk paste offenders (one per line):\n" +
	"`@DiscordUser [points] [rule] | [mod_notes] | [notes]`\n" +
	"`SteamID64     [points] [rule] | [mod_notes] | [notes]`\n" +
	"- Points optional (default 0)\n" +
	"- Rule optional (recommended for repeat detection)\n" +
	"- Mod notes = internal staff only\n" +
	"- Notes = public in embed\n" +
	"- **SteamID64 works even if not linked to Discord**"

// TimeoutText is the reply when no paste arrives in time
const TimeoutText = "Timed out waiting for offenders paste."

// pointsFailedText flags a failed or credential skipped scoring call
const pointsFailedText = "⚠️ Points application failed or was skipped."

// RenderContext renders the last n messages oldest first for the embed field
func RenderContext(msgs []domain.Message, n int) string {
	msgs = chronological(msgs)
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		text := strings.TrimSpace(m.Content)
		if text == "" && len(m.Attachments) > 0 {
			text = fmt.Sprintf("[%d attachment(s)]", len(m.Attachments))
		}
		if text == "" {
			continue
		}
		if len([]rune(text)) > contextSnippetLimit {
			text = pstrings.Truncate(text, contextSnippetLimit-3) + "..."
		}
		lines = append(lines, pstrings.FirstNonBlank(m.AuthorName, "Unknown")+": "+text)
	}
	if len(lines) == 0 {
		return "—"
	}
	return fitField(strings.Join(lines, "\n"))
}

// fitField cuts s to the field limit at the last full line it can keep
func fitField(s string) string {
	if len([]rune(s)) <= embedFieldLimit {
		return s
	}
	cut := pstrings.Truncate(s, embedFieldLimit-len([]rune(truncatedSuffix)))
	if i := strings.LastIndex(cut, "\n"); i > 0 {
		cut = cut[:i]
	}
	return cut + truncatedSuffix
}

// BuildEmbed renders the resolution card for one record
func BuildEmbed(inv domain.Invocation, rec domain.OffenderRecord, id domain.Identity, flag domain.RepeatFlag, recent string, at time.Time) domain.Embed {
	var parts []string
	if rec.Rule != "" {
		parts = append(parts, "Rule: "+rec.Rule)
	}
	if rec.PublicNotes != "" {
		parts = append(parts, "Ticket Text: "+rec.PublicNotes)
	}
	desc := strings.Join(parts, "\n")
	if desc == "" {
		desc = "—"
	}
	if len([]rune(desc)) > embedDescriptionLimit {
		desc = pstrings.Truncate(desc, embedDescriptionLimit-len([]rune(truncatedSuffix))) + truncatedSuffix
	}

	title := "Ticket Resolution"
	if inv.TicketID != "" {
		title += " #" + inv.TicketID
	}
	color := colorNotice
	if rec.Points > 0 {
		color = colorPenalty
	}

	e := domain.Embed{
		Title:       title,
		Description: desc,
		Color:       color,
		Timestamp:   at,
		Fields: []domain.EmbedField{
			{Name: "Discord", Value: id.DiscordLabel(), Inline: true},
			{Name: "SteamID", Value: pstrings.FirstNonBlank(id.SteamID, "N/A"), Inline: true},
			{Name: "IGN", Value: pstrings.FirstNonBlank(id.IGN, "N/A"), Inline: true},
			{Name: "Points Applied", Value: strconv.Itoa(rec.Points), Inline: true},
			{Name: "Recent Context (latest messages)", Value: pstrings.FirstNonBlank(recent, "—")},
		},
	}
	switch flag.Kind {
	case domain.RepeatSameRule:
		e.Fields = append(e.Fields, domain.EmbedField{
			Name:  flag.Label(),
			Value: fmt.Sprintf("Yes, %d previous infraction(s) for this rule", flag.PriorCount),
		})
	case domain.RepeatPriorHistory:
		e.Fields = append(e.Fields, domain.EmbedField{
			Name:  flag.Label(),
			Value: "Infraction history unavailable; user has prior points",
		})
	}
	return e
}

// ScoreLines renders the scoring outcome posted under the embed; empty means nothing to post
func ScoreLines(rec domain.OffenderRecord, res domain.ScoreResult) string {
	switch res.Status {
	case domain.ScoreFailed:
		return pointsFailedText
	case domain.ScoreSkipped:
		if rec.Points > 0 {
			return pointsFailedText
		}
		return ""
	}
	var lines []string
	if res.TotalPoints != nil {
		lines = append(lines, fmt.Sprintf("New total: **%v** points", res.TotalPoints))
	}
	if res.Action != nil && fmt.Sprint(res.Action) != "" {
		lines = append(lines, fmt.Sprintf("Escalation: %v", res.Action))
	}
	return strings.Join(lines, "\n")
}

// SummaryText renders the final ephemeral reply
func SummaryText(sum domain.Summary) string {
	var (
		b                             strings.Builder
		failed, unrecorded, scoreErrs []string
	)
	for _, r := range sum.Results {
		name := recordName(r)
		if r.Status == domain.RecordFailed {
			failed = append(failed, name)
			continue
		}
		if !r.Persisted {
			unrecorded = append(unrecorded, name)
		}
		if r.Score.Status == domain.ScoreFailed {
			scoreErrs = append(scoreErrs, name+": failed("+scoreCause(r.Score)+")")
		}
	}

	fmt.Fprintf(&b, "Logged %d offender(s) to Watchtower.", sum.Logged)
	if sum.ParseSkips > 0 {
		fmt.Fprintf(&b, "\nSkipped %d unparsable line(s).", sum.ParseSkips)
	}
	if sum.Failed > 0 {
		fmt.Fprintf(&b, "\nFailed %d: %s", sum.Failed, strings.Join(failed, ", "))
	}
	if len(unrecorded) > 0 {
		fmt.Fprintf(&b, "\nNot recorded in infraction history: %s", strings.Join(unrecorded, ", "))
	}
	if sum.ScoreFailed > 0 {
		fmt.Fprintf(&b, "\nPoints failed for %d offender(s): %s", sum.ScoreFailed, strings.Join(scoreErrs, ", "))
	}
	if sum.ScoreSkips > 0 {
		fmt.Fprintf(&b, "\nPoints skipped for %d offender(s).", sum.ScoreSkips)
	}
	return b.String()
}

func recordName(r domain.RecordResult) string {
	return pstrings.FirstNonBlank(r.Identity.DestinationName(), r.Record.IdentifierRaw)
}

// scoreCause is the status code of the last attempt, else the error
func scoreCause(res domain.ScoreResult) string {
	switch {
	case res.StatusCode > 0:
		return strconv.Itoa(res.StatusCode)
	case res.Err != nil:
		return pstrings.Truncate(res.Err.Error(), 100)
	default:
		return pstrings.FirstNonBlank(res.Reason, "unknown")
	}
}
