package service

import (
	"fmt"
	"sort"
	"strings"

	"watchtower/internal/services/watchtower/domain"
)

const stampLayout = "2006-01-02 15:04:05 UTC"

// Evidence is what gets relayed once per invocation
type Evidence struct {
	// Items are attachments in conversation order
	Items      []domain.EvidenceItem
	Transcript domain.EvidenceItem
}

// chronological returns a copy of msgs ordered oldest first; equal stamps keep input order
func chronological(msgs []domain.Message) []domain.Message {
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// CollectEvidence builds the transcript and one item per attachment
func CollectEvidence(inv domain.Invocation, msgs []domain.Message) Evidence {
	msgs = chronological(msgs)

	var (
		ev Evidence
		tb strings.Builder
	)
	label := inv.TicketID
	if label == "" {
		label = inv.ChannelID
	}
	fmt.Fprintf(&tb, "Ticket %s transcript\n%d messages\n\n", label, len(msgs))

	for _, m := range msgs {
		fmt.Fprintf(&tb, "[%s] %s: %s\n", m.Timestamp.UTC().Format(stampLayout), m.AuthorName, m.Content)
		for _, a := range m.Attachments {
			fmt.Fprintf(&tb, "    [attachment] %s (%s)\n", a.Filename, a.URL)
			ev.Items = append(ev.Items, domain.EvidenceItem{
				Kind:        domain.EvidenceAttachment,
				Author:      m.AuthorName,
				Timestamp:   m.Timestamp,
				MessageText: strings.TrimSpace(m.Content),
				Filename:    a.Filename,
				ContentType: a.ContentType,
				SourceURL:   a.URL,
				SizeBytes:   a.Size,
			})
		}
	}

	data := []byte(tb.String())
	ev.Transcript = domain.EvidenceItem{
		Kind:        domain.EvidenceTranscript,
		Author:      "watchtower",
		Filename:    "transcript-" + label + ".txt",
		ContentType: "text/plain; charset=utf-8",
		Data:        data,
		SizeBytes:   int64(len(data)),
	}
	if n := len(msgs); n > 0 {
		ev.Transcript.Timestamp = msgs[n-1].Timestamp
	}
	return ev
}
