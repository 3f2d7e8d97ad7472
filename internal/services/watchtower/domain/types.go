// Package domain holds watchtower core types independent of transport or storage
package domain

import (
	"fmt"
	"strconv"
	"time"

	pstrings "watchtower/internal/platform/strings"
)

// IdentifierKind marks which namespace the first token of a line belongs to
type IdentifierKind string

const (
	// KindDiscordMention is a <@id> style mention or @id token
	KindDiscordMention IdentifierKind = "discordMention"

	// KindSteamID64 is a bare 17 to 19 digit number
	KindSteamID64 IdentifierKind = "steamId64"

	// KindUnknown is any other token carrying digits
	KindUnknown IdentifierKind = "unknown"
)

// UnresolvedName is shown when a discord user cannot be looked up
const UnresolvedName = "Unresolved User"

// MaxDestinationName is the platform cap on thread names
const MaxDestinationName = 100

// OffenderRecord is one parsed line of the moderator paste
type OffenderRecord struct {
	IdentifierRaw  string
	IdentifierKind IdentifierKind
	Points         int
	Rule           string
	ModNotes       string
	PublicNotes    string

	// Line is the 1 based input line the record came from
	Line int
}

// Reason is the string persisted and matched for repeat detection
func (r OffenderRecord) Reason() string {
	switch {
	case r.Rule != "":
		return r.Rule
	case r.PublicNotes != "":
		return r.PublicNotes
	default:
		return "Points:" + strconv.Itoa(r.Points)
	}
}

// ParseResult is the ordered output of the line parser
type ParseResult struct {
	Records []OffenderRecord

	// Skipped counts non blank lines that yielded no identifier
	Skipped int
}

// Identity is the resolved cross namespace view of one offender
type Identity struct {
	DiscordID int64
	SteamID   string
	IGN       string

	// DiscordName is empty when no discord id is known or the lookup failed
	DiscordName string
}

// HasDiscord reports whether a discord id is known
func (i Identity) HasDiscord() bool { return i.DiscordID != 0 }

// DiscordLabel renders the discord side for display
func (i Identity) DiscordLabel() string {
	switch {
	case !i.HasDiscord():
		return "N/A"
	case i.DiscordName != "":
		return fmt.Sprintf("%s (<@%d>)", i.DiscordName, i.DiscordID)
	default:
		return fmt.Sprintf("%s (<@%d>)", UnresolvedName, i.DiscordID)
	}
}

// DestinationName is the deterministic audit thread name for the identity
func (i Identity) DestinationName() string {
	var name string
	switch {
	case i.DiscordName != "" && i.SteamID != "":
		name = i.DiscordName + " | " + i.SteamID
	case i.SteamID != "":
		name = i.SteamID
	case i.DiscordName != "":
		name = i.DiscordName
	case i.HasDiscord():
		name = strconv.FormatInt(i.DiscordID, 10)
	}
	return pstrings.Truncate(name, MaxDestinationName)
}

// RepeatKind says how strong the repeat signal is
type RepeatKind string

const (
	// RepeatNone means no prior history was found
	RepeatNone RepeatKind = "none"

	// RepeatSameRule means at least one prior infraction carries the same reason
	RepeatSameRule RepeatKind = "same_rule"

	// RepeatPriorHistory means the infraction store was unavailable and the
	// user's point total is above zero
	RepeatPriorHistory RepeatKind = "prior_history"
)

// RepeatFlag is the per record repeat signal
type RepeatFlag struct {
	Kind       RepeatKind
	PriorCount int
}

// Repeat reports whether any prior history was detected
func (f RepeatFlag) Repeat() bool { return f.Kind == RepeatSameRule || f.Kind == RepeatPriorHistory }

// Label renders the flag for the audit embed, empty when there is nothing to show
func (f RepeatFlag) Label() string {
	switch f.Kind {
	case RepeatSameRule:
		return "Repeat Offender (same rule)"
	case RepeatPriorHistory:
		return "Prior History (no rule match)"
	default:
		return ""
	}
}

// EvidenceKind is the type of an evidence item
type EvidenceKind string

const (
	// EvidenceTranscript is the rendered conversation text
	EvidenceTranscript EvidenceKind = "transcript"

	// EvidenceAttachment is one file attached to a ticket message
	EvidenceAttachment EvidenceKind = "attachment"
)

// EvidenceItem is one artifact to relay to the content host
type EvidenceItem struct {
	Kind        EvidenceKind
	Author      string
	Timestamp   time.Time
	MessageText string

	Filename    string
	ContentType string

	// SourceURL is where attachment bytes are fetched from
	SourceURL string

	// Data holds bytes already in memory (transcripts)
	Data []byte

	SizeBytes int64
}

// UploadOutcome is the terminal state of one evidence item
type UploadOutcome string

const (
	// OutcomeHosted means the content host returned a url
	OutcomeHosted UploadOutcome = "hosted"

	// OutcomeFallbackAttached means the file was attached directly to the destination
	OutcomeFallbackAttached UploadOutcome = "fallback_attached"

	// OutcomeSkipped means the item was not relayed
	OutcomeSkipped UploadOutcome = "skipped"
)

// UploadResult pairs an item with its outcome
type UploadResult struct {
	Item    EvidenceItem
	Outcome UploadOutcome
	URL     string
	Reason  string
}

// Destination is an audit thread or forum post
type Destination struct {
	ID      string
	Name    string
	Created bool
}

// ScoreStatus is the outcome of a scoring call
type ScoreStatus string

const (
	// ScoreApplied means the scoring service answered 2xx
	ScoreApplied ScoreStatus = "applied"

	// ScoreSkipped means no call was made
	ScoreSkipped ScoreStatus = "skipped"

	// ScoreFailed means the call failed or retries ran out
	ScoreFailed ScoreStatus = "failed"
)

// ScoreRequest is the body sent to the scoring service
type ScoreRequest struct {
	SteamID string `json:"steamid" validate:"required"`
	Points  int    `json:"points"  validate:"min=1"`
	Reason  string `json:"reason"  validate:"required"`
	Notes   string `json:"notes"`
	Issuer  string `json:"issuer"  validate:"required"`
}

// ScoreResult is the folded outcome of one scoring attempt
type ScoreResult struct {
	Status     ScoreStatus
	StatusCode int
	Attempts   int
	Reason     string
	Err        error

	// Optional fields passed through from the service response
	TotalPoints    any
	Action         any
	PreviousPoints any
}

// InfractionRow is one persisted infraction
type InfractionRow struct {
	ID        int64  `json:"id"`
	SteamID   string `json:"steamid,omitempty"`
	DiscordID int64  `json:"discordid,omitempty,string"`
	Reason    string `json:"reason"`
	Timestamp int64  `json:"timestamp"`
}

// InfractionEvent is the analytics copy of a recorded infraction
type InfractionEvent struct {
	InvocationID string
	TicketID     string
	SteamID      string
	DiscordID    int64
	Reason       string
	Points       int
	Repeat       RepeatKind
	Issuer       string
	At           time.Time
}

// UserRow is a linked account row
type UserRow struct {
	DiscordID   int64
	SteamID     string
	IGN         string
	TotalPoints int
}

// RecordStatus is the terminal state of one offender record
type RecordStatus string

const (
	// RecordLogged means a destination was found or created and content posted
	RecordLogged RecordStatus = "logged"

	// RecordFailed means the record could not reach a destination
	RecordFailed RecordStatus = "failed"
)

// RecordResult is the folded outcome of processing one offender
type RecordResult struct {
	Record      OffenderRecord
	Identity    Identity
	Repeat      RepeatFlag
	Destination Destination
	Score       ScoreResult
	Status      RecordStatus
	Persisted   bool
	Evidence    []UploadResult
	Err         error
}

// Summary is what the moderator sees once an invocation finishes
type Summary struct {
	Parsed      int
	ParseSkips  int
	Logged      int
	Failed      int
	ScoreFailed int
	ScoreSkips  int
	Results     []RecordResult
	TimedOut    bool
}
