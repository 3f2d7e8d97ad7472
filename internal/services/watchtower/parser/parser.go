// Package parser turns a moderator bulk paste into offender records
//
// Grammar, one offender per line
//
//	identifier [points] [rule] | [modNotes] | [publicNotes]
//
// identifier is a <@id> mention, @id, or a 17 to 19 digit SteamID64. Any other
// token that carries digits is kept as an unknown identifier; a token without
// digits makes the line a parse error. points is read only from the token
// directly after the identifier and defaults to 0; numbers later in the rule
// text stay part of the rule
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"watchtower/internal/core/normalize"
	"watchtower/internal/services/watchtower/domain"
)

var (
	mentionRe = regexp.MustCompile(`^<@!?(\d+)>$`)
	atIDRe    = regexp.MustCompile(`^@(\d+)$`)
	steamRe   = regexp.MustCompile(`^\d{17,19}$`)
	nonDigit  = regexp.MustCompile(`\D`)
)

// Parse parses every line of text; blank lines are ignored and lines
// without an identifier are counted in Skipped
func Parse(text string) domain.ParseResult {
	var out domain.ParseResult
	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(normalize.Line(strings.TrimRight(raw, "\r")))
		if line == "" {
			continue
		}
		rec, ok := ParseLine(line)
		if !ok {
			out.Skipped++
			continue
		}
		rec.Line = i + 1
		out.Records = append(out.Records, rec)
	}
	return out
}

// ParseLine parses one non blank line
func ParseLine(line string) (domain.OffenderRecord, bool) {
	parts := strings.SplitN(line, "|", 3)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	fields := strings.Fields(parts[0])
	if len(fields) == 0 {
		return domain.OffenderRecord{}, false
	}

	raw, kind, ok := classify(fields[0])
	if !ok {
		return domain.OffenderRecord{}, false
	}

	rec := domain.OffenderRecord{IdentifierRaw: raw, IdentifierKind: kind}

	rest := fields[1:]
	if len(rest) > 0 {
		if n, ok := points(rest[0]); ok {
			rec.Points = n
			rest = rest[1:]
		}
	}
	rec.Rule = strings.Join(rest, " ")

	if len(parts) > 1 {
		rec.ModNotes = parts[1]
	}
	if len(parts) > 2 {
		rec.PublicNotes = parts[2]
	}
	return rec, true
}

func classify(tok string) (string, domain.IdentifierKind, bool) {
	tok = normalize.Token(tok)
	if m := mentionRe.FindStringSubmatch(tok); m != nil {
		return m[1], domain.KindDiscordMention, true
	}
	if m := atIDRe.FindStringSubmatch(tok); m != nil {
		return m[1], domain.KindDiscordMention, true
	}
	if steamRe.MatchString(tok) {
		return tok, domain.KindSteamID64, true
	}
	digits := nonDigit.ReplaceAllString(tok, "")
	if digits == "" {
		return "", "", false
	}
	return digits, domain.KindUnknown, true
}

func points(tok string) (int, bool) {
	if tok == "" || len(tok) > 9 {
		return 0, false
	}
	for _, r := range tok {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Format renders a record back into the paste grammar
func Format(r domain.OffenderRecord) string {
	var b strings.Builder
	switch r.IdentifierKind {
	case domain.KindDiscordMention:
		b.WriteString("<@" + r.IdentifierRaw + ">")
	default:
		b.WriteString(r.IdentifierRaw)
	}
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(r.Points))
	if r.Rule != "" {
		b.WriteByte(' ')
		b.WriteString(r.Rule)
	}
	switch {
	case r.PublicNotes != "":
		b.WriteString(" | " + r.ModNotes + " | " + r.PublicNotes)
	case r.ModNotes != "":
		b.WriteString(" | " + r.ModNotes)
	}
	return b.String()
}
