package service

import (
	"context"

	perr "watchtower/internal/platform/errors"
	"watchtower/internal/platform/logger"
	"watchtower/internal/services/watchtower/domain"
	"watchtower/internal/services/watchtower/parser"
)

// state names the orchestrator phase, used only for logging
type state string

const (
	statePrompting     state = "prompting"
	stateAwaitingInput state = "awaiting_input"
	stateParsing       state = "parsing"
	stateProcessing    state = "processing"
	stateSummarizing   state = "summarizing"
	stateDone          state = "done"
)

const contextUnavailable = "Context unavailable."

// Resolve runs one invocation end to end. It never returns an error; every
// failure is folded into the summary the moderator receives
func (s *Svc) Resolve(ctx context.Context, inv domain.Invocation, conv domain.Conversation) domain.Summary {
	ctx = logger.WithInvocation(ctx, inv.ID, inv.GuildID)
	log := logger.C(ctx).With().Str("ticket_channel", inv.ChannelID).Str("moderator", inv.ModeratorName).Logger()
	enter := func(st state) { log.Debug().Str("state", string(st)).Msg("resolve state") }

	var sum domain.Summary

	enter(statePrompting)
	if err := conv.Reply(ctx, PromptText); err != nil {
		log.Warn().Err(err).Msg("prompt failed")
	}

	enter(stateAwaitingInput)
	paste, err := conv.AwaitReply(ctx, s.opts.PasteTimeout)
	if err != nil {
		sum.TimedOut = true
		text := TimeoutText
		status := "timeout"
		if !perr.IsCode(err, perr.ErrorCodeTimeout) {
			text = "Could not read the offenders paste."
			status = "no_input"
			log.Warn().Err(err).Msg("awaiting paste failed")
		}
		invocations.WithLabelValues(status).Inc()
		if rerr := conv.Reply(ctx, text); rerr != nil {
			log.Warn().Err(rerr).Msg("timeout reply failed")
		}
		enter(stateDone)
		return sum
	}
	if err := s.ports.Channels.Delete(ctx, paste.ChannelID, paste.ID); err != nil {
		log.Warn().Err(err).Msg("paste delete failed")
	}

	enter(stateParsing)
	parsed := parser.Parse(paste.Content)
	sum.Parsed = len(parsed.Records)
	sum.ParseSkips = parsed.Skipped
	parseSkips.Add(float64(parsed.Skipped))

	var (
		recent   = contextUnavailable
		evidence *Evidence
	)
	history, err := s.ports.History.Messages(ctx, inv.ChannelID)
	if err != nil {
		log.Warn().Err(err).Msg("ticket history unavailable")
	} else {
		history = withoutMessage(history, paste.ID)
		recent = RenderContext(history, s.opts.ContextMessages)
		ev := CollectEvidence(inv, history)
		evidence = &ev
	}

	for i, rec := range parsed.Records {
		enter(stateProcessing)
		rr := s.processRecord(ctx, inv, rec, recent, evidence)
		if rr.Status == domain.RecordLogged {
			evidence = nil
		}
		records.WithLabelValues(string(rr.Status)).Inc()

		switch rr.Status {
		case domain.RecordLogged:
			sum.Logged++
		default:
			sum.Failed++
			log.Warn().Err(rr.Err).Int("index", i).Int("line", rec.Line).Msg("offender failed")
		}
		switch {
		case rr.Score.Status == domain.ScoreFailed:
			sum.ScoreFailed++
		case rr.Score.Status == domain.ScoreSkipped && rec.Points > 0:
			sum.ScoreSkips++
		}
		sum.Results = append(sum.Results, rr)
	}

	enter(stateSummarizing)
	if err := conv.Reply(ctx, SummaryText(sum)); err != nil {
		log.Warn().Err(err).Msg("summary reply failed")
	}
	invocations.WithLabelValues("done").Inc()
	enter(stateDone)
	log.Info().
		Int("parsed", sum.Parsed).
		Int("logged", sum.Logged).
		Int("failed", sum.Failed).
		Int("parse_skips", sum.ParseSkips).
		Msg("resolve finished")
	return sum
}

// processRecord runs resolution through recording for one offender. ev is
// relayed to the destination right after it is located when non nil
func (s *Svc) processRecord(ctx context.Context, inv domain.Invocation, rec domain.OffenderRecord, recent string, ev *Evidence) domain.RecordResult {
	rr := domain.RecordResult{Record: rec, Status: domain.RecordFailed}

	rr.Identity = s.ResolveIdentity(ctx, rec)
	name := rr.Identity.DestinationName()
	log := logger.C(ctx).With().Str("offender", name).Logger()

	rr.Repeat = s.DetectRepeat(ctx, rr.Identity, rec.Reason())

	dest, err := s.LocateDestination(ctx, name)
	if err != nil {
		rr.Err = err
		log.Error().Err(err).Msg("no destination for offender")
		return rr
	}
	rr.Destination = dest
	rr.Status = domain.RecordLogged

	embed := BuildEmbed(inv, rec, rr.Identity, rr.Repeat, recent, s.opts.Clock.Now())
	if err := s.ports.Channels.SendEmbed(ctx, dest.ID, embed); err != nil {
		log.Warn().Err(err).Msg("embed post failed")
	}
	if rec.ModNotes != "" {
		if err := s.post(ctx, dest, "**Staff Notes:** "+rec.ModNotes); err != nil {
			log.Warn().Err(err).Msg("staff notes post failed")
		}
	}

	if ev != nil {
		rr.Evidence, _ = s.RelayEvidence(ctx, dest, *ev)
	}

	rr.Score = s.ApplyPoints(ctx, inv, rec, rr.Identity)
	if lines := ScoreLines(rec, rr.Score); lines != "" {
		if err := s.post(ctx, dest, lines); err != nil {
			log.Warn().Err(err).Msg("scoring outcome post failed")
		}
	}

	rr.Persisted = s.RecordInfraction(ctx, inv, rec, rr.Identity, rr.Repeat) == nil
	return rr
}

func withoutMessage(msgs []domain.Message, id string) []domain.Message {
	out := msgs[:0:0]
	for _, m := range msgs {
		if m.ID != id {
			out = append(out, m)
		}
	}
	return out
}
