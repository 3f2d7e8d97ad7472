package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"watchtower/internal/platform/logger"
	pstrings "watchtower/internal/platform/strings"
	"watchtower/internal/services/watchtower/domain"
)

const (
	mediaChunk    = 5
	mediaHeader   = "**Media:**\n"
	mediaSep      = "\n\n"
	fallbackTitle = "**Media (fallback attachments)**"
)

// pendingFallback is an item whose host upload failed but is small enough to attach
type pendingFallback struct {
	idx  int
	file domain.File
}

// RelayEvidence uploads every item one at a time, attaches small failures
// directly to dest in batches, then posts the media list and transcript link.
// Results keep the order of ev.Items
func (s *Svc) RelayEvidence(ctx context.Context, dest domain.Destination, ev Evidence) ([]domain.UploadResult, domain.UploadResult) {
	log := logger.C(ctx).With().Str("destination", dest.Name).Logger()

	results := make([]domain.UploadResult, len(ev.Items))
	var pending []pendingFallback
	for i, it := range ev.Items {
		res, data := s.uploadOne(ctx, it)
		if res.Outcome == "" {
			if max(it.SizeBytes, int64(len(data))) < MaxFallbackBytes {
				pending = append(pending, pendingFallback{idx: i, file: domain.File{
					Name: it.Filename, ContentType: it.ContentType, Data: data,
				}})
			} else {
				res.Outcome = domain.OutcomeSkipped
				res.Reason = "upload and fallback failed"
			}
		}
		results[i] = res
	}

	for _, batch := range pstrings.Chunk(pending, s.opts.AttachmentBatch) {
		files := make([]domain.File, len(batch))
		for i, p := range batch {
			files[i] = p.file
		}
		err := s.ports.Channels.SendFiles(ctx, dest.ID, fallbackTitle, files)
		if err != nil {
			log.Warn().Err(err).Int("files", len(files)).Msg("fallback attachment batch failed")
		}
		for _, p := range batch {
			if err != nil {
				results[p.idx].Outcome = domain.OutcomeSkipped
				results[p.idx].Reason = "upload and fallback failed"
			} else {
				results[p.idx].Outcome = domain.OutcomeFallbackAttached
			}
		}
	}

	transcript, _ := s.uploadOne(ctx, ev.Transcript)
	if transcript.Outcome == "" {
		transcript.Outcome = domain.OutcomeSkipped
		transcript.Reason = "upload failed"
	}

	for _, r := range append(results, transcript) {
		uploads.WithLabelValues(string(r.Item.Kind), string(r.Outcome)).Inc()
	}

	for _, msg := range MediaPosts(results) {
		if err := s.post(ctx, dest, msg); err != nil {
			log.Warn().Err(err).Msg("media list post failed")
		}
	}
	if transcript.Outcome == domain.OutcomeHosted {
		if err := s.post(ctx, dest, "**Transcript:** "+transcript.URL); err != nil {
			log.Warn().Err(err).Msg("transcript link post failed")
		}
	}
	return results, transcript
}

// uploadOne applies the size policy and hosts one item. A failed host upload
// returns an empty outcome together with the bytes so the caller can fall back
func (s *Svc) uploadOne(ctx context.Context, it domain.EvidenceItem) (domain.UploadResult, []byte) {
	log := logger.C(ctx).With().Str("file", it.Filename).Logger()
	res := domain.UploadResult{Item: it}
	skip := func(reason string) (domain.UploadResult, []byte) {
		res.Outcome = domain.OutcomeSkipped
		res.Reason = reason
		return res, nil
	}

	if it.SizeBytes > MaxHostBytes {
		return skip("too large")
	}

	data := it.Data
	if data == nil {
		b, err := s.ports.Fetcher.Fetch(ctx, it.SourceURL)
		if err != nil {
			log.Warn().Err(err).Msg("attachment download failed")
			return skip("download failed")
		}
		data = b
	}
	if int64(len(data)) > MaxHostBytes {
		return skip("too large")
	}
	uploadBytes.Observe(float64(len(data)))

	if l := s.opts.UploadLimiter; l != nil {
		if err := l.Wait(ctx); err != nil {
			return skip("cancelled")
		}
	}

	url, err := s.ports.Host.Upload(ctx, it.Filename, data)
	if err != nil {
		log.Warn().Err(err).Int("bytes", len(data)).Msg("content host upload failed")
		return res, data
	}
	res.Outcome = domain.OutcomeHosted
	res.URL = url
	return res, nil
}

// MediaPosts groups media lines into messages of at most mediaChunk lines
// that each fit in MessageLimit. Lines keep the order of results
func MediaPosts(results []domain.UploadResult) []string {
	budget := MessageLimit - utf8.RuneCountInString(mediaHeader)
	var (
		posts []string
		cur   []string
		size  int
	)
	flush := func() {
		if len(cur) > 0 {
			posts = append(posts, mediaHeader+strings.Join(cur, mediaSep))
		}
		cur, size = nil, 0
	}
	for _, r := range results {
		line := fitMediaLine(r, budget)
		n := utf8.RuneCountInString(line)
		if len(cur) == mediaChunk || (len(cur) > 0 && size+len(mediaSep)+n > budget) {
			flush()
		}
		if len(cur) > 0 {
			size += len(mediaSep)
		}
		cur = append(cur, line)
		size += n
	}
	flush()
	return posts
}

// fitMediaLine shortens the message text of a line that would not fit in
// budget; the author, filename and link are never cut
func fitMediaLine(r domain.UploadResult, budget int) string {
	line := MediaLine(r)
	over := utf8.RuneCountInString(line) - budget
	if over <= 0 {
		return line
	}
	text := r.Item.MessageText
	if keep := utf8.RuneCountInString(text) - over - len("..."); keep > 0 {
		r.Item.MessageText = pstrings.Truncate(text, keep) + "..."
	} else {
		r.Item.MessageText = ""
	}
	return MediaLine(r)
}

// MediaLine renders one evidence result for the media list
func MediaLine(r domain.UploadResult) string {
	var b strings.Builder
	b.WriteString(pstrings.FirstNonBlank(r.Item.Author, "Unknown"))
	b.WriteString(" — ")
	b.WriteString(r.Item.Timestamp.UTC().Format(stampLayout))
	b.WriteByte('\n')
	if r.Item.MessageText != "" {
		b.WriteString(r.Item.MessageText)
		b.WriteByte('\n')
	}
	b.WriteString(pstrings.FirstNonBlank(r.Item.Filename, "attachment"))
	b.WriteString(": ")
	switch r.Outcome {
	case domain.OutcomeHosted:
		b.WriteString(r.URL)
	case domain.OutcomeFallbackAttached:
		b.WriteString("(upload failed, attached above)")
	default:
		b.WriteString("(skipped: " + r.Reason + ")")
	}
	return b.String()
}
