package module

import (
	"time"

	"watchtower/internal/platform/config"
	"watchtower/internal/platform/validate"
)

// Options holds configuration settings for the watchtower module
type Options struct {
	ChannelID string `json:"CHANNEL_ID" validate:"required,snowflake"`

	PointsURL       string        `json:"POINTS_API_URL" validate:"required,url"`
	PointsToken     string        `json:"POINTS_API_TOKEN"`
	PointsTimeout   time.Duration `json:"POINTS_TIMEOUT" validate:"gt=0"`
	PointsRetryBase time.Duration `json:"POINTS_RETRY_BASE" validate:"gt=0"`

	CatboxURL      string `json:"CATBOX_URL" validate:"required,url"`
	CatboxUserHash string `json:"CATBOX_USERHASH"`

	AttachmentBatch int           `json:"ATTACHMENT_BATCH_SIZE" validate:"min=1,max=10"`
	UploadRPS       float64       `json:"UPLOAD_RPS" validate:"gte=0"`
	PasteTimeout    time.Duration `json:"PASTE_TIMEOUT" validate:"gt=0"`
	ContextMessages int           `json:"CONTEXT_MESSAGES" validate:"min=1,max=100"`
	LockTTL         time.Duration `json:"LOCK_TTL" validate:"gt=0"`

	// StatementTimeout bounds every repository transaction; 0 disables it
	StatementTimeout time.Duration `json:"STATEMENT_TIMEOUT" validate:"gte=0"`
}

// FromConfig reads configuration settings from the config.Conf
func FromConfig(cfg config.Conf) Options {
	wf := cfg.Prefix("WATCHTOWER_")
	return Options{
		ChannelID: wf.MustSnowflake("CHANNEL_ID"),

		PointsURL:       wf.MayURL("POINTS_API_URL", "http://127.0.0.1:5000/api/warn"),
		PointsToken:     wf.MayString("POINTS_API_TOKEN", "CHANGE_ME"),
		PointsTimeout:   wf.MayDuration("POINTS_TIMEOUT", 10*time.Second),
		PointsRetryBase: wf.MayDuration("POINTS_RETRY_BASE", time.Second),

		CatboxURL:      wf.MayURL("CATBOX_URL", "https://catbox.moe/user/api.php"),
		CatboxUserHash: wf.MayString("CATBOX_USERHASH", ""),

		AttachmentBatch: wf.MayInt("ATTACHMENT_BATCH_SIZE", 10),
		UploadRPS:       wf.MayFloat64("UPLOAD_RPS", 0),
		PasteTimeout:    wf.MayDuration("PASTE_TIMEOUT", 20*time.Minute),
		ContextMessages: wf.MayInt("CONTEXT_MESSAGES", 20),
		LockTTL:         wf.MayDuration("LOCK_TTL", 30*time.Second),

		StatementTimeout: wf.MayDuration("STATEMENT_TIMEOUT", 5*time.Second),
	}
}

// Validate checks ranges the config helpers cannot express
func (o Options) Validate() error { return validate.Struct(o) }
