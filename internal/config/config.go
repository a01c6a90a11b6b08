// Package config manages application configuration from default values,
// an optional YAML file and environment variables.
package config

import (
	"errors"
	"time"
)

// ErrConfiguration marks every failure to load or validate the configuration.
var ErrConfiguration = errors.New("configuration error")

// Config defines the application configuration. Values can be set through
// config.yaml or environment variables prefixed with BOT_ (e.g. BOT_LOGGER_LEVEL).
// The two credentials are also read from TELEGRAM_BOT_TOKEN and INFERENCE_API_TOKEN.
type Config struct {
	Logger       LoggerConfig       `mapstructure:"logger"`
	Telegram     TelegramConfig     `mapstructure:"telegram"`
	Inference    InferenceConfig    `mapstructure:"inference"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	Messages     MessagesConfig     `mapstructure:"messages"`
}

// LoggerConfig controls the slog handler.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds Bot API settings.
type TelegramConfig struct {
	Token       string `mapstructure:"token"         validate:"required,telegram_token"`
	AdminUserID int64  `mapstructure:"admin_user_id" validate:"gte=0"`
	// ServerURL overrides the Bot API endpoint (self-hosted Bot API server).
	ServerURL        string        `mapstructure:"server_url"        validate:"omitempty,url"`
	PollTimeout      time.Duration `mapstructure:"poll_timeout"      validate:"min=1s,max=5m"`
	Workers          int           `mapstructure:"workers"           validate:"min=1,max=256"`
	ProcessingNotice bool          `mapstructure:"processing_notice"`
	MaxChunkLength   int           `mapstructure:"max_chunk_length"  validate:"min=100,max=4000"`
	MaxPhotoBytes    int64         `mapstructure:"max_photo_bytes"   validate:"min=1024"`
	DownloadTimeout  time.Duration `mapstructure:"download_timeout"  validate:"min=1s,max=5m"`
}

// InferenceConfig configures the remote vision-language model.
type InferenceConfig struct {
	Provider string            `mapstructure:"provider" validate:"required,oneof=http gemini"`
	Token    string            `mapstructure:"token"    validate:"required,api_token"`
	Endpoint string            `mapstructure:"endpoint" validate:"required_if=Provider http,omitempty,url"`
	Headers  map[string]string `mapstructure:"headers"`
	Model    string            `mapstructure:"model"    validate:"required_if=Provider gemini"`

	MaxAttempts     int           `mapstructure:"max_attempts"     validate:"min=1,max=10"`
	SolveTimeout    time.Duration `mapstructure:"solve_timeout"    validate:"min=1s,max=10m"`
	FollowUpTimeout time.Duration `mapstructure:"followup_timeout" validate:"min=1s,ltefield=SolveTimeout"`
	TimeoutBackoff  time.Duration `mapstructure:"timeout_backoff"  validate:"min=0,max=1m"`
	MaxWarmupWait   time.Duration `mapstructure:"max_warmup_wait"  validate:"min=0,max=5m"`

	SolveMaxTokens    int     `mapstructure:"solve_max_tokens"    validate:"min=1,max=65536"`
	FollowUpMaxTokens int     `mapstructure:"followup_max_tokens" validate:"min=1,max=65536,ltefield=SolveMaxTokens"`
	Temperature       float32 `mapstructure:"temperature"         validate:"min=0,max=2"`
	SafetyThreshold   string  `mapstructure:"safety_threshold"    validate:"omitempty,oneof=OFF BLOCK_NONE BLOCK_ONLY_HIGH BLOCK_MEDIUM_AND_ABOVE BLOCK_LOW_AND_ABOVE"`

	SolveInstruction string `mapstructure:"solve_instruction"  validate:"required"`
	FollowUpTemplate string `mapstructure:"followup_template"  validate:"required"`
	NoExerciseMarker string `mapstructure:"no_exercise_marker" validate:"required"`
	MarkerWindow     int    `mapstructure:"marker_window"      validate:"min=1,max=1000"`
}

// ConversationConfig bounds the in-memory context store.
type ConversationConfig struct {
	MaxEntries int           `mapstructure:"max_entries" validate:"min=1"`
	TTL        time.Duration `mapstructure:"ttl"         validate:"min=0"`
}

// DatabaseConfig configures the request journal.
type DatabaseConfig struct {
	Path      string        `mapstructure:"path"      validate:"required"`
	Retention time.Duration `mapstructure:"retention" validate:"min=0"`
}

// SchedulerConfig lists scheduled tasks by name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig enables a task on a cron schedule (seconds field allowed).
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// MessagesConfig holds every user-facing text.
type MessagesConfig struct {
	Welcome        string `mapstructure:"welcome"         validate:"required"`
	Help           string `mapstructure:"help"            validate:"required"`
	Processing     string `mapstructure:"processing"      validate:"required"`
	NoExercise     string `mapstructure:"no_exercise"     validate:"required"`
	TechnicalError string `mapstructure:"technical_error" validate:"required"`
	NoContext      string `mapstructure:"no_context"      validate:"required"`
	FollowUpError  string `mapstructure:"followup_error"  validate:"required"`
	Unauthorized   string `mapstructure:"unauthorized"    validate:"required"`
	// PartLabel is a format string taking the 1-based part index and the total.
	PartLabel string `mapstructure:"part_label" validate:"required"`
}
