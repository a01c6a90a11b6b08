package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads and validates configuration from:
//  1. default values
//  2. the YAML file at path (optional, a missing file is not an error)
//  3. BOT_* environment variables and the credential variables
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: failed to read config file %s: %v", ErrConfiguration, path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	return cfg, nil
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The credentials keep their conventional names; BindEnv only errors on an empty key.
	_ = v.BindEnv("telegram.token", "BOT_TELEGRAM_TOKEN", "TELEGRAM_BOT_TOKEN")
	_ = v.BindEnv("inference.token", "BOT_INFERENCE_TOKEN", "INFERENCE_API_TOKEN", "GEMINI_API_KEY")
}

// setDefaults registers every key so that AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", DefaultLogJSON)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_user_id", 0)
	v.SetDefault("telegram.server_url", "")
	v.SetDefault("telegram.poll_timeout", DefaultTelegramPollTimeout)
	v.SetDefault("telegram.workers", DefaultTelegramWorkers)
	v.SetDefault("telegram.processing_notice", DefaultTelegramProcessingNotice)
	v.SetDefault("telegram.max_chunk_length", DefaultTelegramMaxChunkLength)
	v.SetDefault("telegram.max_photo_bytes", DefaultTelegramMaxPhotoBytes)
	v.SetDefault("telegram.download_timeout", DefaultTelegramDownloadTimeout)

	v.SetDefault("inference.provider", DefaultInferenceProvider)
	v.SetDefault("inference.token", "")
	v.SetDefault("inference.endpoint", "")
	v.SetDefault("inference.model", DefaultInferenceModel)
	v.SetDefault("inference.max_attempts", DefaultInferenceMaxAttempts)
	v.SetDefault("inference.solve_timeout", DefaultInferenceSolveTimeout)
	v.SetDefault("inference.followup_timeout", DefaultInferenceFollowUpTimeout)
	v.SetDefault("inference.timeout_backoff", DefaultInferenceTimeoutBackoff)
	v.SetDefault("inference.max_warmup_wait", DefaultInferenceMaxWarmupWait)
	v.SetDefault("inference.solve_max_tokens", DefaultInferenceSolveMaxTokens)
	v.SetDefault("inference.followup_max_tokens", DefaultInferenceFollowUpMaxTokens)
	v.SetDefault("inference.temperature", DefaultInferenceTemperature)
	v.SetDefault("inference.safety_threshold", "")
	v.SetDefault("inference.solve_instruction", DefaultSolveInstruction)
	v.SetDefault("inference.followup_template", DefaultFollowUpTemplate)
	v.SetDefault("inference.no_exercise_marker", DefaultInferenceNoExerciseMarker)
	v.SetDefault("inference.marker_window", DefaultInferenceMarkerWindow)

	v.SetDefault("conversation.max_entries", DefaultConversationMaxEntries)
	v.SetDefault("conversation.ttl", DefaultConversationTTL)

	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("database.retention", DefaultDatabaseRetention)

	tasks := make(map[string]any, len(DefaultSchedulerTasks))
	for name, task := range DefaultSchedulerTasks {
		tasks[name] = map[string]any{"enabled": task.Enabled, "schedule": task.Schedule}
	}
	v.SetDefault("scheduler.tasks", tasks)

	v.SetDefault("messages.welcome", DefaultMessages.Welcome)
	v.SetDefault("messages.help", DefaultMessages.Help)
	v.SetDefault("messages.processing", DefaultMessages.Processing)
	v.SetDefault("messages.no_exercise", DefaultMessages.NoExercise)
	v.SetDefault("messages.technical_error", DefaultMessages.TechnicalError)
	v.SetDefault("messages.no_context", DefaultMessages.NoContext)
	v.SetDefault("messages.followup_error", DefaultMessages.FollowUpError)
	v.SetDefault("messages.unauthorized", DefaultMessages.Unauthorized)
	v.SetDefault("messages.part_label", DefaultMessages.PartLabel)
}
