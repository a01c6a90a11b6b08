package config

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	// <numeric bot id>:<secret>, as issued by BotFather.
	telegramTokenPattern = regexp.MustCompile(`^[0-9]{5,}:[A-Za-z0-9_-]{30,}$`)
	// Bearer tokens and API keys: no whitespace, at least 16 characters.
	apiTokenPattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]{16,}$`)
)

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	return newValidator().Struct(c)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("telegram_token", func(fl validator.FieldLevel) bool {
		return telegramTokenPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("api_token", func(fl validator.FieldLevel) bool {
		return apiTokenPattern.MatchString(fl.Field().String())
	})
	return v
}
