package config

import "time"

// Default values for configuration
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = false

	DefaultTelegramPollTimeout      = 30 * time.Second
	DefaultTelegramWorkers          = 16
	DefaultTelegramProcessingNotice = true
	DefaultTelegramMaxChunkLength   = 4000             // leaves room for the part label under Telegram's 4096
	DefaultTelegramMaxPhotoBytes    = 10 * 1024 * 1024 // largest photo we forward
	DefaultTelegramDownloadTimeout  = 30 * time.Second

	DefaultInferenceProvider          = "http"
	DefaultInferenceModel             = "gemini-1.5-flash"
	DefaultInferenceMaxAttempts       = 3
	DefaultInferenceSolveTimeout      = 60 * time.Second
	DefaultInferenceFollowUpTimeout   = 30 * time.Second
	DefaultInferenceTimeoutBackoff    = 5 * time.Second
	DefaultInferenceMaxWarmupWait     = 60 * time.Second
	DefaultInferenceSolveMaxTokens    = 4096
	DefaultInferenceFollowUpMaxTokens = 2048
	DefaultInferenceTemperature       = 0.2
	DefaultInferenceNoExerciseMarker  = "ОШИБКА"
	DefaultInferenceMarkerWindow      = 50

	DefaultConversationMaxEntries = 10000
	DefaultConversationTTL        = 24 * time.Hour

	DefaultDatabasePath      = "tutorbot.db"
	DefaultDatabaseRetention = 30 * 24 * time.Hour
)

// DefaultSolveInstruction is sent together with every photo.
const DefaultSolveInstruction = `Ты опытный школьный репетитор для учеников 11 класса.
Твоя задача - помогать решать задачи по всем школьным предметам: математика (алгебра, геометрия),
физика, химия, русский язык, литература, биология, история, обществознание, английский язык.

ВАЖНО:
1. Давай ПОЛНОЕ пошаговое решение с подробными объяснениями каждого шага
2. Пиши простым текстом, без специального форматирования
3. Нумеруй шаги (Шаг 1, Шаг 2 и т.д.)
4. В конце обязательно выдели финальный ответ
5. Пиши на русском языке

Если на изображении НЕТ учебной задачи или изображение невозможно распознать - ответь только словом "ОШИБКА".`

// DefaultFollowUpTemplate frames a follow-up question. {solution} and {question}
// are replaced verbatim.
const DefaultFollowUpTemplate = `Ты опытный школьный репетитор для учеников 11 класса.

Вот задача с изображения и её решение, которое ты дал ранее:

{solution}

---

Ученик задал уточняющий вопрос: {question}

Ответь на его вопрос подробно, но кратко. Если нужно, объясни конкретный шаг решения более детально.`

// DefaultMessages are the Russian user-facing texts.
var DefaultMessages = MessagesConfig{
	Welcome:        "Отправь фото задачи, и я решу её пошагово!",
	Help:           "📷 Сфотографируй условие задачи и отправь фото.\n❓ После решения можно задать один уточняющий вопрос текстом.\n🔄 Новое фото заменяет предыдущую задачу.",
	Processing:     "⏳ Решаю задачу…",
	NoExercise:     "🤔 На фото не удалось найти задачу. Сфотографируй условие крупнее и отправь ещё раз.",
	TechnicalError: "⚠️ Техническая ошибка, повторите загрузку.",
	NoContext:      "Сначала отправь фото задачи.",
	FollowUpError:  "⚠️ Не удалось ответить на вопрос, попробуй ещё раз.",
	Unauthorized:   "🚫 Команда доступна только администратору.",
	PartLabel:      "Часть %d/%d",
}

// DefaultSchedulerTasks are enabled unless overridden.
var DefaultSchedulerTasks = map[string]TaskConfig{
	"context_sweep":     {Enabled: true, Schedule: "0 * * * * *"},
	"journal_retention": {Enabled: true, Schedule: "0 30 3 * * *"},
	"sql_maintenance":   {Enabled: true, Schedule: "0 0 4 * * 0"},
}
