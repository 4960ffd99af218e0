package config

var defaultConfig = `# talktranslate configuration
# Every setting here can also be provided by environment variables, which win over this file.

# Enable debug when a crash occurs that is not self apparent
# Not recommended on normal use, very verbose
debug = false

# zerolog level: debug, info, warn, error (env: LOG_LEVEL)
log_level = "info"

# Keep the discord connection alive?
# If false, a dropped session will not self repair
keep_alive = true

# How long before retrying to connect (requires keep_alive = true, env: KEEP_ALIVE_RETRY)
# default: 10s
keep_alive_retry = "10s"

# Optional. Discord user ids mapped to the display name shown with their translations.
# This file is actively monitored. if you edit it while talktranslate is running, it will reload the changes instantly
# Format:
# [123456789012345678]
# DisplayName = "Shin"
users_database = ""

[discord]

	# Required. Found at https://discordapp.com/developers/ under your app's bot's section (env: DISCORD_TOKEN)
	bot_token = ""

	# Status to show below bot
	bot_status = "Translating"

	# Parse text commands such as !ping, !routes and !languages
	commands = true
	command_prefix = "!"

[completion]

	# deepseek or ark (env: COMPLETION_PROVIDER)
	provider = "deepseek"

	# Required. (env: DEEPSEEK_API_KEY, or ARK_API_KEY for ark)
	api_key = ""

	# default: https://api.deepseek.com/v1 (env: COMPLETION_BASE_URL)
	base_url = ""

	# default: deepseek-chat (env: COMPLETION_MODEL, or ARK_MODEL for ark)
	model = ""

	temperature = 0.7

	# Per request timeout, "0s" uses the transport default
	timeout = "0s"

	# Detection is biased toward these two languages
	languages = ["en", "ja"]

	# Used when the detected language is ambiguous or detection fails
	fallback = "en"

[retry]

	# Attempts per remote call (env: RETRY_MAX_ATTEMPTS)
	max_attempts = 3

	# Wait between failed attempts (env: RETRY_DELAY)
	delay = "2s"

	# Wait after the api answers HTTP 429 (env: RATE_LIMIT_DELAY)
	rate_limit_delay = "5s"

[api]

	# Liveness listener, GET / answers OK (env: PORT)
	host = ""
	port = 10000

[nats]

	# Publish every handled message as json on <subject_prefix>.<route>.<outcome> (env: NATS_URL enables it)
	enabled = false
	url = "nats://127.0.0.1:4222"
	subject_prefix = "talktranslate"

# Routes can also be set with env:
# JAPANESE_CHANNEL_ID + ENGLISH_CHANNEL_ID for a bidirectional pair
# SOURCE_CHANNEL_ID (+ TARGET_LANGUAGE, DESTINATION_CHANNEL_ID) for a fixed target
#
# [[routes]]
#	name = "japanese"
#	source_channel_id = ""
#	destination_channel_id = ""
#	mode = "detect"
#	languages = ["en", "ja"]
#	message_pattern = "{{.Name}}: {{.Message}}"
#
# [[routes]]
#	name = "announcements"
#	source_channel_id = ""
#	mode = "fixed"
#	target_language = "en"
#	message_pattern = "**Translated ({{.Language}}):** {{.Message}}"
`
