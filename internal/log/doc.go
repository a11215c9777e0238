// Package log provides secure logging built on top of the standard slog
// package.
//
// The SecureHandler masks subscription secrets before they reach any output:
//   - attributes named like webhook, bot_token or password
//   - Discord webhook URLs and Telegram bot tokens found inside messages,
//     string values and errors
//
// Even in verbose mode, secrets are masked so logs can be shared when
// reporting a failed migration.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose, isatty.IsTerminal(os.Stderr.Fd()))
//	logger.Info("subscription created",
//	    "platform", "discord",
//	    "target", "https://discord.com/api/webhooks/1/abc", // masked
//	)
//	slog.SetDefault(logger)
package log
