package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/igor04091968/v2panel/core"
	"github.com/igor04091968/v2panel/database/model"
	"github.com/igor04091968/v2panel/logger"
	"github.com/igor04091968/v2panel/util"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// AppServices is what the bot needs from the running app.
type AppServices interface {
	RestartPanel()
	GetConfig() (*model.ServerConfig, error)
	RegenerateSecret() (*model.ServerConfig, error)
	RestartBackend() error
	BackendStatus() core.Status
	BackendLogs() []string
	GetLogs(count int, level string) []string
}

const maxMessageLength = 4000

type Bot struct {
	config   *Config
	services AppServices
	adminIDs map[int64]bool
}

func NewBot(config *Config, services AppServices) *Bot {
	b := &Bot{
		config:   config,
		services: services,
		adminIDs: make(map[int64]bool),
	}
	for _, id := range config.AdminUserIDs {
		b.adminIDs[id] = true
	}
	return b
}

// Start runs the bot until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	if !b.config.Enabled || b.config.BotToken == "" {
		logger.Info("Telegram bot is disabled or token is not configured.")
		return
	}

	tb, err := bot.New(b.config.BotToken, bot.WithDefaultHandler(b.handler))
	if err != nil {
		logger.Error("Error creating Telegram bot: ", err)
		return
	}

	logger.Info("Telegram bot started.")
	tb.Start(ctx)
}

func (b *Bot) handler(ctx context.Context, tb *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	if !b.isAdmin(update.Message.From.ID) {
		tb.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "You are not authorized to use this bot.",
		})
		return
	}

	if !strings.HasPrefix(update.Message.Text, "/") {
		return
	}
	command, args := parseCommand(update.Message.Text)
	if command == "/restart_panel" {
		tb.SendMessage(ctx, &bot.SendMessageParams{ChatID: update.Message.Chat.ID, Text: "Restarting v2panel..."})
		b.services.RestartPanel()
		return
	}
	tb.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   truncate(b.reply(command, args)),
	})
}

func (b *Bot) isAdmin(userID int64) bool {
	return b.adminIDs[userID]
}

func (b *Bot) reply(command string, args []string) string {
	switch command {
	case "/start":
		return "Welcome to v2panel Admin Bot. Send /help to see available commands."
	case "/help":
		return "Available commands:\n" +
			"/status\n" +
			"/logs [count]\n" +
			"/panel_logs [count] [level]\n" +
			"/restart\n" +
			"/restart_panel\n" +
			"/link [host]\n" +
			"/secret"
	case "/status":
		return b.status()
	case "/logs":
		lines := b.services.BackendLogs()
		count := parseCount(args, 10)
		if len(lines) > count {
			lines = lines[len(lines)-count:]
		}
		if len(lines) == 0 {
			return "No logs found."
		}
		return "Backend logs:\n" + strings.Join(lines, "\n")
	case "/panel_logs":
		level := "info"
		if len(args) > 1 {
			level = args[1]
		}
		lines := b.services.GetLogs(parseCount(args, 10), level)
		if len(lines) == 0 {
			return "No logs found."
		}
		return "Panel logs:\n" + strings.Join(lines, "\n")
	case "/restart":
		if err := b.services.RestartBackend(); err != nil {
			return fmt.Sprintf("Error restarting backend: %v", err)
		}
		return "Backend restart issued. Check /status."
	case "/link":
		return b.link(args)
	case "/secret":
		cfg, err := b.services.RegenerateSecret()
		if err != nil {
			logger.Warning("telegram: regenerate secret failed: ", err)
			return fmt.Sprintf("Error regenerating secret: %v", err)
		}
		if err := b.services.RestartBackend(); err != nil {
			return fmt.Sprintf("Secret changed but restart failed: %v", err)
		}
		return "New secret: " + cfg.Secret
	default:
		return "Unknown command. Send /help to see available commands."
	}
}

func (b *Bot) status() string {
	st := b.services.BackendStatus()
	var response strings.Builder
	response.WriteString(fmt.Sprintf("Backend: %s\n", st.State))
	if st.PID > 0 {
		response.WriteString(fmt.Sprintf("PID: %d\n", st.PID))
		response.WriteString(fmt.Sprintf("Uptime: %s\n", st.Uptime.Round(time.Second)))
	}
	if st.LastExitCode != nil {
		response.WriteString(fmt.Sprintf("Last exit code: %d\n", *st.LastExitCode))
	}
	if cfg, err := b.services.GetConfig(); err == nil {
		response.WriteString(fmt.Sprintf("Path: %s\nPort: %d\nEnabled: %t\n", cfg.Path, cfg.Port, cfg.Enabled))
	}
	return response.String()
}

func (b *Bot) link(args []string) string {
	cfg, err := b.services.GetConfig()
	if err != nil {
		return fmt.Sprintf("Error loading config: %v", err)
	}
	host := b.config.WebDomain
	if len(args) > 0 {
		host = args[0]
	}
	if host == "" {
		return "Usage: /link <host> (or set web_domain in the bot config)"
	}
	vmess, err := util.VmessLink(cfg, host)
	if err != nil {
		return fmt.Sprintf("Error building link: %v", err)
	}
	return vmess + "\n\nHTTP Custom payload:\n" + util.HTTPCustomPayload(cfg, host)
}

func parseCommand(text string) (string, []string) {
	parts := strings.Fields(text)
	if len(parts) == 0 {
		return "", nil
	}
	// commands in groups arrive as /cmd@botname
	command, _, _ := strings.Cut(parts[0], "@")
	return command, parts[1:]
}

func parseCount(args []string, def int) int {
	if len(args) == 0 {
		return def
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func truncate(text string) string {
	if len(text) <= maxMessageLength {
		return text
	}
	return text[len(text)-maxMessageLength:]
}
