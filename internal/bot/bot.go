package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/bwe-assistant/internal/catalog"
	"github.com/xaenox/bwe-assistant/internal/models"
	"go.uber.org/zap"
)

const maxSearchResults = 10

// TelegramAPI is the part of tgbotapi.BotAPI the bot relies on.
type TelegramAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Bot struct {
	api     TelegramAPI
	service *catalog.Service
	client  *http.Client
	logger  *zap.Logger
	wg      sync.WaitGroup
}

func New(token string, service *catalog.Service, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	logger.Info("Authorized on Telegram", zap.String("username", api.Self.UserName))

	return NewWithAPI(api, service, http.DefaultClient, logger), nil
}

func NewWithAPI(api TelegramAPI, service *catalog.Service, client *http.Client, logger *zap.Logger) *Bot {
	return &Bot{
		api:     api,
		service: service,
		client:  client,
		logger:  logger,
	}
}

// Start handles updates until ctx is cancelled, then waits for in-flight
// handlers to finish.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}

			b.wg.Add(1)
			go func(message *tgbotapi.Message) {
				defer b.wg.Done()
				b.handleMessage(ctx, message)
			}(update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	if message.Document != nil {
		b.handleDocument(ctx, message)
		return
	}

	b.sendMessage(message.Chat.ID, "Send me a document to add it to the library, or use /help.")
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "help":
		b.handleHelp(message)
	case "categories":
		b.handleCategories(ctx, message)
	case "gaps":
		b.handleGaps(ctx, message)
	case "search":
		b.handleSearch(ctx, message)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) handleStart(message *tgbotapi.Message) {
	welcome := `Welcome to the BWE document library! 📁
Send me a document and I'll file it under the right category.
Use /help to see all available commands.`

	b.sendMessage(message.Chat.ID, welcome)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Available commands:
/start - Start the bot
/help - Show this help message
/categories - Show categories and file counts
/gaps [category] - Show missing months in report series
/search <text> - Find documents by filename

Send a document (pdf, doc, docx, xls, xlsx, csv, txt, md) to upload it.`

	b.sendMessage(message.Chat.ID, help)
}

func (b *Bot) handleDocument(ctx context.Context, message *tgbotapi.Message) {
	doc := message.Document
	logger := b.logger.With(
		zap.Int64("chat_id", message.Chat.ID),
		zap.String("filename", doc.FileName))

	body, err := b.download(ctx, doc.FileID)
	if err != nil {
		logger.Error("Failed to download document", zap.Error(err))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't download your document. Please try again.")
		return
	}
	defer body.Close()

	record, category, err := b.service.Upload(ctx, doc.FileName, body)
	switch {
	case errors.Is(err, catalog.ErrFileTypeNotAllowed), errors.Is(err, catalog.ErrNoFile):
		b.sendErrorMessage(message.Chat.ID, "File type not allowed.")
		return
	case err != nil:
		logger.Error("Failed to upload document", zap.Error(err))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't add your document to the library.")
		return
	}

	text := fmt.Sprintf("*Saved:* %s\n*Category:* %s", escapeMarkdown(record.Filename), escapeMarkdown(hashtag(category)))
	if b.service.Limited() {
		text += "\n" + escapeMarkdown("(limited mode, not added to the knowledge base)")
	}
	b.sendMarkdown(message.Chat.ID, message.MessageID, text)
}

func (b *Bot) download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	link, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolving file url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading file: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("downloading file: unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func (b *Bot) handleCategories(ctx context.Context, message *tgbotapi.Message) {
	view, err := b.service.View(ctx, "")
	if err != nil {
		b.logger.Error("Failed to build category view",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, failed to retrieve categories. Please try again later.")
		return
	}

	response := "*Categories:*\n"
	for _, bucket := range view.Categories {
		response += escapeMarkdown(fmt.Sprintf("%s (%d)", hashtag(bucket.Name), len(bucket.Files))) + "\n"
	}
	if view.Error != "" {
		response += "\n_" + escapeMarkdown(view.Error) + "_"
	}

	b.sendMarkdown(message.Chat.ID, 0, response)
}

func (b *Bot) handleGaps(ctx context.Context, message *tgbotapi.Message) {
	if category := strings.TrimSpace(message.CommandArguments()); category != "" {
		gaps, err := b.service.Gaps(ctx, category)
		if errors.Is(err, catalog.ErrUnknownCategory) {
			b.sendMessage(message.Chat.ID, "Unknown category: "+category)
			return
		}
		if err != nil {
			b.logger.Error("Failed to compute gaps", zap.Error(err), zap.String("category", category))
			b.sendErrorMessage(message.Chat.ID, "Sorry, failed to check for gaps.")
			return
		}
		b.sendMarkdown(message.Chat.ID, 0, formatGaps(category, gaps))
		return
	}

	view, err := b.service.View(ctx, "")
	if err != nil {
		b.logger.Error("Failed to build category view", zap.Error(err))
		b.sendErrorMessage(message.Chat.ID, "Sorry, failed to check for gaps.")
		return
	}

	var sections []string
	for _, bucket := range view.Categories {
		if models.IsReportCategory(bucket.Name) {
			sections = append(sections, formatGaps(bucket.Name, bucket.Gaps))
		}
	}
	b.sendMarkdown(message.Chat.ID, 0, strings.Join(sections, "\n\n"))
}

func formatGaps(category string, gaps []string) string {
	text := "*" + escapeMarkdown(category) + "*\n"
	if len(gaps) == 0 {
		return text + escapeMarkdown("No missing months.")
	}
	return text + escapeMarkdown("Missing: "+strings.Join(gaps, ", "))
}

func (b *Bot) handleSearch(ctx context.Context, message *tgbotapi.Message) {
	results, err := b.service.Search(ctx, message.CommandArguments())
	if errors.Is(err, catalog.ErrEmptyQuery) {
		b.sendMessage(message.Chat.ID, "Usage: /search <text>")
		return
	}
	if err != nil {
		b.logger.Error("Search failed", zap.Error(err), zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, search is not available right now.")
		return
	}

	if len(results) == 0 {
		b.sendMessage(message.Chat.ID, "No documents found.")
		return
	}

	response := "*Results:*\n"
	for i, r := range results {
		if i == maxSearchResults {
			response += escapeMarkdown(fmt.Sprintf("...and %d more", len(results)-maxSearchResults)) + "\n"
			break
		}
		response += escapeMarkdown(fmt.Sprintf("%s %s", r.Filename, hashtag(r.Category))) + "\n"
	}
	b.sendMarkdown(message.Chat.ID, 0, response)
}

func hashtag(category string) string {
	r := strings.NewReplacer(" & ", "_", " ", "_")
	return "#" + r.Replace(category)
}

// escapeMarkdown escapes special characters for MarkdownV2
func escapeMarkdown(text string) string {
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendMarkdown(chatID int64, replyToID int, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.ReplyToMessageID = replyToID

	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
