package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	app "object-detector/internal/application"
	"object-detector/internal/container"
)

const (
	msgStart = `👋 Привет! Я нахожу объекты на фотографиях.

📸 Отправьте мне фото, и я верну его с рамками вокруг найденных объектов.

📋 Команды:
/detect - найти объекты на фото
/help - справка
/cancel - отменить текущую операцию`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ Отправьте фото (можно файлом, тогда без сжатия)
2️⃣ Бот прогонит его через детектор
3️⃣ Вы получите фото с рамками и список объектов

🐶 Распознаются 20 классов PASCAL VOC: люди, животные, транспорт, мебель и др.

📋 Команды:
/detect - начать
/cancel - отменить операцию`

	msgAwaitingPhoto   = "📸 Отправьте фото для поиска объектов."
	msgCancelled       = "❌ Операция отменена. Отправьте /detect для нового поиска."
	msgSendPhoto       = "📸 Пожалуйста, отправьте фото."
	msgUnknownCommand  = "❓ Неизвестная команда. Используйте /help для справки."
	msgProcessing      = "⏳ Обрабатываю изображение..."
	msgNoObjects       = "🤷 Объекты не обнаружены."
	msgBadImage        = "🖼 Не удалось прочитать изображение. Попробуйте другой файл (JPEG, PNG, WebP)."
	msgTooLarge        = "📦 Файл слишком большой."
	msgProcessingError = "⚠️ Не удалось обработать изображение. Попробуйте позже."
)

var errFileTooLarge = errors.New("file exceeds upload limit")

// Options параметры бота.
type Options struct {
	MaxFileBytes   int64
	RequestTimeout time.Duration
}

// Bot представляет Telegram-бота
type Bot struct {
	api  *tgbotapi.BotAPI
	app  *container.Container
	http *http.Client
	opts Options
	log  logrus.FieldLogger
}

// NewBot создаёт нового бота
func NewBot(token string, c *container.Container, opts Options, log logrus.FieldLogger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.WithField("account", api.Self.UserName).Info("telegram bot authorized")

	return &Bot{
		api:  api,
		app:  c,
		http: &http.Client{Timeout: opts.RequestTimeout},
		opts: opts,
		log:  log,
	}, nil
}

// Run обрабатывает сообщения до отмены ctx
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

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
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	if fileID, ok := ImageFileID(msg); ok {
		b.handleImage(ctx, msg, fileID)
		return
	}

	b.sendMessage(msg.Chat.ID, msgSendPhoto)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	users := b.app.UserService
	var err error

	switch msg.Command() {
	case "start":
		_, err = users.Cancel(ctx, msg.From.ID, msg.Chat.ID)
		b.sendMessage(msg.Chat.ID, msgStart)

	case "help":
		b.sendMessage(msg.Chat.ID, msgHelp)

	case "detect":
		_, err = users.BeginDetect(ctx, msg.From.ID, msg.Chat.ID)
		b.sendMessage(msg.Chat.ID, msgAwaitingPhoto)

	case "cancel":
		_, err = users.Cancel(ctx, msg.From.ID, msg.Chat.ID)
		b.sendMessage(msg.Chat.ID, msgCancelled)

	default:
		b.sendMessage(msg.Chat.ID, msgUnknownCommand)
	}

	if err != nil {
		b.log.WithError(err).WithField("user_id", msg.From.ID).Warn("update user state")
	}
}

// handleImage прогоняет фото через конвейер и отвечает размеченной копией
func (b *Bot) handleImage(ctx context.Context, msg *tgbotapi.Message, fileID string) {
	users := b.app.UserService
	log := b.log.WithFields(logrus.Fields{"user_id": msg.From.ID, "chat_id": msg.Chat.ID})

	if _, err := users.StartProcessing(ctx, msg.From.ID, msg.Chat.ID); err != nil {
		log.WithError(err).Warn("update user state")
	}
	b.sendMessage(msg.Chat.ID, msgProcessing)

	fail := func(text string) {
		b.sendMessage(msg.Chat.ID, text)
		if _, err := users.Cancel(ctx, msg.From.ID, msg.Chat.ID); err != nil {
			log.WithError(err).Warn("reset user state")
		}
	}

	imageData, err := b.downloadFile(ctx, fileID)
	if err != nil {
		log.WithError(err).Warn("download photo")
		if errors.Is(err, errFileTooLarge) {
			fail(msgTooLarge)
			return
		}
		fail(msgProcessingError)
		return
	}

	out, err := b.app.DetectionService.Detect(ctx, imageData)
	if err != nil {
		if app.IsClientError(err) {
			fail(msgBadImage)
			return
		}
		log.WithError(err).Error("detection failed")
		fail(msgProcessingError)
		return
	}

	photo := tgbotapi.NewPhoto(msg.Chat.ID, tgbotapi.FileBytes{
		Name:  "detections.jpg",
		Bytes: out.Annotated.Data,
	})
	photo.Caption = FormatCaption(out.Detections)
	photo.ReplyToMessageID = msg.MessageID
	if _, err := b.api.Send(photo); err != nil {
		log.WithError(err).Error("send annotated photo")
	}

	if _, err := users.RecordResult(ctx, msg.From.ID, msg.Chat.ID, len(out.Detections)); err != nil {
		log.WithError(err).Warn("record result")
	}

	log.WithFields(logrus.Fields{
		"objects": len(out.Detections),
		"labels":  SummarizeLabels(out.Detections),
	}).Info("photo processed")
}

// ImageFileID выбирает файл для обработки: самое крупное фото
// или документ с MIME-типом image/*.
func ImageFileID(msg *tgbotapi.Message) (string, bool) {
	if len(msg.Photo) > 0 {
		return msg.Photo[len(msg.Photo)-1].FileID, true
	}
	if msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/") {
		return msg.Document.FileID, true
	}
	return "", false
}

// downloadFile скачивает файл из Telegram
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	if b.opts.MaxFileBytes > 0 && int64(file.FileSize) > b.opts.MaxFileBytes {
		return nil, errFileTooLarge
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.api.Token), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	return readLimited(resp.Body, b.opts.MaxFileBytes)
}

// readLimited читает не больше limit байт, 0 снимает ограничение
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, errFileTooLarge
	}
	return data, nil
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.WithError(err).WithField("chat_id", chatID).Warn("send message")
	}
}
