package entity

import "time"

// UserState состояние пользователя в диалоге с ботом
type UserState string

const (
	StateMainMenu      UserState = "main_menu"      // В главном меню
	StateAwaitingPhoto UserState = "awaiting_photo" // Ожидание фото для детекции
	StateProcessing    UserState = "processing"     // Идёт обработка изображения
)

// User представляет пользователя бота
type User struct {
	ID              int64     // Telegram User ID
	ChatID          int64     // Telegram Chat ID
	State           UserState // Текущее состояние пользователя
	ProcessedImages int       // Сколько фото обработано за сессию
	LastObjects     int       // Число объектов на последнем фото
	LastProcessedAt time.Time
}

// NewUser создаёт нового пользователя с начальным состоянием
func NewUser(userID, chatID int64) *User {
	return &User{
		ID:     userID,
		ChatID: chatID,
		State:  StateMainMenu,
	}
}

// SetState обновляет состояние пользователя
func (u *User) SetState(state UserState) {
	u.State = state
}

// RecordResult фиксирует итог обработки и возвращает пользователя в меню.
func (u *User) RecordResult(objects int, at time.Time) {
	u.ProcessedImages++
	u.LastObjects = objects
	u.LastProcessedAt = at
	u.State = StateMainMenu
}
