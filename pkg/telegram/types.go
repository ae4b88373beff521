package telegram

// Minimal subset of the Bot API types this backend consumes.

type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"` // private, group, supergroup, channel
}

type Message struct {
	MessageID int64       `json:"message_id"`
	From      *User       `json:"from"`
	Chat      Chat        `json:"chat"`
	Text      string      `json:"text,omitempty"`
	Document  *Document   `json:"document,omitempty"`
	Photo     []PhotoSize `json:"photo,omitempty"`
	Video     *Document   `json:"video,omitempty"`
	Audio     *Document   `json:"audio,omitempty"`
	Voice     *Document   `json:"voice,omitempty"`
	VideoNote *Document   `json:"video_note,omitempty"`
	Sticker   *Document   `json:"sticker,omitempty"`
}

type Document struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name,omitempty"`
}

type PhotoSize struct {
	FileID string `json:"file_id"`
}

type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data"`
}

// Attachment returns the file reference carried by the message, if any. Photos use
// the largest size; unnamed attachments get a generic placeholder name.
func (m *Message) Attachment() (fileID, fileName string, ok bool) {
	switch {
	case m.Document != nil:
		return m.Document.FileID, orDefault(m.Document.FileName, "document"), true
	case len(m.Photo) > 0:
		return m.Photo[len(m.Photo)-1].FileID, "photo.jpg", true
	case m.Video != nil:
		return m.Video.FileID, orDefault(m.Video.FileName, "video.mp4"), true
	case m.Audio != nil:
		return m.Audio.FileID, orDefault(m.Audio.FileName, "audio.mp3"), true
	case m.Voice != nil:
		return m.Voice.FileID, "voice.ogg", true
	case m.VideoNote != nil:
		return m.VideoNote.FileID, "video_note.mp4", true
	case m.Sticker != nil:
		return m.Sticker.FileID, "sticker.webp", true
	}
	return "", "", false
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// Keyboards.

type InlineKeyboardButton struct {
	Text         string `json:"text"`
	URL          string `json:"url,omitempty"`
	CallbackData string `json:"callback_data,omitempty"`
}

type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

type KeyboardButton struct {
	Text string `json:"text"`
}

type ReplyKeyboardMarkup struct {
	Keyboard       [][]KeyboardButton `json:"keyboard"`
	ResizeKeyboard bool               `json:"resize_keyboard,omitempty"`
}

type ChatMember struct {
	Status string `json:"status"` // creator, administrator, member, restricted, left, kicked
}
