package model

// MediaKind describes the single attachment a relayed message carries.
type MediaKind string

const (
	MediaNone      MediaKind = ""
	MediaPhoto     MediaKind = "photo"
	MediaVideo     MediaKind = "video"
	MediaDocument  MediaKind = "document"
	MediaAudio     MediaKind = "audio"
	MediaVoice     MediaKind = "voice"
	MediaAnimation MediaKind = "animation"
)

// Message is the transport-neutral view of one inbound Telegram message,
// carrying just what routing and relaying need.
type Message struct {
	ID       int
	ChatID   int64
	ThreadID int   // forum topic thread id, 0 outside topics
	SenderID int64 // Telegram user id of the author

	AlbumID string // media-group id; empty for standalone messages
	Text    string
	Caption string
	Kind    MediaKind
	FileID  string
}

func (m Message) PartOfAlbum() bool { return m.AlbumID != "" }

// Batch is an ordered set of messages sharing one media-group id,
// reassembled by the album accumulator into one logical post.
type Batch []Message
