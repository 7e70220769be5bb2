package api

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// Status is a document's processing state as reported by the backend.
type Status string

const (
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
)

// Terminal reports whether the backend will never transition this status again.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Timestamp decodes the backend's created_at strings. FastAPI serializes naive
// datetimes without a zone offset, so a plain time.Time would reject them.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", raw)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.Format(time.RFC3339) + `"`), nil
}

// Document is one uploaded/pasted unit of source material and its generation job.
// Every field is concrete: the gateway is the only place wire data is decoded,
// and missing fields default here rather than leaking optionality upward.
type Document struct {
	ID                  int       `json:"id"`
	FilePath            string    `json:"file_path"`
	Status              Status    `json:"status"`
	ExtractedText       string    `json:"extracted_text"`
	UserID              int       `json:"user_id"`
	FolderID            int       `json:"folder_id"`
	ProcessingProgress  int       `json:"processing_progress"`
	CurrentStep         string    `json:"current_step"`
	CanCancel           bool      `json:"can_cancel"`
	CreatedAt           Timestamp `json:"created_at"`
	TotalFlashcards     int       `json:"total_flashcards"`
	StudiedFlashcards   int       `json:"studied_flashcards"`
	StudiedFlashcardIDs []int     `json:"studied_flashcard_ids"`
}

// DisplayName derives a human-readable set name from the stored file path.
func (d Document) DisplayName() string {
	base := path.Base(d.FilePath)
	if base == "." || base == "/" || base == "" {
		return "Study Set"
	}
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return strings.ReplaceAll(base, "_", " ")
}

// CardType is a presentation hint for a flashcard; it has no behavioral effect.
type CardType string

const (
	CardConcept    CardType = "concept"
	CardCode       CardType = "code"
	CardDiagram    CardType = "diagram"
	CardExample    CardType = "example"
	CardComparison CardType = "comparison"
)

// Flashcard is one question/answer pair belonging to exactly one document.
type Flashcard struct {
	ID         int      `json:"id"`
	Front      string   `json:"front"`
	Back       string   `json:"back"`
	Type       CardType `json:"type"`
	DocumentID int      `json:"document_id"`
}

// User is the authenticated profile returned by /users/me.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`
}

// Token is the access token payload returned by the login endpoints.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// ChatResponse is the assistant reply for one chat turn about a flashcard.
type ChatResponse struct {
	Response       string `json:"response"`
	ConversationID int    `json:"conversation_id"`
}

// Conversation is one stored question/answer exchange about a flashcard.
type Conversation struct {
	ID                int       `json:"id"`
	UserMessage       string    `json:"user_message"`
	AssistantResponse string    `json:"assistant_response"`
	CreatedAt         Timestamp `json:"created_at"`
	FlashcardID       int       `json:"flashcard_id"`
}

// ProgressStats aggregates a user's study activity. WeeklyActivity holds seven
// per-day counts, Sunday first.
type ProgressStats struct {
	CardsStudiedWeek int     `json:"cards_studied_week"`
	StreakDays       int     `json:"streak_days"`
	GeneralAccuracy  float64 `json:"general_accuracy"`
	WeeklyActivity   []int   `json:"weekly_activity"`
}
