package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/psoares/flashdeck/internal/logging"
)

const (
	defaultRequestTimeout = 30 * time.Second
	genericErrorMessage   = "The server returned an unexpected response."
)

// TokenStore supplies the bearer token attached to authenticated requests and
// receives the token produced by a successful login. Injected rather than held
// as package state so tests can run several simulated sessions side by side.
type TokenStore interface {
	Token() string
	Save(token string) error
}

// Client is the single outbound HTTP boundary to the flashcard backend.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenStore
	log     *logging.Logger
}

// Option adjusts client construction.
type Option func(*Client)

// WithHTTPClient substitutes the underlying http.Client (used by tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New builds a gateway for the backend at baseURL.
func New(baseURL string, tokens TokenStore, log *logging.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultRequestTimeout},
		tokens:  tokens,
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login exchanges credentials for an access token and persists it.
func (c *Client) Login(ctx context.Context, username, password string) (Token, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var token Token
	err := c.do(ctx, http.MethodPost, "/token",
		strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", false, &token)
	if err != nil {
		return Token{}, err
	}
	if err := c.tokens.Save(token.AccessToken); err != nil {
		return Token{}, fmt.Errorf("store access token: %w", err)
	}
	return token, nil
}

// LoginWithGoogle exchanges an OAuth authorization code for an access token.
func (c *Client) LoginWithGoogle(ctx context.Context, code string) (Token, error) {
	var token Token
	err := c.postJSON(ctx, "/google", map[string]string{"code": code}, false, &token)
	if err != nil {
		return Token{}, err
	}
	if err := c.tokens.Save(token.AccessToken); err != nil {
		return Token{}, fmt.Errorf("store access token: %w", err)
	}
	return token, nil
}

// Register creates a new account. Validation failures carry the backend's
// message verbatim (duplicate email, weak password, ...).
func (c *Client) Register(ctx context.Context, username, email, password string) (User, error) {
	payload := map[string]string{"username": username, "email": email, "password": password}
	var user User
	err := c.postJSON(ctx, "/users", payload, true, &user)
	return user, err
}

// CurrentUser returns the profile for the stored token.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	var user User
	err := c.getJSON(ctx, "/users/me", &user)
	return user, err
}

// ListDocuments returns all of the user's documents in server order.
func (c *Client) ListDocuments(ctx context.Context) ([]Document, error) {
	var docs []Document
	err := c.getJSON(ctx, "/documents/", &docs)
	return docs, err
}

// GetDocument returns a single document snapshot.
func (c *Client) GetDocument(ctx context.Context, id int) (Document, error) {
	var doc Document
	err := c.getJSON(ctx, fmt.Sprintf("/documents/%d", id), &doc)
	return doc, err
}

// UploadDocument submits file bytes for flashcard generation. The returned
// document starts in PROCESSING.
func (c *Client) UploadDocument(ctx context.Context, filename string, file []byte, title string, numFlashcards int, difficulty string) (Document, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return Document{}, transportError(err)
	}
	if _, err := part.Write(file); err != nil {
		return Document{}, transportError(err)
	}
	fields := map[string]string{
		"title":          title,
		"num_flashcards": strconv.Itoa(numFlashcards),
		"difficulty":     difficulty,
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return Document{}, transportError(err)
		}
	}
	if err := writer.Close(); err != nil {
		return Document{}, transportError(err)
	}

	var doc Document
	err = c.do(ctx, http.MethodPost, "/documents/upload", &body, writer.FormDataContentType(), true, &doc)
	return doc, err
}

// CreateDocumentFromText submits pasted text for flashcard generation.
func (c *Client) CreateDocumentFromText(ctx context.Context, text, title string, numFlashcards int, difficulty string) (Document, error) {
	payload := map[string]any{
		"text":           text,
		"title":          title,
		"num_flashcards": numFlashcards,
		"difficulty":     difficulty,
	}
	var doc Document
	err := c.postJSON(ctx, "/documents/text", payload, true, &doc)
	return doc, err
}

// CancelProcessing asks the backend to abort an in-flight generation job.
// Conflict means the document is no longer cancellable.
func (c *Client) CancelProcessing(ctx context.Context, id int) (string, error) {
	var ack struct {
		Message string `json:"message"`
	}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/documents/%d/cancel", id), nil, "", true, &ack)
	return ack.Message, err
}

// ListFlashcards returns a document's full flashcard set in presentation order.
func (c *Client) ListFlashcards(ctx context.Context, documentID int) ([]Flashcard, error) {
	var cards []Flashcard
	err := c.getJSON(ctx, fmt.Sprintf("/documents/%d/flashcards", documentID), &cards)
	return cards, err
}

// GetFlashcard returns a single flashcard.
func (c *Client) GetFlashcard(ctx context.Context, id int) (Flashcard, error) {
	var card Flashcard
	err := c.getJSON(ctx, fmt.Sprintf("/flashcards/%d", id), &card)
	return card, err
}

// MarkStudied records a study event for the flashcard. Idempotent on the
// server: repeating the call for the same id has the same effect as once.
func (c *Client) MarkStudied(ctx context.Context, flashcardID int) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/flashcards/%d/study", flashcardID), nil, "", true, nil)
}

// Chat sends one user message about a flashcard and returns the assistant reply.
func (c *Client) Chat(ctx context.Context, flashcardID int, message string) (ChatResponse, error) {
	var reply ChatResponse
	err := c.postJSON(ctx, fmt.Sprintf("/flashcards/%d/chat", flashcardID), map[string]string{"message": message}, true, &reply)
	return reply, err
}

// ListConversations returns prior chat exchanges for a flashcard, oldest first.
func (c *Client) ListConversations(ctx context.Context, flashcardID int) ([]Conversation, error) {
	var conversations []Conversation
	err := c.getJSON(ctx, fmt.Sprintf("/flashcards/%d/conversations", flashcardID), &conversations)
	return conversations, err
}

// ProgressStats returns aggregate study statistics. utcOffsetMinutes shifts the
// backend's day boundaries to the user's local midnight.
func (c *Client) ProgressStats(ctx context.Context, utcOffsetMinutes int) (ProgressStats, error) {
	var stats ProgressStats
	err := c.getJSON(ctx, fmt.Sprintf("/progress/stats?utc_offset_minutes=%d", utcOffsetMinutes), &stats)
	return stats, err
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, "", true, out)
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, auth bool, out any) error {
	buf, err := json.Marshal(payload)
	if err != nil {
		return transportError(err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(buf), "application/json", auth, out)
}

// do issues one request and normalizes the outcome: 204 is a successful empty
// result, any non-2xx becomes an *Error with the body's detail message, and
// transport failures become KindNetwork errors.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, auth bool, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return transportError(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if auth {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed", "method", method, "path", path, "error", err)
		return transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &Error{
			Kind:    classifyStatus(resp.StatusCode),
			Status:  resp.StatusCode,
			Message: detailMessage(resp.Body),
		}
		c.log.Warn("request rejected", "method", method, "path", path, "status", resp.StatusCode, "kind", apiErr.Kind.String())
		return apiErr
	}
	if resp.StatusCode == http.StatusNoContent || out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return transportError(fmt.Errorf("decode %s %s response: %w", method, path, err))
	}
	return nil
}

// detailMessage extracts the backend's {"detail": ...} error text, falling
// back to a generic message when the body is not parseable.
func detailMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return genericErrorMessage
	}
	var parsed struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil || strings.TrimSpace(parsed.Detail) == "" {
		return genericErrorMessage
	}
	return parsed.Detail
}
