// Telegram [ChannelSource] implementation
//
// Communicates with the telethon proxy sidecar (scraper/) running on port
// 8081. The proxy wraps the telethon Python library, which owns the MTProto
// session; this client only speaks JSON over localhost.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/desertthunder/chantify/internal/models"
	"github.com/desertthunder/chantify/internal/shared"
)

const defaultTGBaseURL string = "http://localhost:8081"

// telegramChannel mirrors the proxy's channel resolution response.
type telegramChannel struct {
	Title       string `json:"title"`
	Username    string `json:"username"`
	ID          int64  `json:"id"`
	Description string `json:"about"`
	Subscribers int    `json:"participants_count"`
}

// telegramAudio mirrors one audio message entry from the proxy.
type telegramAudio struct {
	MessageID   int64  `json:"message_id"`
	Title       string `json:"title"`
	Performer   string `json:"performer"`
	FileName    string `json:"file_name"`
	DurationSec int    `json:"duration"`
	SizeBytes   int64  `json:"size"`
	MimeType    string `json:"mime_type"`
	Date        string `json:"date"`
	Caption     string `json:"caption"`
}

// TelegramService implements [ChannelSource] via the telethon proxy.
type TelegramService struct {
	baseURL    string
	httpClient *http.Client
}

// NewTelegramService creates a new Telegram service instance.
func NewTelegramService(baseURL string) *TelegramService {
	if baseURL == "" {
		baseURL = defaultTGBaseURL
	}

	return &TelegramService{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
	}
}

// Name returns the service name.
func (t *TelegramService) Name() string {
	return "Telegram"
}

// doRequest performs a request against the proxy and decodes the JSON
// response. A 429 from the proxy (telethon FloodWaitError) is surfaced as
// *RateLimitError carrying the platform-given delay.
func (t *TelegramService) doRequest(ctx context.Context, method, endpoint string, result any) error {
	apiURL := t.baseURL + endpoint

	req, err := http.NewRequestWithContext(ctx, method, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{RetryAfter: floodWait(resp)}
	}

	if resp.StatusCode == http.StatusNotFound {
		return shared.ErrChannelNotFound
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Detail != "" {
			return fmt.Errorf("%w: telegram proxy status %d: %s", shared.ErrAPIRequest, resp.StatusCode, errResp.Detail)
		}
		return fmt.Errorf("%w: telegram proxy status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// floodWait reads the proxy's retry_after header (seconds), defaulting to
// five seconds when missing.
func floodWait(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 5 * time.Second
}

// ResolveChannel resolves a channel handle to its info.
//
// Flood-wait signals are retried indefinitely, sleeping out the
// platform-given delay each round. Telegram flood waits are short-lived,
// so the loop has no attempt ceiling; cancellation comes from ctx.
func (t *TelegramService) ResolveChannel(ctx context.Context, handle string) (*models.ChannelInfo, error) {
	endpoint := fmt.Sprintf("/api/channels/%s", url.PathEscape(handle))

	for {
		var ch telegramChannel
		err := t.doRequest(ctx, http.MethodGet, endpoint, &ch)
		if err == nil {
			return &models.ChannelInfo{
				Title:       ch.Title,
				Username:    ch.Username,
				ID:          ch.ID,
				Description: ch.Description,
				Subscribers: ch.Subscribers,
			}, nil
		}

		var rl *RateLimitError
		if !errors.As(err, &rl) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(rl.RetryAfter):
		}
	}
}

// DownloadAvatar streams the channel avatar from the proxy to the given
// local path.
func (t *TelegramService) DownloadAvatar(ctx context.Context, handle, path string) (string, error) {
	apiURL := fmt.Sprintf("%s/api/channels/%s/avatar", t.baseURL, url.PathEscape(handle))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("channel has no avatar")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: avatar download status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create avatar file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", fmt.Errorf("failed to write avatar file: %w", err)
	}

	return path, nil
}

// ChannelAudio returns metadata for the channel's audio messages in
// ascending message-ID order.
//
// The proxy applies the audio filter (native audio payloads plus documents
// with an audio/* MIME type) and the scan limit; this client maps entries
// onto [models.AudioRecord].
func (t *TelegramService) ChannelAudio(ctx context.Context, handle string, limit int) ([]models.AudioRecord, error) {
	endpoint := fmt.Sprintf("/api/channels/%s/audio?limit=%d", url.PathEscape(handle), limit)

	var entries []telegramAudio
	if err := t.doRequest(ctx, http.MethodGet, endpoint, &entries); err != nil {
		return nil, err
	}

	records := make([]models.AudioRecord, len(entries))
	for i, entry := range entries {
		records[i] = models.AudioRecord{
			Artist:      entry.Performer,
			Title:       entry.Title,
			FileName:    entry.FileName,
			DurationSec: entry.DurationSec,
			FileSizeMB:  roundMB(entry.SizeBytes),
			MimeType:    entry.MimeType,
			MessageID:   entry.MessageID,
			Date:        entry.Date,
			Caption:     entry.Caption,
		}
	}

	return records, nil
}

// roundMB converts bytes to megabytes rounded to two decimals, the shape
// the intermediate document records.
func roundMB(size int64) float64 {
	mb := float64(size) / (1024 * 1024)
	return float64(int64(mb*100+0.5)) / 100
}
