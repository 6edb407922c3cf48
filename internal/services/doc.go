// Package services implements clients for the two external collaborators:
// Telegram (source) and Spotify (destination).
//
// # Telegram
//
// [TelegramService] talks to the telethon proxy sidecar over localhost
// HTTP. Telethon is Python-only and owns the MTProto session, phone-number
// auth, and the audio message filter; the proxy exposes the three
// operations this tool consumes: channel resolution, avatar download, and
// audio metadata listing. A FloodWaitError inside the proxy becomes a 429
// with a Retry-After header, which [TelegramService.ResolveChannel]
// retries in an explicit loop.
//
// # Spotify
//
// [SpotifyService] is a direct Web API client authenticated via [oauth2]
// with automatic token refresh. It carries the write scopes the sync
// stage needs (playlist-modify-public, playlist-modify-private,
// ugc-image-upload). A 429 from any endpoint surfaces as *RateLimitError
// with the server's Retry-After value so the sync engine can apply its
// bounded exponential backoff.
//
// # Error Handling
//
// Both clients wrap failures with sentinels from the shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called
//   - [shared.ErrRateLimited] : matched via errors.Is against *RateLimitError
//   - [shared.ErrAPIRequest] : HTTP request failed
//   - [shared.ErrChannelNotFound] : handle did not resolve
package services
