package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/tutorbot/internal/inference"
)

// bestPhoto returns the size with the most pixels.
func bestPhoto(sizes []models.PhotoSize) models.PhotoSize {
	var best models.PhotoSize
	bestQuality := -1
	for _, photo := range sizes {
		quality := photo.Width * photo.Height
		if quality > bestQuality {
			bestQuality = quality
			best = photo
		}
	}
	return best
}

// DownloadPhoto downloads a file from Telegram using the provided file ID.
// It returns the raw bytes and the detected MIME type. Files larger than
// maxBytes are rejected.
func DownloadPhoto(ctx context.Context, b *bot.Bot, client *http.Client, fileID string, maxBytes int64, timeout time.Duration) (inference.Image, error) {
	if fileID == "" {
		return inference.Image{}, fmt.Errorf("empty fileID provided for photo download")
	}
	if ctx.Err() != nil {
		return inference.Image{}, fmt.Errorf("context cancelled before file download: %w", ctx.Err())
	}

	downloadCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fileObj, err := b.GetFile(downloadCtx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return inference.Image{}, fmt.Errorf("failed to get file info from Telegram: %w", redactURLError(err))
	}
	if fileObj.FilePath == "" {
		return inference.Image{}, fmt.Errorf("empty file path returned from Telegram for file ID %s", fileID)
	}
	if fileObj.FileSize > maxBytes {
		return inference.Image{}, fmt.Errorf("photo is too large: %d bytes", fileObj.FileSize)
	}

	// The link embeds the bot token; it must never be logged or put in errors.
	req, err := http.NewRequestWithContext(downloadCtx, http.MethodGet, b.FileDownloadLink(fileObj), nil)
	if err != nil {
		return inference.Image{}, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return inference.Image{}, fmt.Errorf("failed to download file %s: %w", fileObj.FilePath, redactURLError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return inference.Image{}, fmt.Errorf("unexpected status code %d downloading %s", resp.StatusCode, fileObj.FilePath)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return inference.Image{}, fmt.Errorf("failed to read file data: %w", redactURLError(err))
	}
	if len(data) == 0 {
		return inference.Image{}, fmt.Errorf("received empty file data for %s", fileObj.FilePath)
	}
	if int64(len(data)) > maxBytes {
		return inference.Image{}, fmt.Errorf("photo exceeds %d bytes", maxBytes)
	}

	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		// Telegram re-encodes photos as JPEG.
		mimeType = "image/jpeg"
	}
	return inference.Image{Data: data, MIMEType: mimeType}, nil
}

// redactURLError drops the request URL (which carries the token) from transport errors.
func redactURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}
