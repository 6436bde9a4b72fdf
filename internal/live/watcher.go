// Package live consumes the backend's live camera frame channel over a
// WebSocket. The watcher decodes frames and hands them to a caller-supplied
// handler; it carries no reconnect policy of its own, so a dropped channel
// surfaces as a returned error and the owner decides whether to dial again.
package live

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/avelar/videoseek/internal/storage"
)

// Static errors for the live channel.
var (
	// ErrLiveURL is returned when the channel URL cannot be derived or dialed.
	ErrLiveURL = errors.New("live: invalid channel URL")
	// ErrChannelClosed is returned when the channel ends from the remote side.
	ErrChannelClosed = errors.New("live: channel closed")
)

// Frame is one decoded live frame.
type Frame struct {
	// Image is the decoded JPEG payload.
	Image []byte
	// Timestamp is the backend's capture time in seconds, when reported.
	Timestamp float64
	// Detections are object labels the backend spotted in the frame.
	Detections []string
	// SpoolPath is the on-disk copy of the frame, when spooling is enabled.
	SpoolPath string
}

// FrameHandler receives decoded frames in arrival order. Returning an error
// stops the watcher.
type FrameHandler func(Frame) error

// frameMessage is the wire shape of one channel message.
type frameMessage struct {
	Frame      string   `json:"frame"`
	Timestamp  float64  `json:"timestamp"`
	Detections []string `json:"detections"`
}

// Watcher consumes a live frame channel.
type Watcher struct {
	dialer *websocket.Dialer
	spool  *storage.Local
	logger *slog.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithSpool saves every decoded frame to the given spool; the saved path is
// reported on the frame handed to the handler.
func WithSpool(spool *storage.Local) WatcherOption {
	return func(w *Watcher) {
		w.spool = spool
	}
}

// WithDialer replaces the WebSocket dialer.
func WithDialer(d *websocket.Dialer) WatcherOption {
	return func(w *Watcher) {
		w.dialer = d
	}
}

// NewWatcher creates a live channel watcher.
func NewWatcher(logger *slog.Logger, opts ...WatcherOption) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watcher{
		dialer: websocket.DefaultDialer,
		logger: logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ChannelURL derives the WebSocket channel URL from an HTTP base URL.
func ChannelURL(baseURL string) (string, error) {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://") + "/ws/live", nil
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://") + "/ws/live", nil
	default:
		return "", fmt.Errorf("%w: %q is not an http(s) URL", ErrLiveURL, baseURL)
	}
}

// Run dials the channel and delivers frames to handler until the context is
// cancelled, the handler returns an error, or the channel fails. The context
// error is returned on cancellation; a remote close returns ErrChannelClosed.
func (w *Watcher) Run(ctx context.Context, channelURL string, handler FrameHandler) error {
	conn, resp, err := w.dialer.DialContext(ctx, channelURL, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("%w: dial %s: status %d", ErrLiveURL, channelURL, resp.StatusCode)
		}
		return fmt.Errorf("%w: dial %s: %v", ErrLiveURL, channelURL, err)
	}
	defer func() { _ = conn.Close() }()

	// Unblock the read loop when the context is cancelled.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	w.logger.Info("live channel open", slog.String("url", channelURL))

	for seq := 0; ; seq++ {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return ErrChannelClosed
			}
			return fmt.Errorf("%w: %v", ErrChannelClosed, err)
		}

		frame, err := w.decodeFrame(ctx, payload, seq)
		if err != nil {
			// A malformed message is logged and skipped, not fatal.
			w.logger.Warn("skipping malformed live frame", slog.String("error", err.Error()))
			continue
		}
		if err := handler(frame); err != nil {
			return err
		}
	}
}

// decodeFrame parses one channel message and optionally spools the image.
func (w *Watcher) decodeFrame(ctx context.Context, payload []byte, seq int) (Frame, error) {
	var msg frameMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Frame{}, fmt.Errorf("decode message: %w", err)
	}
	image, err := base64.StdEncoding.DecodeString(msg.Frame)
	if err != nil {
		return Frame{}, fmt.Errorf("decode frame payload: %w", err)
	}

	frame := Frame{
		Image:      image,
		Timestamp:  msg.Timestamp,
		Detections: msg.Detections,
	}
	if w.spool != nil {
		path, err := w.spool.Save(ctx, fmt.Sprintf("live_%06d.jpg", seq), bytes.NewReader(image))
		if err != nil {
			w.logger.Warn("spooling live frame failed", slog.String("error", err.Error()))
		} else {
			frame.SpoolPath = path
		}
	}
	return frame, nil
}
