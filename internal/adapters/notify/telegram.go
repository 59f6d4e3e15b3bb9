package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Telegram implementa ports.Notifier contra la Bot API de Telegram.
// Sin token o chat ID queda deshabilitado (no-op): notificar es opcional
// y sus fallas nunca afectan el tick.
type Telegram struct {
	http    *http.Client
	baseURL string
	token   string
	chatID  string
}

// NewTelegram crea el notificador. baseURL vacío usa api.telegram.org.
func NewTelegram(baseURL, token, chatID string) *Telegram {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &Telegram{
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		chatID:  chatID,
	}
}

// Enabled indica si hay credenciales configuradas.
func (t *Telegram) Enabled() bool {
	return t.token != "" && t.chatID != ""
}

// Notify envía el texto al chat configurado. Best effort: los errores se
// loguean en debug y se descartan.
func (t *Telegram) Notify(ctx context.Context, text string) {
	if !t.Enabled() {
		return
	}

	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", text)

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.http.Do(req)
	if err != nil {
		slog.Debug("telegram notify failed", "err", err)
		return
	}
	resp.Body.Close()
}
