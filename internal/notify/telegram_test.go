package notify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/stock-monitor/internal/notify"
)

func TestTelegramNotifier_Send(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		token      string
		chatID     string
		statusCode int
		respBody   string
		wantErr    string
	}{
		{
			name:       "success",
			token:      "123:abc",
			chatID:     "-100200",
			statusCode: http.StatusOK,
			respBody:   `{"ok":true,"result":{}}`,
		},
		{
			name:       "api error surfaces description",
			token:      "123:abc",
			chatID:     "-100200",
			statusCode: http.StatusBadRequest,
			respBody:   `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`,
			wantErr:    "chat not found",
		},
		{
			name:       "non json error body",
			token:      "123:abc",
			chatID:     "-100200",
			statusCode: http.StatusBadGateway,
			respBody:   `upstream down`,
			wantErr:    "telegram returned 502: upstream down",
		},
		{
			name:    "missing credentials",
			chatID:  "-100200",
			wantErr: "token or chat_id missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got map[string]any
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/bot"+tt.token+"/sendMessage", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.respBody))
			}))
			t.Cleanup(srv.Close)

			n := notify.NewTelegramNotifier(tt.token, tt.chatID, notify.WithTelegramAPIURL(srv.URL))
			err := n.Send(context.Background(), notify.Message{Text: "<b>hi</b>"})

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.chatID, got["chat_id"])
			assert.Equal(t, "<b>hi</b>", got["text"])
			assert.Equal(t, "HTML", got["parse_mode"])
			assert.Equal(t, true, got["disable_web_page_preview"])
		})
	}
}

func TestTelegramNotifier_NetworkErrorRedactsToken(t *testing.T) {
	t.Parallel()

	n := notify.NewTelegramNotifier("123:secret", "1",
		notify.WithTelegramAPIURL("http://127.0.0.1:1"),
		notify.WithTelegramHTTPClient(&http.Client{}),
	)
	err := n.Send(context.Background(), notify.Message{Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sending telegram message")
	assert.NotContains(t, err.Error(), "secret")
}
