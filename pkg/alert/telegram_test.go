package alert

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEscapeMarkdownV2(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"a.b!c", `a\.b\!c`},
		{"_*[]()~`>#+-=|{}.!", "\\_\\*\\[\\]\\(\\)\\~\\`\\>\\#\\+\\-\\=\\|\\{\\}\\.\\!"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := EscapeMarkdownV2(tc.in); got != tc.want {
			t.Errorf("EscapeMarkdownV2(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestTelegram_Notify(t *testing.T) {
	var gotPath string
	var gotBody sendMessageRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &gotBody)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegram("TOKEN", "CHAT", WithBaseURL(srv.URL))
	if err := tg.Notify(context.Background(), "fire!"); err != nil {
		t.Fatalf("Notify error: %v", err)
	}

	if gotPath != "/botTOKEN/sendMessage" {
		t.Errorf("path = %q; want /botTOKEN/sendMessage", gotPath)
	}
	if gotBody.ChatID != "CHAT" {
		t.Errorf("chat_id = %q; want CHAT", gotBody.ChatID)
	}
	if gotBody.Text != `fire\!` {
		t.Errorf("text = %q; want escaped", gotBody.Text)
	}
	if gotBody.ParseMode != "MarkdownV2" {
		t.Errorf("parse_mode = %q; want MarkdownV2", gotBody.ParseMode)
	}
}

func TestTelegram_NotifyRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"description":"bad token"}`))
	}))
	defer srv.Close()

	tg := NewTelegram("TOKEN", "CHAT", WithBaseURL(srv.URL))
	if err := tg.Notify(context.Background(), "x"); err == nil {
		t.Error("Notify = nil; want error for refused message")
	}
}
