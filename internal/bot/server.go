// Package bot serves the Telegram webhook that lets the user control alerts
// from the chat itself: /stop (or /boarded) pauses, /start resumes. It flips
// the same pause file the check cycle consults.
package bot

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/qu-genesis/metro-transit-pings/internal/state"
)

const helpText = "🚌 *Bus Alert Bot Commands*\n\n" +
	"/stop - Pause all bus alerts\n" +
	"/boarded - Same as /stop (use when you've boarded)\n" +
	"/start - Resume bus alerts\n" +
	"/status - Show whether alerts are paused\n" +
	"/help - Show this help message"

// Sender matches notify.Sender; redeclared locally so the package depends
// only on what it uses.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// Server handles Telegram webhook updates.
type Server struct {
	gate   *state.PauseGate
	sender Sender
	logger *slog.Logger

	// secret is compared against Telegram's X-Telegram-Bot-Api-Secret-Token
	// header; empty disables the check (local testing only).
	secret string
	// chatID restricts commands to the owner's chat.
	chatID string
}

func NewServer(gate *state.PauseGate, sender Sender, secret, chatID string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{gate: gate, sender: sender, logger: logger, secret: secret, chatID: chatID}
}

// Router builds the chi router for the webhook endpoint.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/telegram/webhook", s.handleWebhook)
	return r
}

// update is the subset of a Telegram update the bot cares about.
type update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

// handleWebhook processes one update. It always answers 200 once the payload
// is readable; returning errors would only make Telegram redeliver the same
// update.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if s.secret != "" && r.Header.Get("X-Telegram-Bot-Api-Secret-Token") != s.secret {
		s.logger.Warn("webhook call with bad secret token", "remote", r.RemoteAddr)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var u update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		s.logger.Warn("undecodable webhook payload", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)

	if u.Message == nil || u.Message.Text == "" {
		return
	}
	if s.chatID != "" && strconv.FormatInt(u.Message.Chat.ID, 10) != s.chatID {
		s.logger.Warn("command from unexpected chat", "chat_id", u.Message.Chat.ID)
		return
	}

	s.handleCommand(r.Context(), command(u.Message.Text))
}

// command extracts the leading bot command, dropping any @BotName suffix.
func command(text string) string {
	cmd, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return strings.ToLower(cmd)
}

func (s *Server) handleCommand(ctx context.Context, cmd string) {
	var reply string
	switch cmd {
	case "/stop", "/boarded":
		if err := s.gate.Set(true); err != nil {
			s.logger.Error("could not set pause flag", "error", err)
			reply = "❌ Failed to pause alerts. Please try again."
			break
		}
		reply = "⏸️ Bus alerts paused!\n\nYou won't receive any more alerts until you send /start"
	case "/start":
		if err := s.gate.Set(false); err != nil {
			s.logger.Error("could not clear pause flag", "error", err)
			reply = "❌ Failed to resume alerts. Please try again."
			break
		}
		reply = "▶️ Bus alerts resumed!\n\nYou'll receive alerts again during your scheduled window."
	case "/status":
		if s.gate.IsPaused() {
			reply = "⏸️ Alerts are currently paused. Send /start to resume."
		} else {
			reply = "✅ Alerts are active."
		}
	case "/help":
		reply = helpText
	default:
		return // not a command we handle
	}

	s.logger.Info("handled bot command", "command", cmd)
	if err := s.sender.Send(ctx, reply); err != nil {
		s.logger.Error("could not send reply", "command", cmd, "error", err)
	}
}
