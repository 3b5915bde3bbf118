package bot

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// HTTPServer serves the webhook endpoint together with health and metrics
type HTTPServer struct {
	bot         *Bot
	webhookPath string
}

// NewHTTPServer creates the HTTP front of the bot
func NewHTTPServer(bot *Bot, webhookPath string) *HTTPServer {
	return &HTTPServer{
		bot:         bot,
		webhookPath: webhookPath,
	}
}

// Router builds the chi router with all routes registered
func (hs *HTTPServer) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post(hs.webhookPath, hs.handleWebhook)

	return r
}

// handleWebhook decodes an update and hands it off so Telegram gets a quick answer
func (hs *HTTPServer) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		hs.bot.logger.Warn("Failed to decode webhook update",
			zap.Error(err),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	hs.bot.Dispatch(update)
	w.WriteHeader(http.StatusOK)
}
