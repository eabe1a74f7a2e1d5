package handler

import (
	"net/http"
	"strings"
	"text/template"

	"github.com/aqibaliakbar/chatbuddy/internal/api/middleware"
	"github.com/aqibaliakbar/chatbuddy/internal/api/response"
	"github.com/google/uuid"
)

// widgetTemplate is the embed snippet external sites paste in.
var widgetTemplate = template.Must(template.New("widget").Parse(
	`<script src="{{.Scheme}}://{{.Domain}}/widget.js" data-chatbot-id="{{.ChatbotID}}" data-owner-id="{{.OwnerID}}" defer></script>
<iframe src="{{.Scheme}}://{{.Domain}}/embed/{{.ChatbotID}}?owner={{.OwnerID}}" title="Support chat" style="border:none;position:fixed;bottom:16px;right:16px;width:380px;height:560px;z-index:9999"></iframe>`))

// WidgetHandler generates the embeddable widget snippet
type WidgetHandler struct {
	domain string
}

// NewWidgetHandler creates a new widget handler
func NewWidgetHandler(domain string) *WidgetHandler {
	return &WidgetHandler{domain: domain}
}

// Snippet returns the script/iframe snippet for a chatbot
func (h *WidgetHandler) Snippet(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	chatbotID, err := uuid.Parse(r.URL.Query().Get("chatbot_id"))
	if err != nil {
		response.BadRequest(w, "invalid chatbot id")
		return
	}

	scheme := "https"
	if strings.HasPrefix(h.domain, "localhost") {
		scheme = "http"
	}

	var b strings.Builder
	err = widgetTemplate.Execute(&b, map[string]any{
		"Scheme":    scheme,
		"Domain":    h.domain,
		"ChatbotID": chatbotID,
		"OwnerID":   userID,
	})
	if err != nil {
		response.InternalError(w, "could not render snippet")
		return
	}

	response.OK(w, map[string]string{
		"snippet": b.String(),
		"domain":  h.domain,
	})
}
