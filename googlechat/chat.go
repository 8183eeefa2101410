// Package googlechat handles the Google Chat webhook: it extracts a link from
// a direct message and submits it as an article on behalf of the sender.
package googlechat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"

	"github.com/rs/zerolog"
)

var (
	ErrNotAMessage = errors.New("event is not a message")
	ErrInGroup     = errors.New("event refers to a group chat")
	ErrNoLink      = errors.New("message contains no link")
)

var linkPattern = regexp.MustCompile(`https?://[-a-zA-Z0-9@:%._+~#=]{1,256}\.[a-zA-Z0-9()]{1,6}\b[-a-zA-Z0-9()@:%_+.~#?/&=]*`)

// Event is the subset of a Google Chat webhook payload the bot reacts to.
type Event struct {
	Type  string `json:"type"`
	Token string `json:"token"`
	Space struct {
		SingleUserBotDM bool `json:"singleUserBotDm"`
	} `json:"space"`
	Message struct {
		Text   string `json:"text"`
		Sender struct {
			Email string `json:"email"`
		} `json:"sender"`
	} `json:"message"`
}

// Submission is a link attributed to the chat sender who posted it.
type Submission struct {
	Link     string
	Referrer string
}

// ParseEvent validates the event and extracts the submitted link. Only direct
// messages are handled for now.
func ParseEvent(event Event) (Submission, error) {
	if event.Type != "MESSAGE" {
		return Submission{}, ErrNotAMessage
	}
	if !event.Space.SingleUserBotDM {
		return Submission{}, ErrInGroup
	}
	link := linkPattern.FindString(event.Message.Text)
	if link == "" {
		return Submission{}, ErrNoLink
	}
	return Submission{Link: link, Referrer: event.Message.Sender.Email}, nil
}

// CreateFunc submits an article on behalf of a chat sender.
type CreateFunc func(ctx context.Context, link, referrer string) error

type Handler struct {
	Create CreateFunc
	// VerificationToken, when set, must match the event token. The value
	// comes from Secrets Manager, not from configuration files.
	VerificationToken string
}

type reply struct {
	Text string `json:"text"`
}

// ServeHTTP handles POST /chats/google. Chat expects a 200 with a text body
// on every outcome; errors are reported to the user as bot replies.
func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	logger := zerolog.Ctx(req.Context())

	var event Event
	if err := json.NewDecoder(req.Body).Decode(&event); err != nil {
		logger.Warn().Err(err).Msg("undecodable chat event")
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if h.VerificationToken != "" && event.Token != h.VerificationToken {
		logger.Warn().Msg("chat event with wrong verification token")
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	text := h.handle(req.Context(), logger, event)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reply{Text: text})
}

func (h *Handler) handle(ctx context.Context, logger *zerolog.Logger, event Event) string {
	submission, err := ParseEvent(event)
	switch {
	case errors.Is(err, ErrNotAMessage):
		return "Ciao, scusami ma non capisco questo messaggio :("
	case errors.Is(err, ErrInGroup):
		return "Ciao, mi dispiace ma non sono ancora abilitata a funzionare nei gruppi 🐮"
	case errors.Is(err, ErrNoLink):
		return "Ciao, mandami pure il link che vuoi caricare su Oryx, il news aggregator! 🐮"
	}

	if err := h.Create(ctx, submission.Link, submission.Referrer); err != nil {
		logger.Error().Err(err).Str("link", submission.Link).Msg("failed to save chat submission")
		return "Ops, si è verificato un errore caricando il link 🐮"
	}

	logger.Info().Str("link", submission.Link).Str("referrer", submission.Referrer).Msg("chat submission saved")
	return "Caricato! Grazie mille 🐮"
}
