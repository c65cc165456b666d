package actions

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/borgframework/borg/internal/borg"
	"github.com/borgframework/borg/internal/notify"
)

// EmailAction sends the upstream payload as a plain-text email.
// Parameters: to (required), subject.
type EmailAction struct {
	mailer *notify.Mailer
}

func NewEmailAction(mailer *notify.Mailer) *EmailAction {
	return &EmailAction{mailer: mailer}
}

func (a *EmailAction) Type() string { return "email" }

func (a *EmailAction) Execute(ctx context.Context, params map[string]any, input any) (any, error) {
	to := paramString(params, "to")
	if to == "" {
		return nil, borg.NewAdapterError(borg.ErrInvalidConfiguration, "email action requires a 'to' parameter", nil)
	}
	subject := paramString(params, "subject")
	if subject == "" {
		subject = "Borg Workflow Notification"
	}

	if err := a.mailer.Send(ctx, to, subject, renderBody(input)); err != nil {
		return nil, err
	}
	return map[string]any{"status": "sent", "to": to}, nil
}

// renderBody turns an upstream payload into an email body: strings pass
// through, everything else is pretty-printed JSON.
func renderBody(input any) string {
	switch v := input.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any:
		if text, ok := v["text"].(string); ok {
			return text
		}
	}
	data, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", input)
	}
	return string(data)
}
