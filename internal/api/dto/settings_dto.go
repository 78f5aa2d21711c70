package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// MissedChatTimerDTO mirrors the timer parts.
type MissedChatTimerDTO struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// IntroFieldDTO is one intake form input.
type IntroFieldDTO struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Placeholder string `json:"placeholder"`
	Required    bool   `json:"required"`
}

// IntroFormDTO is the widget intake form.
type IntroFormDTO struct {
	Enabled bool            `json:"enabled"`
	Fields  []IntroFieldDTO `json:"fields"`
}

// SettingsResponse is the customization document served to the widget.
type SettingsResponse struct {
	HeaderColor     string             `json:"header_color"`
	BackgroundColor string             `json:"background_color"`
	InputColor      string             `json:"input_color"`
	BotName         string             `json:"bot_name"`
	Message1        string             `json:"message1"`
	Message2        string             `json:"message2"`
	WelcomeToast    string             `json:"welcome_toast"`
	IntroForm       IntroFormDTO       `json:"intro_form"`
	MissedChatTimer MissedChatTimerDTO `json:"missed_chat_timer"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// MissedChatTimerPatchDTO updates timer parts individually.
type MissedChatTimerPatchDTO struct {
	Hours   *int `json:"hours"`
	Minutes *int `json:"minutes"`
	Seconds *int `json:"seconds"`
}

// UpdateSettingsRequest is a partial update; absent fields stay untouched.
type UpdateSettingsRequest struct {
	HeaderColor     *string                  `json:"header_color"`
	BackgroundColor *string                  `json:"background_color"`
	InputColor      *string                  `json:"input_color"`
	BotName         *string                  `json:"bot_name"`
	Message1        *string                  `json:"message1"`
	Message2        *string                  `json:"message2"`
	WelcomeToast    *string                  `json:"welcome_toast"`
	IntroForm       *IntroFormDTO            `json:"intro_form"`
	MissedChatTimer *MissedChatTimerPatchDTO `json:"missed_chat_timer"`
}

// Patch converts the request into a domain patch.
func (r UpdateSettingsRequest) Patch() domain.SettingsPatch {
	patch := domain.SettingsPatch{
		HeaderColor:     r.HeaderColor,
		BackgroundColor: r.BackgroundColor,
		InputColor:      r.InputColor,
		BotName:         r.BotName,
		Message1:        r.Message1,
		Message2:        r.Message2,
		WelcomeToast:    r.WelcomeToast,
	}
	if r.IntroForm != nil {
		form := domain.IntroForm{Enabled: r.IntroForm.Enabled}
		for _, f := range r.IntroForm.Fields {
			form.Fields = append(form.Fields, domain.IntroField(f))
		}
		patch.IntroForm = &form
	}
	if t := r.MissedChatTimer; t != nil {
		patch.MissedChatTimer = &domain.MissedChatTimerPatch{Hours: t.Hours, Minutes: t.Minutes, Seconds: t.Seconds}
	}
	return patch
}

// NewSettingsResponse maps domain settings.
func NewSettingsResponse(s domain.Settings) SettingsResponse {
	fields := make([]IntroFieldDTO, 0, len(s.IntroForm.Fields))
	for _, f := range s.IntroForm.Fields {
		fields = append(fields, IntroFieldDTO(f))
	}
	return SettingsResponse{
		HeaderColor:     s.HeaderColor,
		BackgroundColor: s.BackgroundColor,
		InputColor:      s.InputColor,
		BotName:         s.BotName,
		Message1:        s.Message1,
		Message2:        s.Message2,
		WelcomeToast:    s.WelcomeToast,
		IntroForm:       IntroFormDTO{Enabled: s.IntroForm.Enabled, Fields: fields},
		MissedChatTimer: MissedChatTimerDTO(s.MissedChatTimer),
		UpdatedAt:       s.UpdatedAt,
	}
}
