package domain

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

const (
	maxShortMessageLen = 50
	maxWelcomeToastLen = 150
)

var ErrInvalidTimer = errors.New("missed chat timer out of range")

// MissedChatTimer is the threshold after which an unanswered chat counts as missed.
type MissedChatTimer struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// DefaultMissedChatTimer is 0h5m0s.
func DefaultMissedChatTimer() MissedChatTimer {
	return MissedChatTimer{Hours: 0, Minutes: 5, Seconds: 0}
}

// Duration converts the timer to a time.Duration.
func (m MissedChatTimer) Duration() time.Duration {
	return time.Duration(m.Hours)*time.Hour +
		time.Duration(m.Minutes)*time.Minute +
		time.Duration(m.Seconds)*time.Second
}

// Validate enforces hours 0..23, minutes and seconds 0..59.
func (m MissedChatTimer) Validate() error {
	if m.Hours < 0 || m.Hours > 23 || m.Minutes < 0 || m.Minutes > 59 || m.Seconds < 0 || m.Seconds > 59 {
		return fmt.Errorf("%w: %dh%dm%ds", ErrInvalidTimer, m.Hours, m.Minutes, m.Seconds)
	}
	return nil
}

// IntroField is one input of the widget intake form.
type IntroField struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Placeholder string `json:"placeholder"`
	Required    bool   `json:"required"`
}

// IntroForm configures the widget intake form.
type IntroForm struct {
	Enabled bool         `json:"enabled"`
	Fields  []IntroField `json:"fields"`
}

// Settings is the process-wide policy and widget configuration.
type Settings struct {
	HeaderColor     string          `json:"headerColor"`
	BackgroundColor string          `json:"backgroundColor"`
	InputColor      string          `json:"inputColor"`
	BotName         string          `json:"botName"`
	Message1        string          `json:"message1"`
	Message2        string          `json:"message2"`
	WelcomeToast    string          `json:"welcomeToast"`
	IntroForm       IntroForm       `json:"introForm"`
	MissedChatTimer MissedChatTimer `json:"missedChatTimer"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// DefaultSettings returns the settings created on first read.
func DefaultSettings(now time.Time) Settings {
	return Settings{
		HeaderColor:     "#33475B",
		BackgroundColor: "#F3F4F6",
		InputColor:      "#FFFFFF",
		BotName:         "Chat Support",
		Message1:        "How can I help you?",
		Message2:        "Ask me anything!",
		WelcomeToast:    "Want to chat about Hubly? I'm an chatbot here to help you find your way.",
		IntroForm: IntroForm{
			Enabled: true,
			Fields: []IntroField{
				{Key: "name", Label: "Your name", Placeholder: "Your name", Required: true},
				{Key: "phone", Label: "Your Phone", Placeholder: "+1 (000) 000-0000"},
				{Key: "email", Label: "Your Email", Placeholder: "example@gmail.com"},
			},
		},
		MissedChatTimer: DefaultMissedChatTimer(),
		UpdatedAt:       now,
	}
}

// MissedChatThreshold is the configured threshold as a duration.
func (s Settings) MissedChatThreshold() time.Duration {
	return s.MissedChatTimer.Duration()
}

// Validate checks message lengths and the timer range.
func (s Settings) Validate() error {
	if utf8.RuneCountInString(s.Message1) > maxShortMessageLen {
		return fmt.Errorf("message1 exceeds %d characters", maxShortMessageLen)
	}
	if utf8.RuneCountInString(s.Message2) > maxShortMessageLen {
		return fmt.Errorf("message2 exceeds %d characters", maxShortMessageLen)
	}
	if utf8.RuneCountInString(s.WelcomeToast) > maxWelcomeToastLen {
		return fmt.Errorf("welcomeToast exceeds %d characters", maxWelcomeToastLen)
	}
	return s.MissedChatTimer.Validate()
}

// MissedChatTimerPatch updates timer parts individually.
type MissedChatTimerPatch struct {
	Hours   *int `json:"hours"`
	Minutes *int `json:"minutes"`
	Seconds *int `json:"seconds"`
}

// SettingsPatch is a partial update. Nil fields are left untouched.
type SettingsPatch struct {
	HeaderColor     *string               `json:"headerColor"`
	BackgroundColor *string               `json:"backgroundColor"`
	InputColor      *string               `json:"inputColor"`
	BotName         *string               `json:"botName"`
	Message1        *string               `json:"message1"`
	Message2        *string               `json:"message2"`
	WelcomeToast    *string               `json:"welcomeToast"`
	IntroForm       *IntroForm            `json:"introForm"`
	MissedChatTimer *MissedChatTimerPatch `json:"missedChatTimer"`
}

// Merge returns s with the patch applied, or an error if the result is invalid.
// s itself is not modified.
func (s Settings) Merge(p SettingsPatch, now time.Time) (Settings, error) {
	out := s
	setString(&out.HeaderColor, p.HeaderColor)
	setString(&out.BackgroundColor, p.BackgroundColor)
	setString(&out.InputColor, p.InputColor)
	setString(&out.BotName, p.BotName)
	setString(&out.Message1, p.Message1)
	setString(&out.Message2, p.Message2)
	setString(&out.WelcomeToast, p.WelcomeToast)
	if p.IntroForm != nil {
		out.IntroForm = IntroForm{
			Enabled: p.IntroForm.Enabled,
			Fields:  append([]IntroField(nil), p.IntroForm.Fields...),
		}
	}
	if t := p.MissedChatTimer; t != nil {
		setInt(&out.MissedChatTimer.Hours, t.Hours)
		setInt(&out.MissedChatTimer.Minutes, t.Minutes)
		setInt(&out.MissedChatTimer.Seconds, t.Seconds)
	}
	if err := out.Validate(); err != nil {
		return s, err
	}
	out.UpdatedAt = now
	return out, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}
