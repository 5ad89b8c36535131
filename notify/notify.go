// Package notify dispatches desktop notifications when a timer completes.
package notify

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"TimeRing/i18n"

	"fyne.io/fyne/v2"
)

// Title is the notification title.
const Title = "TimeRing"

// descriptionLimit bounds the description excerpt in notification bodies.
const descriptionLimit = 50

// Urgency mirrors the freedesktop notification urgency levels.
type Urgency string

const (
	Low      Urgency = "low"
	Normal   Urgency = "normal"
	Critical Urgency = "critical"
)

// ParseUrgency maps a settings value (Low/Normal/Critical) to an Urgency.
func ParseUrgency(s string) Urgency {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return Low
	case "critical":
		return Critical
	}
	return Normal
}

// Message is one notification.
type Message struct {
	Title   string
	Body    string
	Urgency Urgency
}

// Notifier delivers messages to the desktop.
type Notifier interface {
	Notify(msg Message) error
}

// Completion builds the message sent when a timer reaches zero.
func Completion(name, description string, includeDescription bool, urgency Urgency) Message {
	body := i18n.Tf("Timer '%s' completed!", name)
	if includeDescription && description != "" {
		body += "\n" + truncate(description, descriptionLimit) + "..."
	}
	return Message{Title: Title, Body: body, Urgency: urgency}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// ErrUnavailable is returned when no notification mechanism is present.
var ErrUnavailable = errors.New("desktop notifications unavailable")

// NotifySend runs notify-send.
type NotifySend struct {
	Command string
	Timeout time.Duration
}

// FindNotifySend returns a NotifySend if notify-send is on PATH.
func FindNotifySend() (*NotifySend, error) {
	bin, err := exec.LookPath("notify-send")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &NotifySend{Command: bin, Timeout: 5 * time.Second}, nil
}

// Notify implements Notifier.
func (n *NotifySend) Notify(msg Message) error {
	if n == nil || n.Command == "" {
		return ErrUnavailable
	}
	timeout := n.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	urgency := msg.Urgency
	if urgency == "" {
		urgency = Normal
	}
	cmd := exec.CommandContext(ctx, n.Command, "--urgency="+string(urgency), msg.Title, msg.Body)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("notify-send: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// FyneNotifier sends notifications through the fyne application. Urgency is
// not supported by fyne and is ignored.
type FyneNotifier struct {
	App fyne.App
}

// Notify implements Notifier.
func (f FyneNotifier) Notify(msg Message) error {
	if f.App == nil {
		return ErrUnavailable
	}
	f.App.SendNotification(fyne.NewNotification(msg.Title, msg.Body))
	return nil
}

// Chain tries each notifier in order until one succeeds.
type Chain []Notifier

// Notify implements Notifier, returning the joined errors if all fail.
func (c Chain) Notify(msg Message) error {
	var errs []error
	for _, n := range c {
		if n == nil {
			continue
		}
		err := n.Notify(msg)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return ErrUnavailable
	}
	return errors.Join(errs...)
}
