// Package notification posts pipeline run outcomes to Discord webhooks.
// Both webhooks are optional; an unset URL turns the call into a no-op.
package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Gracey0201/tampa-bay-water-quality/internal/properties"
)

type DiscordMessage struct {
	Embeds []DiscordEmbed `json:"embeds"`
}

type DiscordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

func send(url string, message DiscordMessage) error {
	if url == "" {
		return nil
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}

	resp, err := http.Post(url, "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to send Discord notification, status code: %d", resp.StatusCode)
	}

	return nil
}

// SendErrorNotification reports a failed pipeline run.
func SendErrorNotification(cfg properties.NotifyConfig, errorMessage string) error {
	return send(cfg.ErrorWebhookURL, DiscordMessage{
		Embeds: []DiscordEmbed{
			{
				Title:       "Water-quality pipeline failed",
				Description: errorMessage,
				Color:       16711680, // red
			},
		},
	})
}

// SendSuccessNotification reports a completed pipeline run.
func SendSuccessNotification(cfg properties.NotifyConfig, successMessage string) error {
	return send(cfg.SuccessWebhookURL, DiscordMessage{
		Embeds: []DiscordEmbed{
			{
				Title:       "Water-quality pipeline finished",
				Description: successMessage,
				Color:       65280, // green
			},
		},
	})
}
