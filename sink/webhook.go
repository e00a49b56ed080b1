package sink

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/gr-butler/joystick/receive"
)

type webhookData struct {
	Kind   string `url:"kind"`
	Peer   string `url:"peer"`
	X      uint8  `url:"x"`
	Y      uint8  `url:"y"`
	Button uint8  `url:"button"`
	Raw    string `url:"raw,omitempty"`
	Error  string `url:"error,omitempty"`
	// UTC, "2006-01-02 15:04:05"
	Time string `url:"time"`
}

// Webhook sends every event as a GET with the values in the query string.
type Webhook struct {
	url    string
	client *http.Client
}

func NewWebhook(url string) *Webhook {
	return &Webhook{url: url, client: &http.Client{Timeout: 30 * time.Second}}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Publish(ev receive.Event) error {
	data := webhookData{
		Kind:   string(ev.Kind),
		Peer:   ev.Source.String(),
		X:      ev.X,
		Y:      ev.Y,
		Button: ev.Button,
		Error:  ev.Error,
		Time:   ev.Time.UTC().Format("2006-01-02 15:04:05"),
	}
	if len(ev.Raw) > 0 {
		data.Raw = fmt.Sprintf("%x", ev.Raw)
	}
	vals, err := query.Values(data)
	if err != nil {
		return err
	}

	sep := "?"
	if strings.Contains(w.url, "?") {
		sep = "&"
	}
	resp, err := w.client.Get(w.url + sep + vals.Encode())
	if err != nil {
		return fmt.Errorf("webhook GET failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook GET failed HTTP [%v]", resp.Status)
	}
	return nil
}
