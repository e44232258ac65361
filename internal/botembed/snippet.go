// Package botembed renders the website integration snippet for the
// pharmacy assistant bot.
package botembed

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"text/template"
)

// ContainerID is the element the widget mounts into.
const ContainerID = "pharma-assist-bot"

// InitialMessage is the first bot message shown on the embedding site.
const InitialMessage = "👋 Hello! How can I assist you with your pharmacy needs today?"

// ErrInvalidURL is returned when the bot url is not an absolute http(s) url.
var ErrInvalidURL = errors.New("please enter a valid domain url (e.g., https://example.com)")

var snippetTmpl = template.Must(template.New("snippet").Funcs(template.FuncMap{
	"js": jsString,
}).Parse(`<!-- PharmaAssist Bot Integration -->
<!-- Add this code to your website's <head> section -->
<link rel="stylesheet" href="{{.URL}}/bot-styles.css">

<!-- Add this code before the closing </body> tag -->
<div id="{{.Container}}"></div>
<script>
  window.pharmaAssistConfig = {
    botUrl: {{js .URL}},
    containerId: {{js .Container}},
    theme: {
      primaryColor: "#0284c7",
      fontFamily: "system-ui, -apple-system, sans-serif"
    },
    position: {
      bottom: "20px",
      right: "20px"
    },
    initialMessage: {{js .Greeting}},
    features: {
      prescriptionLookup: true,
      medicationReminders: true,
      drugInteractions: true
    }
  };
</script>
<script async src="{{.URL}}/widget.js"></script>
`))

// Snippet validates botURL and renders the integration code.
func Snippet(botURL string) (string, error) {
	base, err := normalize(botURL)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	err = snippetTmpl.Execute(&buf, struct {
		URL       string
		Container string
		Greeting  string
	}{base, ContainerID, InitialMessage})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// normalize accepts only http and https urls with a host, and strips any
// trailing slash so asset paths join cleanly.
func normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrInvalidURL
	}
	if strings.ContainsAny(raw, "\"<> ") {
		return "", ErrInvalidURL
	}
	return strings.TrimRight(u.String(), "/"), nil
}

func jsString(s string) (string, error) {
	b, err := json.Marshal(s)
	return string(b), err
}
