package video

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
)

var embeddedVideoRe = regexp.MustCompile(`(?i)https?://[^\s]+\.(mp4|mov|avi|webm)`)

type completionPayload struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
		VideoURL string `json:"video_url"`
	} `json:"choices"`
	VideoURL string `json:"video_url"`
	Data     *struct {
		VideoURL string `json:"video_url"`
	} `json:"data"`
}

type extraction struct {
	payload completionPayload
	content string
}

// extractors run in order; the first non-empty match wins.
var extractors = []struct {
	name string
	find func(*extraction) string
}{
	{"content_url", func(e *extraction) string {
		fields := strings.Fields(e.content)
		if len(fields) == 0 || !isHTTPURL(fields[0]) {
			return ""
		}
		return fields[0]
	}},
	{"choice_video_url", func(e *extraction) string {
		if len(e.payload.Choices) == 0 {
			return ""
		}
		return strings.TrimSpace(e.payload.Choices[0].VideoURL)
	}},
	{"video_url", func(e *extraction) string {
		return strings.TrimSpace(e.payload.VideoURL)
	}},
	{"data_video_url", func(e *extraction) string {
		if e.payload.Data == nil {
			return ""
		}
		return strings.TrimSpace(e.payload.Data.VideoURL)
	}},
	{"embedded_link", func(e *extraction) string {
		return embeddedVideoRe.FindString(e.content)
	}},
}

// Extract pulls a video link out of a chat-completions payload. It returns the
// link (empty when none of the known shapes matched) and the first choice's
// message text. An error means the payload was not a JSON object.
func Extract(raw []byte) (videoURL, message string, err error) {
	var e extraction
	if err := json.Unmarshal(raw, &e.payload); err != nil {
		return "", "", err
	}
	if len(e.payload.Choices) > 0 {
		e.content = strings.TrimSpace(contentText(e.payload.Choices[0].Message.Content))
	}
	for _, ex := range extractors {
		if u := ex.find(&e); u != "" {
			return u, e.content, nil
		}
	}
	return "", e.content, nil
}

// isHTTPURL reports whether s is an absolute http(s) URL with a host.
func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// contentText accepts either a plain string or a list of typed parts.
func contentText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	var b strings.Builder
	for _, p := range parts {
		if p.Text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(p.Text)
	}
	return b.String()
}
