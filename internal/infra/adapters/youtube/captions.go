package youtube

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
)

var timedTextBase = "https://video.google.com/timedtext"

type transcript struct {
	Texts []struct {
		Body string `xml:",chardata"`
	} `xml:"text"`
}

// fetchCaptions pulls the public timedtext track for a video and flattens it
// into one plain-text transcript. Videos without an English track yield an
// empty string, not an error.
func fetchCaptions(ctx context.Context, client *http.Client, videoID string) (string, error) {
	q := url.Values{}
	q.Set("lang", "en")
	q.Set("v", videoID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, timedTextBase+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("timedtext http %d", resp.StatusCode)
	}

	var tr transcript
	if err := xml.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", err
	}

	parts := make([]string, 0, len(tr.Texts))
	for _, t := range tr.Texts {
		line := strings.TrimSpace(html.UnescapeString(t.Body))
		if line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " "), nil
}
