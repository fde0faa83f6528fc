package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Long-form social posts are fetched through dedicated APIs instead of
// HTML scraping: their web frontends are JavaScript shells.
const (
	DefaultNeynarBaseURL    = "https://api.neynar.com/v2"
	DefaultFxTwitterBaseURL = "https://api.fxtwitter.com"
)

var farcasterHosts = map[string]bool{
	"warpcast.com":  true,
	"farcaster.xyz": true,
}

var twitterFrontends = map[string]bool{
	"twitter.com":        true,
	"x.com":              true,
	"mobile.twitter.com": true,
	"mobile.x.com":       true,
	"vxtwitter.com":      true,
	"fxtwitter.com":      true,
	"fixupx.com":         true,
	"nitter.net":         true,
}

func isFarcasterURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return farcasterHosts[strings.ToLower(u.Hostname())]
}

func isTwitterURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return twitterFrontends[strings.ToLower(u.Hostname())]
}

// neynarCastResponse is the Neynar cast-by-URL envelope.
type neynarCastResponse struct {
	Cast struct {
		Text   string `json:"text"`
		Author struct {
			Username    string `json:"username"`
			DisplayName string `json:"display_name"`
		} `json:"author"`
	} `json:"cast"`
}

// extractFarcaster fetches a cast through the Neynar API and renders it
// as an article. Only long-form posts pass the length check.
func (e *Extractor) extractFarcaster(ctx context.Context, rawURL string) (*Article, error) {
	endpoint := fmt.Sprintf("%s/farcaster/cast?type=url&identifier=%s", e.neynarBaseURL, url.QueryEscape(rawURL))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errExtractionFailed(ReasonGeneric, fmt.Sprintf("invalid URL: %v", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api_key", e.neynarAPIKey)

	resp, err := e.social.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Farcaster post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errExtractionFailed(ReasonGeneric,
			fmt.Sprintf("could not fetch Farcaster post (status %d)", resp.StatusCode))
	}

	var cast neynarCastResponse
	if err := json.NewDecoder(resp.Body).Decode(&cast); err != nil {
		return nil, errExtractionFailed(ReasonGeneric, "could not parse Farcaster response")
	}

	plainText := strings.TrimSpace(cast.Cast.Text)
	if plainText == "" {
		return nil, errExtractionFailed(ReasonGeneric, "could not fetch Farcaster post")
	}
	if len(plainText) < e.minLength {
		return nil, errTooShort(len(plainText), e.minLength, "")
	}

	author := cast.Cast.Author.DisplayName
	if author == "" {
		author = cast.Cast.Author.Username
	}

	return &Article{
		Title:     author + " on Farcaster",
		PlainText: plainText,
		Markup:    wrapSegments(postSegments(plainText)),
	}, nil
}

// fxTweetResponse is the fxtwitter status envelope.
type fxTweetResponse struct {
	Tweet struct {
		Text   string `json:"text"`
		Author struct {
			Name       string `json:"name"`
			ScreenName string `json:"screen_name"`
		} `json:"author"`
	} `json:"tweet"`
}

// extractTwitter fetches a post through the fxtwitter API.
func (e *Extractor) extractTwitter(ctx context.Context, rawURL string) (*Article, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errExtractionFailed(ReasonGeneric, fmt.Sprintf("invalid URL: %v", err))
	}

	// fxtwitter mirrors twitter's /{user}/status/{id} paths.
	endpoint := e.fxTwitterBaseURL + u.Path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errExtractionFailed(ReasonGeneric, fmt.Sprintf("invalid URL: %v", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.social.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errExtractionFailed(ReasonGeneric,
			fmt.Sprintf("could not fetch post (status %d)", resp.StatusCode))
	}

	var tweet fxTweetResponse
	if err := json.NewDecoder(resp.Body).Decode(&tweet); err != nil {
		return nil, errExtractionFailed(ReasonGeneric, "could not parse post response")
	}

	plainText := strings.TrimSpace(tweet.Tweet.Text)
	if plainText == "" {
		return nil, errExtractionFailed(ReasonGeneric, "could not fetch post")
	}
	if len(plainText) < e.minLength {
		return nil, errTooShort(len(plainText), e.minLength, "")
	}

	author := tweet.Tweet.Author.Name
	if author == "" {
		author = tweet.Tweet.Author.ScreenName
	}

	return &Article{
		Title:     author + " on X",
		PlainText: plainText,
		Markup:    wrapSegments(postSegments(plainText)),
	}, nil
}

// postSegments splits a social post into paragraph segments on newlines.
func postSegments(plainText string) []segment {
	var segments []segment
	for _, para := range strings.FieldsFunc(plainText, func(r rune) bool { return r == '\n' }) {
		if p := collapseWhitespace(para); p != "" {
			segments = append(segments, segment{text: p})
		}
	}
	return segments
}
