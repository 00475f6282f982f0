package domain

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Quality is a platform-specific quality tag such as "1080p" or "320kbps"
type Quality string

const (
	Quality4K    Quality = "4K"
	Quality1440p Quality = "1440p"
	Quality1080p Quality = "1080p"
	Quality720p  Quality = "720p"
	Quality480p  Quality = "480p"

	Quality320kbps Quality = "320kbps"
	Quality256kbps Quality = "256kbps"
	Quality128kbps Quality = "128kbps"
)

// Quality catalogues, highest tier first
var (
	VideoQualities = []Quality{Quality4K, Quality1440p, Quality1080p, Quality720p, Quality480p}
	AudioQualities = []Quality{Quality320kbps, Quality256kbps, Quality128kbps}
)

// DefaultQuality returns the quality used when a video platform request omits one
func DefaultQuality(mediaType MediaType) Quality {
	switch mediaType {
	case MediaVideo:
		return Quality1080p
	case MediaAudio:
		return Quality128kbps
	}
	return ""
}

var (
	youtubeHosts = map[string]bool{
		"youtube.com":              true,
		"www.youtube.com":          true,
		"m.youtube.com":            true,
		"music.youtube.com":        true,
		"youtu.be":                 true,
		"youtube-nocookie.com":     true,
		"www.youtube-nocookie.com": true,
	}
	instagramHosts = map[string]bool{
		"instagram.com":     true,
		"www.instagram.com": true,
	}
	// Path marker (first segment) -> media type
	instagramMarkers = map[string]MediaType{
		"p":       MediaPost,
		"reel":    MediaReel,
		"stories": MediaStory,
	}
	shortcodePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
)

// Classification is the platform and media type derived for a URL
type Classification struct {
	Platform  Platform
	MediaType MediaType
}

// MediaTarget is the fully validated thing being requested.
// Quality is empty for the photo platform.
type MediaTarget struct {
	Platform  Platform
	MediaType MediaType
	Quality   Quality
}

// Classify recognizes the platform of rawURL and resolves its media type.
// For Instagram the URL path decides the media type and overrides hint.
// YouTube URLs carry no media type, so hint must be video or audio.
func Classify(rawURL string, hint MediaType) (Classification, error) {
	u, err := parseMediaURL(rawURL)
	if err != nil {
		return Classification{}, err
	}

	host := strings.ToLower(u.Hostname())
	segments := pathSegments(u.Path)

	switch {
	case youtubeHosts[host]:
		if len(segments) == 0 && u.RawQuery == "" {
			return Classification{}, fmt.Errorf("%w: missing video path", ErrInvalidURL)
		}
		if hint != MediaVideo && hint != MediaAudio {
			return Classification{}, fmt.Errorf("%w: %q is not valid for youtube", ErrInvalidMediaType, hint)
		}
		return Classification{Platform: PlatformYouTube, MediaType: hint}, nil

	case instagramHosts[host]:
		if len(segments) < 2 {
			return Classification{}, fmt.Errorf("%w: missing instagram shortcode", ErrInvalidURL)
		}
		mediaType, ok := instagramMarkers[segments[0]]
		if !ok || !shortcodePattern.MatchString(segments[1]) {
			return Classification{}, fmt.Errorf("%w: unsupported instagram path", ErrInvalidURL)
		}
		return Classification{Platform: PlatformInstagram, MediaType: mediaType}, nil
	}

	return Classification{}, fmt.Errorf("%w: unsupported host %q", ErrInvalidURL, host)
}

// ResolveTarget classifies rawURL and attaches a validated quality.
// A missing quality defaults per media type; Instagram targets never carry one.
func ResolveTarget(rawURL string, hint MediaType, quality Quality) (MediaTarget, error) {
	c, err := Classify(rawURL, hint)
	if err != nil {
		return MediaTarget{}, err
	}

	target := MediaTarget{Platform: c.Platform, MediaType: c.MediaType}
	if c.Platform == PlatformYouTube {
		if quality == "" {
			quality = DefaultQuality(c.MediaType)
		}
		target.Quality = quality
	}
	if err := target.Validate(); err != nil {
		return MediaTarget{}, err
	}
	return target, nil
}

// Validate checks the platform/media type/quality combination
func (t MediaTarget) Validate() error {
	switch t.Platform {
	case PlatformYouTube:
		switch t.MediaType {
		case MediaVideo:
			if !containsQuality(VideoQualities, t.Quality) {
				return fmt.Errorf("%w: %q for video", ErrInvalidQuality, t.Quality)
			}
		case MediaAudio:
			if !containsQuality(AudioQualities, t.Quality) {
				return fmt.Errorf("%w: %q for audio", ErrInvalidQuality, t.Quality)
			}
		default:
			return fmt.Errorf("%w: %q for youtube", ErrInvalidMediaType, t.MediaType)
		}
	case PlatformInstagram:
		if _, ok := mediaTypeMarker(t.MediaType); !ok {
			return fmt.Errorf("%w: %q for instagram", ErrInvalidMediaType, t.MediaType)
		}
		if t.Quality != "" {
			return fmt.Errorf("%w: instagram media has no quality", ErrInvalidQuality)
		}
	default:
		return fmt.Errorf("%w: unknown platform %q", ErrInvalidJob, t.Platform)
	}
	return nil
}

// LooksLikeMediaURL is the client-side shape check: host and path only, no media type rules
func LooksLikeMediaURL(rawURL string) bool {
	_, err := Classify(rawURL, MediaVideo)
	return !errors.Is(err, ErrInvalidURL)
}

func parseMediaURL(rawURL string) (*url.URL, error) {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return u, nil
}

func pathSegments(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mediaTypeMarker(mediaType MediaType) (string, bool) {
	for marker, mt := range instagramMarkers {
		if mt == mediaType {
			return marker, true
		}
	}
	return "", false
}

func containsQuality(catalogue []Quality, q Quality) bool {
	for _, c := range catalogue {
		if c == q {
			return true
		}
	}
	return false
}
