package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_YouTube(t *testing.T) {
	urls := []string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://youtube.com/shorts/abc123",
		"http://m.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ",
		"www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://music.youtube.com/watch?v=x",
	}

	for _, url := range urls {
		t.Run(url, func(t *testing.T) {
			c, err := Classify(url, MediaAudio)
			require.NoError(t, err)
			assert.Equal(t, PlatformYouTube, c.Platform)
			assert.Equal(t, MediaAudio, c.MediaType)
		})
	}
}

func TestClassify_YouTubeRequiresDeclaredType(t *testing.T) {
	_, err := Classify("https://www.youtube.com/watch?v=dQw4w9WgXcQ", "")
	assert.ErrorIs(t, err, ErrInvalidMediaType)

	_, err = Classify("https://www.youtube.com/watch?v=dQw4w9WgXcQ", MediaStory)
	assert.ErrorIs(t, err, ErrInvalidMediaType)
}

func TestClassify_Instagram(t *testing.T) {
	tests := []struct {
		url      string
		hint     MediaType
		expected MediaType
	}{
		{"https://www.instagram.com/p/CxYz_12-a/", MediaPost, MediaPost},
		{"https://instagram.com/reel/CxYz123", "", MediaReel},
		{"instagram.com/stories/someone/3141592653", MediaStory, MediaStory},
		// URL-derived type overrides the declared one
		{"https://www.instagram.com/reel/CxYz123/", MediaPost, MediaReel},
		{"https://www.instagram.com/stories/someone/31415/", MediaPost, MediaStory},
		{"https://www.instagram.com/p/CxYz123/", MediaVideo, MediaPost},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			c, err := Classify(tt.url, tt.hint)
			require.NoError(t, err)
			assert.Equal(t, PlatformInstagram, c.Platform)
			assert.Equal(t, tt.expected, c.MediaType)
		})
	}
}

func TestClassify_InvalidURL(t *testing.T) {
	urls := []string{
		"",
		"   ",
		"https://example.com/x",
		"https://x.com/user/status/1",
		"ftp://www.youtube.com/watch?v=x",
		"https://www.youtube.com/",
		"https://notyoutube.com/watch?v=x",
		"https://www.instagram.com/",
		"https://www.instagram.com/someone",
		"https://www.instagram.com/tv/abc",
		"https://www.instagram.com/p/",
		"https://www.instagram.com/p/bad%20code",
		"not a url at all",
	}

	for _, url := range urls {
		t.Run(url, func(t *testing.T) {
			for _, hint := range []MediaType{"", MediaVideo, MediaAudio, MediaPost, MediaReel, MediaStory} {
				_, err := Classify(url, hint)
				assert.ErrorIs(t, err, ErrInvalidURL)
			}
		})
	}
}

func TestClassify_OutputIsAlwaysADocumentedPair(t *testing.T) {
	valid := map[Platform][]MediaType{
		PlatformYouTube:   {MediaVideo, MediaAudio},
		PlatformInstagram: {MediaPost, MediaReel, MediaStory},
	}
	urls := []string{
		"https://youtu.be/abc",
		"https://www.instagram.com/p/abc",
		"https://www.instagram.com/reel/abc",
		"https://www.instagram.com/stories/u/1",
		"https://example.com/x",
	}
	hints := []MediaType{"", MediaVideo, MediaAudio, MediaPost, MediaReel, MediaStory, "gif"}

	for _, url := range urls {
		for _, hint := range hints {
			c, err := Classify(url, hint)
			if err != nil {
				continue
			}
			assert.Contains(t, valid[c.Platform], c.MediaType, "%s with hint %q", url, hint)
		}
	}
}

func TestResolveTarget(t *testing.T) {
	target, err := ResolveTarget("https://youtu.be/abc", MediaVideo, "")
	require.NoError(t, err)
	assert.Equal(t, Quality1080p, target.Quality, "video defaults to 1080p")

	target, err = ResolveTarget("https://youtu.be/abc", MediaAudio, "")
	require.NoError(t, err)
	assert.Equal(t, Quality128kbps, target.Quality, "audio defaults to 128kbps")

	target, err = ResolveTarget("https://www.instagram.com/p/abc", MediaPost, Quality4K)
	require.NoError(t, err)
	assert.Empty(t, target.Quality, "instagram drops quality")

	_, err = ResolveTarget("https://youtu.be/abc", MediaVideo, Quality320kbps)
	assert.ErrorIs(t, err, ErrInvalidQuality)

	_, err = ResolveTarget("https://example.com/x", MediaVideo, Quality1080p)
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestLooksLikeMediaURL(t *testing.T) {
	assert.True(t, LooksLikeMediaURL("https://youtu.be/abc"))
	assert.True(t, LooksLikeMediaURL("https://www.instagram.com/stories/u/1"))
	assert.False(t, LooksLikeMediaURL("https://example.com/x"))
	assert.False(t, LooksLikeMediaURL(""))
}
