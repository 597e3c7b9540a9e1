package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAndExtract(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"resultUrls", `{"resultUrls":["https://x/y.png"]}`, "https://x/y.png"},
		{"resultJson object", `{"resultJson":{"resultUrls":["https://x/a.png"]},"resultUrls":["https://x/b.png"]}`, "https://x/a.png"},
		{"resultJson string", `{"resultJson":"{\"resultUrls\":[\"https://x/c.png\"]}"}`, "https://x/c.png"},
		{"videoUrl beats resultUrls", `{"videoUrl":"https://x/v.mp4","resultUrls":["https://x/b.png"]}`, "https://x/v.mp4"},
		{"data.videoUrl", `{"data":{"videoUrl":"https://x/d.mp4"}}`, "https://x/d.mp4"},
		{"array", `[{"videoUrl":"https://x/first.mp4"},{"videoUrl":"https://x/second.mp4"}]`, "https://x/first.mp4"},
		{"double encoded", `"{\"resultUrls\":[\"https://x/e.png\"]}"`, "https://x/e.png"},
		{"backticks in value", "{\"videoUrl\":\"`https://x/f.mp4`\"}", "https://x/f.mp4"},
		{"backticks around body", "`{\"resultUrls\":[\"https://x/g.png\"]}`", "https://x/g.png"},
		{"bare url", "https://x/h.png", "https://x/h.png"},
		{"no url", `{"status":"done"}`, ""},
		{"plain text", "ok", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := decodeBody([]byte(tc.body))
			require.NoError(t, err)
			assert.Equal(t, tc.want, extractResultURL(doc))
		})
	}
}

func TestDecodeBody_Failures(t *testing.T) {
	for _, body := range []string{"", "   \n", "Internal Server Error", "Internal Server Error: workflow crashed"} {
		_, err := decodeBody([]byte(body))
		var upstream *UpstreamError
		require.True(t, errors.As(err, &upstream), "body %q", body)
		assert.Equal(t, 500, upstream.StatusCode)
	}
}
