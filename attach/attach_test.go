package attach

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccepted(t *testing.T) {
	cases := []struct {
		name string
		att  Attachment
		want bool
	}{
		{"photo", Attachment{FileID: "f", Photo: true}, true},
		{"pdf", Attachment{FileID: "f", MimeType: "application/pdf"}, true},
		{"png upper", Attachment{FileID: "f", MimeType: "IMAGE/PNG"}, true},
		{"zip", Attachment{FileID: "f", MimeType: "application/zip"}, false},
		{"no mime", Attachment{FileID: "f"}, false},
		{"no file", Attachment{Photo: true}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.att.Accepted())
		})
	}
}

func TestObjectName(t *testing.T) {
	now := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)
	name := objectName("yahoo", Attachment{FileID: "f", MimeType: "application/pdf"}, now)
	assert.Regexp(t, regexp.MustCompile(`^yahoo/2025/03/[0-9a-f-]{36}\.pdf$`), name)
}

func TestFileIDUploader(t *testing.T) {
	ref, err := FileIDUploader{}.Upload(context.Background(), "yahoo", Attachment{FileID: "AgAD", Photo: true})
	require.NoError(t, err)
	assert.Equal(t, "tg://file/AgAD", ref)

	_, err = FileIDUploader{}.Upload(context.Background(), "yahoo", Attachment{FileID: "x", MimeType: "text/plain"})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestMinioUploaderRejectsUnsupported(t *testing.T) {
	u := &MinioUploader{now: time.Now}
	_, err := u.Upload(context.Background(), "yahoo", Attachment{FileID: "x", MimeType: "video/mp4"})
	assert.ErrorIs(t, err, ErrUnsupported)
}
