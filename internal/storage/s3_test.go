package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestS3ObjectKey(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		folder string
		id     string
		ext    string
		want   string
	}{
		{"bare", "", "", "clip123", ".mp4", "clip123.mp4"},
		{"with_prefix", "videos", "", "clip123", ".mp4", "videos/clip123.mp4"},
		{"with_folder", "", "2026-08-01", "clip123", ".mp4", "2026-08-01/clip123.mp4"},
		{"prefix_and_folder", "videos", "2026-08-01", "clip123", ".mp4", "videos/2026-08-01/clip123.mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &S3Storage{bucket: "b", region: "us-east-1", prefix: tt.prefix}
			assert.Equal(t, tt.want, s.objectKey(tt.folder, tt.id, tt.ext))
		})
	}
}

func TestS3PlaybackURL(t *testing.T) {
	s := &S3Storage{bucket: "cam-archive", region: "eu-west-1", prefix: "videos"}
	assert.Equal(t,
		"https://cam-archive.s3.eu-west-1.amazonaws.com/videos/clip123.mp4",
		s.PlaybackURL("clip123"),
	)
}
