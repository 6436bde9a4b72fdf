package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocate(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		timestamp float64
		want      string
	}{
		{
			name:      "offset injected after upload marker",
			url:       "https://res.cloudinary.com/demo/video/upload/v1720000000/capstone-videos/front_door.mp4",
			timestamp: 7.9,
			want:      "https://res.cloudinary.com/demo/video/upload/so_7/v1720000000/capstone-videos/front_door.mp4",
		},
		{
			name:      "offset under half a second leaves url unchanged",
			url:       "https://res.cloudinary.com/demo/video/upload/v1/front_door.mp4",
			timestamp: 0.3,
			want:      "https://res.cloudinary.com/demo/video/upload/v1/front_door.mp4",
		},
		{
			name:      "whole-second offset",
			url:       "https://res.cloudinary.com/demo/video/upload/v1/clip.mp4",
			timestamp: 125,
			want:      "https://res.cloudinary.com/demo/video/upload/so_125/v1/clip.mp4",
		},
		{
			name:      "url without upload marker unchanged",
			url:       "https://cdn.example.com/videos/front_door.mp4",
			timestamp: 42,
			want:      "https://cdn.example.com/videos/front_door.mp4",
		},
		{
			name:      "empty url unchanged",
			url:       "",
			timestamp: 42,
			want:      "",
		},
		{
			name:      "fractional offset floors",
			url:       "https://res.cloudinary.com/demo/video/upload/clip.mp4",
			timestamp: 9.999,
			want:      "https://res.cloudinary.com/demo/video/upload/so_9/clip.mp4",
		},
		{
			name:      "splits at first upload marker only",
			url:       "https://res.cloudinary.com/demo/video/upload/folder/upload/clip.mp4",
			timestamp: 3,
			want:      "https://res.cloudinary.com/demo/video/upload/so_3/folder/upload/clip.mp4",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Locate(tt.url, tt.timestamp))
		})
	}
}

func TestThumbnailURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		timestamp float64
		want      string
	}{
		{
			name:      "frame at offset with grid sizing",
			url:       "https://res.cloudinary.com/demo/video/upload/v1/clip.mp4",
			timestamp: 7.9,
			want:      "https://res.cloudinary.com/demo/video/upload/so_7/w_400,h_300,c_fill/v1/clip.jpg",
		},
		{
			name:      "offset under half a second falls back to first frame",
			url:       "https://res.cloudinary.com/demo/video/upload/v1/clip.mp4",
			timestamp: 0.2,
			want:      "https://res.cloudinary.com/demo/video/upload/so_0/w_400,h_300,c_fill/v1/clip.jpg",
		},
		{
			name:      "url without upload marker unchanged",
			url:       "https://cdn.example.com/videos/clip.mp4",
			timestamp: 10,
			want:      "https://cdn.example.com/videos/clip.mp4",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ThumbnailURL(tt.url, tt.timestamp))
		})
	}
}
