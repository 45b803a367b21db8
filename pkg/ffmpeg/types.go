package ffmpeg

// RenderType selects an output preset
type RenderType string

const (
	RenderPreview RenderType = "preview"
	RenderFinal   RenderType = "final"
)

// Preset holds the encoder settings for one render type
type Preset struct {
	Width        int
	Height       int
	VideoBitrate string
	AudioBitrate string
	X264Preset   string
	FontSize     int
}

var presets = map[RenderType]Preset{
	RenderPreview: {Width: 540, Height: 960, VideoBitrate: "1500k", AudioBitrate: "96k", X264Preset: "veryfast", FontSize: 14},
	RenderFinal:   {Width: 1080, Height: 1920, VideoBitrate: "6000k", AudioBitrate: "160k", X264Preset: "medium", FontSize: 22},
}

// PresetFor returns the preset for a render type
func PresetFor(t RenderType) (Preset, error) {
	p, ok := presets[t]
	if !ok {
		return Preset{}, ErrUnknownRenderType
	}
	return p, nil
}

// MediaMetadata is what ffprobe reports about a source or rendered file
type MediaMetadata struct {
	Duration   float64 `json:"duration"` // seconds
	Size       int64   `json:"size"`
	Bitrate    int     `json:"bitrate"`
	Format     string  `json:"format"`
	VideoCodec string  `json:"video_codec"`
	AudioCodec string  `json:"audio_codec"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Title      string  `json:"title"`
}

// HasVideo reports whether a video stream was found
func (m *MediaMetadata) HasVideo() bool {
	return m.VideoCodec != ""
}

// RenderRequest describes one clip render
type RenderRequest struct {
	ClipID     uint
	SourceURL  string // URL or local path
	OutputPath string
	StartMs    int64
	EndMs      int64
	Captions   string // clip-relative SRT, empty for none
	Type       RenderType
}

// RenderResult describes the produced file
type RenderResult struct {
	OutputPath string
	DurationMs int64
	SizeBytes  int64
}
