package biometric

import (
	"bytes"
	"encoding/base64"
	"image"
	"strings"

	// Register decoders for the formats browsers capture snapshots in.
	_ "image/jpeg"
	_ "image/png"

	dErrors "facevote/pkg/domain-errors"
)

// ParseDataURL decodes a browser-captured snapshot, either a bare base64
// string or a data URL ("data:image/jpeg;base64,..."), into a Frame.
func ParseDataURL(s string) (Frame, error) {
	payload := s
	if strings.HasPrefix(s, "data:") {
		idx := strings.Index(s, ",")
		if idx < 0 {
			return Frame{}, dErrors.New(dErrors.CodeInvalidInput, "malformed data URL")
		}
		payload = s[idx+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Frame{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "frame is not valid base64")
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Frame{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "frame is not a decodable image")
	}

	bounds := img.Bounds()
	frame := Frame{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		RGB:    make([]byte, 0, bounds.Dx()*bounds.Dy()*3),
	}
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			frame.RGB = append(frame.RGB, byte(r>>8), byte(g>>8), byte(b>>8))
		}
	}
	return frame, nil
}

// ParseDataURLs decodes a batch of snapshots, skipping entries that do not
// decode. It fails only when nothing usable remains.
func ParseDataURLs(list []string) ([]Frame, error) {
	frames := make([]Frame, 0, len(list))
	for _, s := range list {
		frame, err := ParseDataURL(s)
		if err != nil {
			continue
		}
		frames = append(frames, frame)
	}
	if len(frames) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "no decodable frames in request")
	}
	return frames, nil
}
