package cover

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"
)

// decode reads an image and reports the format to re-encode it in.
// Formats imaging cannot write fall back to JPEG.
func decode(data []byte) (image.Image, imaging.Format, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, imaging.JPEG, err
	}

	_, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return img, imaging.JPEG, nil
	}
	format, err := imaging.FormatFromExtension(name)
	if err != nil {
		return img, imaging.JPEG, nil
	}
	return img, format, nil
}
