package api

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"supermaya/pkg/supermaya"
)

// decodeImage validates upload bytes as a supported image and returns an
// in-memory image for the vision handler. The raw bytes are forwarded
// unmodified; decoding only confirms the format.
func decodeImage(data []byte) (supermaya.Image, error) {
	if len(data) == 0 {
		return supermaya.Image{}, supermaya.NewError(supermaya.ErrCodeInvalidInput, "image upload is empty")
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return supermaya.Image{}, supermaya.WrapError(supermaya.ErrCodeInvalidInput, "unsupported or corrupt image", err)
	}
	return supermaya.Image{Data: data, MIMEType: "image/" + format}, nil
}
