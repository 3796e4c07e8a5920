package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
)

var ErrUnsupportedImage = errors.New("unsupported image type")

// sniffLen matches the header size mimetype inspects.
const sniffLen = 3072

// imageTypes are the accepted upload formats and the extension each is
// stored under.
var imageTypes = []ImageType{
	{ContentType: "image/jpeg", Ext: ".jpg"},
	{ContentType: "image/png", Ext: ".png"},
	{ContentType: "image/webp", Ext: ".webp"},
	{ContentType: "image/gif", Ext: ".gif"},
}

type ImageType struct {
	ContentType string
	Ext         string
}

// SniffImage detects the image format from the leading bytes of r and
// returns a reader that replays them. The client's filename and declared
// content type play no part.
func SniffImage(r io.Reader) (ImageType, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return ImageType{}, nil, fmt.Errorf("read image header: %w", err)
	}
	head = head[:n]

	detected := mimetype.Detect(head)
	for m := detected; m != nil; m = m.Parent() {
		for _, t := range imageTypes {
			if m.Is(t.ContentType) {
				return t, io.MultiReader(bytes.NewReader(head), r), nil
			}
		}
	}
	return ImageType{}, nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, detected.String())
}
