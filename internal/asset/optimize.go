package asset

import (
	"bytes"
	"image"
	"image/jpeg"
	_ "image/png" // registers the PNG decoder for image.Decode
	"net/http"

	"golang.org/x/image/draw"
)

// Constraints bound what an upload endpoint accepts and how the binary
// is transformed before storage.
type Constraints struct {
	Required bool  // reject the request when no file was sent
	MaxBytes int64 // size ceiling for the raw upload
	Width    int   // target width; 0 keeps the source dimensions
	Height   int   // target height; 0 keeps the source dimensions
	Quality  int   // JPEG quality for the re-encode; 0 means 80
}

// Accepted upload mime types, sniffed from content rather than trusted
// from the request.
var allowedMime = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// optimize validates and transforms an uploaded binary: decode, resize
// to the constraint dimensions when set, re-encode as compressed JPEG.
// The returned bytes are what actually gets stored.
func optimize(data []byte, cons Constraints) ([]byte, error) {
	if cons.MaxBytes > 0 && int64(len(data)) > cons.MaxBytes {
		return nil, ErrTooLarge
	}
	if !allowedMime[http.DetectContentType(data)] {
		return nil, ErrUnsupportedType
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrOptimizationFailed
	}

	if cons.Width > 0 && cons.Height > 0 {
		dst := image.NewRGBA(image.Rect(0, 0, cons.Width, cons.Height))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
		src = dst
	}

	quality := cons.Quality
	if quality <= 0 {
		quality = 80
	}
	var out bytes.Buffer
	if err := jpeg.Encode(&out, src, &jpeg.Options{Quality: quality}); err != nil {
		return nil, ErrOptimizationFailed
	}
	return out.Bytes(), nil
}
