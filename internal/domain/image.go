package domain

// GeneratedImage is the output of an image generation call.
type GeneratedImage struct {
	Bytes     []byte
	MimeType  string
	ModelInfo string
}
