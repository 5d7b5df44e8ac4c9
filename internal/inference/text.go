package inference

import "context"

// TextExtractor reads printed text (care labels, brand tags) from an encoded image
type TextExtractor interface {
	ExtractText(ctx context.Context, encoded []byte) (string, error)
}

// TextExtractorFunc adapts a function to TextExtractor
type TextExtractorFunc func(ctx context.Context, encoded []byte) (string, error)

func (f TextExtractorFunc) ExtractText(ctx context.Context, encoded []byte) (string, error) {
	return f(ctx, encoded)
}
