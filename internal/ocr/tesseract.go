package ocr

import (
	"context"

	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine 基于本地 tesseract 实现 Engine，单语言配置。
type TesseractEngine struct {
	language string
}

// NewTesseractEngine 创建 TesseractEngine，language 为空时使用英文。
func NewTesseractEngine(language string) *TesseractEngine {
	if language == "" {
		language = "eng"
	}
	return &TesseractEngine{language: language}
}

// Recognize 实现 Engine。置信度取各文本行置信度的均值。
func (e *TesseractEngine) Recognize(ctx context.Context, image []byte) (string, float64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(e.language); err != nil {
		return "", 0, err
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", 0, err
	}

	text, err := client.Text()
	if err != nil {
		return "", 0, err
	}

	confidence := 0.0
	if boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE); err == nil && len(boxes) > 0 {
		total := 0.0
		for _, box := range boxes {
			total += box.Confidence
		}
		confidence = total / float64(len(boxes))
	}

	return text, confidence, nil
}

var _ Engine = (*TesseractEngine)(nil)
