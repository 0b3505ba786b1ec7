package ocr

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/disintegration/imaging"

	xerrors "LicenseOracle-TON/internal/errors"
	"LicenseOracle-TON/pkg/logger"
)

// Engine 是文字识别引擎的最小契约。
type Engine interface {
	// Recognize 返回原始文本与 0-100 的标量置信度。
	Recognize(ctx context.Context, image []byte) (text string, confidence float64, err error)
}

// Result 是一次识别的瞬态结果，不做持久化。
type Result struct {
	Text           string
	Confidence     float64
	DocumentNumber string
	ExpiryDate     string
}

const defaultMinWidth = 800

// Processor 把原始图片字节转换成 Result。
type Processor struct {
	engine   Engine
	minWidth int
	log      *slog.Logger
}

// ProcessorOption 定义可选配置。
type ProcessorOption func(*Processor)

// WithMinWidth 设置预处理时的最小放大宽度。
func WithMinWidth(width int) ProcessorOption {
	return func(p *Processor) {
		if width > 0 {
			p.minWidth = width
		}
	}
}

// NewProcessor 创建 Processor。
func NewProcessor(engine Engine, opts ...ProcessorOption) *Processor {
	p := &Processor{
		engine:   engine,
		minWidth: defaultMinWidth,
		log:      logger.Named("ocr"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Process 执行 预处理 → 识别 → 清洗 → 字段提取。预处理或识别失败会以
// RECOGNITION_FAILURE 向上传播；提取不到证件号不是错误，原始文本仍会返回。
func (p *Processor) Process(ctx context.Context, image []byte) (*Result, error) {
	if p.engine == nil {
		return nil, xerrors.New(xerrors.CodeConfiguration, "未配置识别引擎")
	}

	prepared, err := p.preprocess(image)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeRecognition, err, "图片预处理失败")
	}

	rawText, confidence, err := p.engine.Recognize(ctx, prepared)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeRecognition, err, "文字识别失败")
	}

	text := cleanText(rawText)
	result := &Result{Text: text, Confidence: confidence}

	if number, rule, ok := extractDocumentNumber(text); ok {
		result.DocumentNumber = number
		p.log.Info("document number extracted",
			slog.String("rule", rule),
			slog.String("number", number))
	} else {
		p.log.Info("no document number found", slog.Int("text_len", len(text)))
	}

	if date, ok := extractExpiryDate(text); ok {
		result.ExpiryDate = date
	}

	return result, nil
}

// preprocess 归一化图片：不足最小宽度时放大、灰度化、对比度归一、锐化、
// 伽马校正，最后重新编码为 PNG 交给识别引擎。
func (p *Processor) preprocess(raw []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}

	if img.Bounds().Dx() < p.minWidth {
		img = imaging.Resize(img, p.minWidth, 0, imaging.Lanczos)
	}
	img = imaging.Grayscale(img)
	img = imaging.AdjustContrast(img, 15)
	img = imaging.Sharpen(img, 1.0)
	img = imaging.AdjustGamma(img, 1.2)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
