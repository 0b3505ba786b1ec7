// Package ocr turns a raw photograph of a license into normalized text plus
// two best-effort fields: the document number and the expiry date. The image
// is always preprocessed (upscale, grayscale, contrast, sharpen, gamma)
// before recognition; raw photographs at arbitrary angle and lighting have
// unacceptably low recognition accuracy without it.
package ocr
