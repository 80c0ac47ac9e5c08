package service

import (
	"fmt"

	"trafficpool_backend/internal/trafficpool/domain"
	"trafficpool_backend/platform/apperr"
	"trafficpool_backend/platform/config"

	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 256

// QRGenerator renders scannable entry points for capture channels. Each
// channel gets a stable landing URL so printed posters and payment codes
// keep working across deployments.
type QRGenerator struct {
	baseURL string
}

// NewQRGenerator creates a generator rooted at the configured capture base URL.
func NewQRGenerator(cfg config.CaptureConfig) *QRGenerator {
	return &QRGenerator{baseURL: cfg.GetCaptureBaseURL()}
}

// ChannelURL returns the landing URL encoded in the channel's QR code.
func (g *QRGenerator) ChannelURL(channel domain.CaptureChannel) string {
	return fmt.Sprintf("%s/capture/%s", g.baseURL, channel)
}

// Generate renders a PNG QR code for the given capture channel.
func (g *QRGenerator) Generate(channel domain.CaptureChannel) ([]byte, error) {
	if !domain.IsKnownChannel(channel) {
		return nil, apperr.Validation("unknown capture channel")
	}

	png, err := qrcode.Encode(g.ChannelURL(channel), qrcode.Medium, qrSize)
	if err != nil {
		return nil, apperr.Internal("failed to render QR code")
	}
	return png, nil
}
