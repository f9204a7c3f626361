package services

import "net/url"

// QRRenderer turns an otpauth:// provisioning URI into a payload the
// frontend can display during 2FA enrollment. The actual image generation
// lives outside this core.
type QRRenderer interface {
	Render(provisioningURI string) (string, error)
}

// ChartURLRenderer points the client at a QR image service instead of
// rendering locally.
type ChartURLRenderer struct {
	BaseURL string
}

func NewChartURLRenderer() *ChartURLRenderer {
	return &ChartURLRenderer{BaseURL: "https://api.qrserver.com/v1/create-qr-code/"}
}

func (r *ChartURLRenderer) Render(provisioningURI string) (string, error) {
	v := url.Values{}
	v.Set("size", "200x200")
	v.Set("data", provisioningURI)
	return r.BaseURL + "?" + v.Encode(), nil
}
