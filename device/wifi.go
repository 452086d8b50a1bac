package device

import "context"

// WifiStatus describes the device's current network.
type WifiStatus struct {
	Enabled bool   `json:"enabled"`
	SSID    string `json:"ssid"`
}

// HotspotStatus describes the device's own hotspot, used as the shared
// network in ticsync recordings.
type HotspotStatus struct {
	Enabled    bool   `json:"enabled"`
	SSID       string `json:"ssid"`
	Passphrase string `json:"passphrase"`
}

// WifiManager controls the device's Wi-Fi radio.
type WifiManager struct {
	client *Client
}

// Status returns the current Wi-Fi connection status.
func (m *WifiManager) Status(ctx context.Context) (*WifiStatus, error) {
	var status WifiStatus
	if err := m.client.get(ctx, "/wifi/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// SetHotspot enables or disables the device hotspot and returns its
// credentials when enabling.
func (m *WifiManager) SetHotspot(ctx context.Context, enabled, band5GHz bool, countryCode string) (*HotspotStatus, error) {
	in := struct {
		Enabled     bool   `json:"enabled"`
		Band5GHz    bool   `json:"band_5ghz"`
		CountryCode string `json:"country_code"`
	}{enabled, band5GHz, countryCode}

	var status HotspotStatus
	if err := m.client.post(ctx, "/wifi/hotspot", in, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ConnectNetwork joins the device to a Wi-Fi network.
func (m *WifiManager) ConnectNetwork(ctx context.Context, ssid, passphrase string, keepOn bool) error {
	in := struct {
		SSID       string `json:"ssid"`
		Passphrase string `json:"passphrase"`
		KeepOn     bool   `json:"keep_on"`
	}{ssid, passphrase, keepOn}

	return m.client.post(ctx, "/wifi/connect", in, nil)
}

// KeepOn controls whether the device holds its Wi-Fi connection while
// unplugged.
func (m *WifiManager) KeepOn(ctx context.Context, keepOn bool) error {
	in := struct {
		KeepOn bool `json:"keep_on"`
	}{keepOn}
	return m.client.post(ctx, "/wifi/keep-on", in, nil)
}

// Forget removes a saved network from the device.
func (m *WifiManager) Forget(ctx context.Context, ssid string) error {
	in := struct {
		SSID string `json:"ssid"`
	}{ssid}
	return m.client.post(ctx, "/wifi/forget", in, nil)
}
