package device

// Device is an enrolled device record.
type Device struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	PublicKey [32]byte  `json:"public_key"`
	Nonce     *[12]byte `json:"nonce,omitempty"`
}

// Pending is a device awaiting attestation by an already-enrolled device.
type Pending struct {
	Device
	VerificationCode string `json:"verification_code"`
}

// PublicDevice is the listing projection returned by GET /v1/devices.
type PublicDevice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PublicPending is the listing projection returned by
// GET /v1/verification_devices.
type PublicPending struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	VerificationCode string `json:"verification_code"`
}

// Public projects a Device to its public listing form.
func (d Device) Public() PublicDevice {
	return PublicDevice{ID: d.ID, Name: d.Name}
}

// Public projects a Pending record to its public listing form.
func (p Pending) Public() PublicPending {
	return PublicPending{ID: p.ID, Name: p.Name, VerificationCode: p.VerificationCode}
}
