package password

// Password is a single secret record.
type Password struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Secret  string `json:"password"`
	Email   string `json:"email,omitempty"`
	Website string `json:"website,omitempty"`
}

// Public is the listing projection that omits the secret value.
type Public struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Website string `json:"website,omitempty"`
}

// Secret is the single-record fetch projection: just the secret value
// (`GET /v1/passwords/{id}` returns `{"password": str}`).
type Secret struct {
	Password string `json:"password"`
}

// Public projects a Password to its listing form, omitting the secret.
func (p Password) Public() Public {
	return Public{ID: p.ID, Name: p.Name, Email: p.Email, Website: p.Website}
}
