package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/keybear/keybear/crypto"
	"github.com/keybear/keybear/device"
	"github.com/keybear/keybear/kv"
	"github.com/keybear/keybear/password"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	store, err := kv.Open(filepath.Join(t.TempDir(), "db"))
	require.NoError(t, err, "open store")
	t.Cleanup(func() { _ = store.Close() })

	serverKeys, err := crypto.GenerateKeyPair()
	require.NoError(t, err, "generate server key pair")

	return NewApp(device.NewRegistry(store), password.NewStore(store), serverKeys.Private, serverKeys.Public)
}

func doRequest(h http.Handler, method, path string, body []byte, clientID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.RemoteAddr = "127.0.0.1:54321"
	if clientID != "" {
		req.Header.Set(clientIDHeader, clientID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type testClient struct {
	keys   *crypto.KeyPair
	id     string
	shared [32]byte
}

func registerClient(t *testing.T, h http.Handler, name string) (*testClient, registerResponse) {
	t.Helper()
	keys, err := crypto.GenerateKeyPair()
	require.NoError(t, err, "generate client key pair")

	body, _ := json.Marshal(registerRequest{
		Name:      name,
		PublicKey: base64.StdEncoding.EncodeToString(keys.Public[:]),
	})
	rec := doRequest(h, http.MethodPost, "/v1/register", body, "")
	require.Equal(t, http.StatusOK, rec.Code, "register %s: body %q", name, rec.Body.String())

	var resp registerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), "decode register response")

	serverPublicRaw, err := base64.StdEncoding.DecodeString(resp.ServerPublicKey)
	require.NoError(t, err, "decode server public key")
	require.Len(t, serverPublicRaw, 32)
	var serverPublic [32]byte
	copy(serverPublic[:], serverPublicRaw)

	shared, err := crypto.DeriveSharedSecret(serverPublic, keys.Private)
	require.NoError(t, err, "derive shared secret")

	return &testClient{keys: keys, id: resp.ID, shared: shared}, resp
}

func fetchNonce(t *testing.T, h http.Handler, c *testClient) crypto.Nonce {
	t.Helper()
	rec := doRequest(h, http.MethodPost, "/v1/nonce", nil, c.id)
	require.Equal(t, http.StatusOK, rec.Code, "fetch nonce for %s: body %q", c.id, rec.Body.String())

	var raw [12]byte
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw), "decode nonce")
	return crypto.Nonce(raw)
}

// authedRequest encrypts plaintext as the authenticated request body for
// path, and decrypts a successful response back to plaintext.
func authedRequest(t *testing.T, h http.Handler, c *testClient, method, path string, plaintext []byte) (int, []byte) {
	t.Helper()
	nonce := fetchNonce(t, h, c)

	ciphertext, err := crypto.Encrypt(c.shared, nonce, plaintext)
	require.NoError(t, err, "encrypt request")

	rec := doRequest(h, method, path, ciphertext, c.id)
	if rec.Code < 200 || rec.Code >= 300 {
		return rec.Code, rec.Body.Bytes()
	}

	responsePlaintext, err := crypto.Decrypt(c.shared, nonce, rec.Body.Bytes())
	require.NoError(t, err, "decrypt response")
	return rec.Code, responsePlaintext
}

func TestFirstDeviceBootstrap(t *testing.T) {
	app := newTestApp(t)
	router := NewRouter(app)

	a, resp := registerClient(t, router, "a")
	assert.Empty(t, resp.VerificationCode, "expected empty verification code for first device")

	status, body := authedRequest(t, router, a, http.MethodGet, "/v1/devices", nil)
	require.Equal(t, http.StatusOK, status, "list devices")

	var listed []device.PublicDevice
	require.NoError(t, json.Unmarshal(body, &listed), "decode devices")
	require.Len(t, listed, 1)
	assert.Equal(t, a.id, listed[0].ID)
}

func TestSecondDeviceRequiresVerify(t *testing.T) {
	app := newTestApp(t)
	router := NewRouter(app)

	a, _ := registerClient(t, router, "a")
	b, respB := registerClient(t, router, "b")
	assert.NotEmpty(t, respB.VerificationCode, "expected non-empty verification code for second device")

	// b is still pending, so /v1/nonce refuses it; send a body sealed under a
	// locally generated nonce straight to the authenticated route instead.
	pendingNonce, err := crypto.GenerateNonce()
	require.NoError(t, err, "generate nonce")
	ciphertext, err := crypto.Encrypt(b.shared, pendingNonce, nil)
	require.NoError(t, err, "encrypt")
	rec := doRequest(router, http.MethodGet, "/v1/devices", ciphertext, b.id)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "expected 401 for unverified device")

	verifyBody, _ := json.Marshal(verifyRequest{ID: b.id, Name: "b", VerificationCode: respB.VerificationCode})
	status, _ := authedRequest(t, router, a, http.MethodPost, "/v1/verify", verifyBody)
	require.Equal(t, http.StatusOK, status, "verify")

	status, body := authedRequest(t, router, b, http.MethodGet, "/v1/devices", nil)
	require.Equal(t, http.StatusOK, status, "list devices as verified b")

	var listed []device.PublicDevice
	require.NoError(t, json.Unmarshal(body, &listed), "decode devices")
	assert.Len(t, listed, 2, "expected two enrolled devices")
}

func TestSelfVerifyIsRejected(t *testing.T) {
	app := newTestApp(t)
	router := NewRouter(app)

	_, _ = registerClient(t, router, "a")
	b, respB := registerClient(t, router, "b")

	verifyBody, _ := json.Marshal(verifyRequest{ID: b.id, Name: "b", VerificationCode: respB.VerificationCode})
	status, _ := authedRequest(t, router, b, http.MethodPost, "/v1/verify", verifyBody)
	assert.Equal(t, http.StatusBadRequest, status, "expected 400 for self-verify")

	pending, err := app.Registry.ListPending()
	require.NoError(t, err, "list pending")
	require.Len(t, pending, 1, "expected b to remain pending")
	assert.Equal(t, b.id, pending[0].ID)
}

func TestNonceIsSingleUse(t *testing.T) {
	app := newTestApp(t)
	router := NewRouter(app)

	a, _ := registerClient(t, router, "a")

	nonce := fetchNonce(t, router, a)
	ciphertext, err := crypto.Encrypt(a.shared, nonce, nil)
	require.NoError(t, err, "encrypt")

	rec := doRequest(router, http.MethodGet, "/v1/passwords", ciphertext, a.id)
	require.Equal(t, http.StatusOK, rec.Code, "first authenticated request: body %q", rec.Body.String())

	rec2 := doRequest(router, http.MethodGet, "/v1/passwords", ciphertext, a.id)
	assert.Equal(t, http.StatusUnauthorized, rec2.Code, "expected 401 reusing stale nonce")
}

func TestLoopbackGuardRejectsNonLocalPeer(t *testing.T) {
	app := newTestApp(t)
	router := NewRouter(app)

	req := httptest.NewRequest(http.MethodGet, "/v1/devices", nil)
	req.RemoteAddr = "192.168.1.2:5000"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code, "expected guard to refuse non-loopback peer")
}

func TestPasswordRoundTrip(t *testing.T) {
	app := newTestApp(t)
	router := NewRouter(app)

	a, _ := registerClient(t, router, "a")

	createBody, _ := json.Marshal(passwordRequest{Name: "x", Password: "p"})
	status, body := authedRequest(t, router, a, http.MethodPost, "/v1/passwords", createBody)
	require.Equal(t, http.StatusOK, status, "create password: body %q", body)

	var created password.Public
	require.NoError(t, json.Unmarshal(body, &created), "decode created password")
	assert.Equal(t, "x", created.Name)

	status, body = authedRequest(t, router, a, http.MethodGet, "/v1/passwords/"+created.ID, nil)
	require.Equal(t, http.StatusOK, status, "get password: body %q", body)

	var secret password.Secret
	require.NoError(t, json.Unmarshal(body, &secret), "decode secret")
	assert.Equal(t, "p", secret.Password)

	status, body = authedRequest(t, router, a, http.MethodGet, "/v1/passwords", nil)
	require.Equal(t, http.StatusOK, status, "list passwords")
	assert.NotContains(t, string(body), "password", "password listing must omit the secret field")
}
