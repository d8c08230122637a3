package accountapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GreenNest/internal/wizard"
	apperrors "GreenNest/pkg/errors"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL+"/", time.Second)
	require.NoError(t, err)
	return c
}

func TestClient_Availability(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/accounts/email-availability":
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"data": map[string]bool{"available": r.URL.Query().Get("email") == "new@example.com"},
			})
		case "/v1/accounts/nickname-availability":
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"data": map[string]bool{"available": false},
			})
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	ok, err := c.CheckEmailAvailability(ctx, "new@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.CheckEmailAvailability(ctx, "a+b@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.CheckNicknameAvailability(ctx, "Mina")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_CreateAccount(t *testing.T) {
	var got wizard.CreateAccountRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"data": wizard.CreateAccountResponse{OK: true, Item: &wizard.CreatedAccount{ID: "7", Email: got.Email}},
		})
	})

	resp, err := c.CreateAccount(context.Background(), wizard.CreateAccountRequest{
		Name: "Mina", Email: "mina@example.com", Type: wizard.AccountTypeUser,
		Extra: wizard.AccountExtra{Gender: wizard.GenderFemale},
	})
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Equal(t, "7", resp.Item.ID)
	assert.Equal(t, "mina@example.com", got.Email)
	assert.Equal(t, wizard.GenderFemale, got.Extra.Gender)
}

func TestClient_CreateAccountBusinessError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error": map[string]string{"code": apperrors.AccountEmailTaken.Code, "message": "This email is already registered"},
		})
	})

	resp, err := c.CreateAccount(context.Background(), wizard.CreateAccountRequest{Email: "mina@example.com"})
	require.NoError(t, err)
	assert.False(t, resp.OK)
	assert.Equal(t, "This email is already registered", resp.Message)
}

func TestClient_CreateAccountServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": map[string]string{"code": "INTERNAL_ERROR", "message": "boom"},
		})
	})

	_, err := c.CreateAccount(context.Background(), wizard.CreateAccountRequest{})
	assert.Error(t, err)
}

func TestClient_Upload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/files", r.URL.Path)
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "me.png", header.Filename)
		assert.Equal(t, []byte("png-bytes"), data)

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"data": wizard.UploadResult{OK: true, Item: []wizard.UploadedFile{{Path: "/files/profiles/me.png"}}},
		})
	})

	res, err := c.Upload(context.Background(), wizard.ImageFile{Filename: "me.png", ContentType: "image/png", Data: []byte("png-bytes")})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "/files/profiles/me.png", res.Path())
}

func TestClient_Unreachable(t *testing.T) {
	c, err := NewClient("http://127.0.0.1:1", 200*time.Millisecond)
	require.NoError(t, err)

	_, err = c.CheckEmailAvailability(context.Background(), "mina@example.com")
	assert.Error(t, err)
}
