package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"supermaya/pkg/supermaya"
)

// fakeTextClient returns a canned structured reply for every completion.
type fakeTextClient struct {
	reply string
	err   error
}

func (f *fakeTextClient) Complete(_ context.Context, _, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

// fakeVisionClient returns a canned structured reply for every analysis.
type fakeVisionClient struct {
	reply string
	err   error
}

func (f *fakeVisionClient) Analyze(_ context.Context, _ string, _ supermaya.Image) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

// fakeMarket returns fixed closing prices.
type fakeMarket struct {
	points []supermaya.PricePoint
	err    error
}

func (f *fakeMarket) History(_ context.Context, _, _ string) ([]supermaya.PricePoint, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.points, nil
}

var errProviderDown = errors.New("provider unavailable")

// setupTestServer builds a router over a temp database with fake model
// clients and returns an httptest server.
func setupTestServer(t *testing.T) (*httptest.Server, *supermaya.Core, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "supermaya-api-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	core, err := supermaya.OpenWithOptions(supermaya.Options{
		DBPath:     filepath.Join(tmpDir, "test.db"),
		TextClient: &fakeTextClient{reply: `{"primary_response": "text reply"}`},
		VisionClient: &fakeVisionClient{
			reply: `{"image_description": "a scene", "user_query_answer": "an answer", "identified_objects": ["thing"]}`,
		},
		MarketData: &fakeMarket{points: []supermaya.PricePoint{
			{Time: base, Close: 100},
			{Time: base.AddDate(0, 0, 1), Close: 110},
		}},
	})
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("failed to open test core: %v", err)
	}

	tokens := NewTokenAuthority([]byte("test-secret"), time.Hour)
	server := httptest.NewServer(NewRouter(core, tokens))

	cleanup := func() {
		server.Close()
		core.Close()
		os.RemoveAll(tmpDir)
	}
	return server, core, cleanup
}

// registerAndLogin creates an account through the API and returns its token.
func registerAndLogin(t *testing.T, server *httptest.Server, email, password string) string {
	t.Helper()

	resp := postJSON(t, server, "/auth/register", "", map[string]string{
		"email":    email,
		"password": password,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register returned %d", resp.StatusCode)
	}

	resp = postJSON(t, server, "/auth/token", "", map[string]string{
		"username": email,
		"password": password,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("token returned %d", resp.StatusCode)
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	decodeBody(t, resp, &token)
	if token.AccessToken == "" {
		t.Fatal("empty access token")
	}
	return token.AccessToken
}

func postJSON(t *testing.T, server *httptest.Server, path, token string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, server.URL+path, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func getWithToken(t *testing.T, server *httptest.Server, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, server.URL+path, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode response body %q: %v", data, err)
	}
}

// testPNG encodes a tiny valid PNG for upload tests.
func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

// multipartImageRequest builds a POST /chat/image request body.
func multipartImageRequest(t *testing.T, server *httptest.Server, token, query string, imageData []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("user_query", query); err != nil {
		t.Fatalf("write field: %v", err)
	}
	part, err := writer.CreateFormFile("image", "upload.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(imageData); err != nil {
		t.Fatalf("write image: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, server.URL+"/chat/image", &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}
