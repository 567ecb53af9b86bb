package supermaya

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// setupTestDB creates a temporary database for testing and returns a Core
// with injected fake model clients. The caller should defer cleanup().
func setupTestDB(t *testing.T, opts Options) (*Core, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "supermaya-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	opts.DBPath = filepath.Join(tmpDir, "test.db")
	core, err := OpenWithOptions(opts)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("failed to open test db: %v", err)
	}

	cleanup := func() {
		core.Close()
		os.RemoveAll(tmpDir)
	}

	return core, cleanup
}

// testUser registers an account for testing.
func testUser(t *testing.T, core *Core, email string) *User {
	t.Helper()
	user, err := core.CreateUser(email, "secret-password")
	if err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// fakeMarket is a MarketDataClient returning canned history.
type fakeMarket struct {
	points []PricePoint
	err    error
	calls  int
}

func (f *fakeMarket) History(_ context.Context, _, _ string) ([]PricePoint, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.points, nil
}

// fakeTextClient is a TextModelClient returning a canned reply.
type fakeTextClient struct {
	reply string
	err   error
	calls int

	lastSystemPrompt string
	lastUserMessage  string
}

func (f *fakeTextClient) Complete(_ context.Context, systemPrompt, userMessage string) (string, error) {
	f.calls++
	f.lastSystemPrompt = systemPrompt
	f.lastUserMessage = userMessage
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

// fakeVisionClient is a VisionModelClient returning a canned reply.
type fakeVisionClient struct {
	reply string
	err   error
	calls int

	lastPrompt string
	lastImage  Image
}

func (f *fakeVisionClient) Analyze(_ context.Context, prompt string, image Image) (string, error) {
	f.calls++
	f.lastPrompt = prompt
	f.lastImage = image
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

// dailyPoints builds ascending daily price points ending today.
func dailyPoints(closes ...float64) []PricePoint {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	points := make([]PricePoint, 0, len(closes))
	for i, c := range closes {
		points = append(points, PricePoint{Time: base.AddDate(0, 0, i), Close: c})
	}
	return points
}

var errProviderDown = errors.New("provider unavailable")

// assertContains checks if the string contains the substring.
func assertContains(t *testing.T, s, substr, msg string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("%s: string %q does not contain %q", msg, s, substr)
	}
}

// assertNoError fails the test if err is not nil.
func assertNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", msg, err)
	}
}
