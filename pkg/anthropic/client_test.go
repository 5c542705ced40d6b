package anthropic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockClient implements Client for testing.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Extract(ctx context.Context, req ExtractRequest) (*ExtractResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ExtractResponse), args.Error(1)
}

func TestMockClient_Extract(t *testing.T) {
	m := &MockClient{}
	m.On("Extract", mock.Anything, mock.Anything).Return(&ExtractResponse{
		Text:  `{"invoice_number": "INV-001"}`,
		Usage: TokenUsage{InputTokens: 1500, OutputTokens: 200},
	}, nil)

	resp, err := m.Extract(context.Background(), ExtractRequest{
		Model:     "claude-sonnet-4-5-20250929",
		MediaType: "image/png",
		Data:      []byte{0x89, 'P', 'N', 'G'},
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Text, "INV-001")
	m.AssertExpectations(t)
}

func TestSDKClient_Extract_EmptyDocument(t *testing.T) {
	c := NewClient("test-key", 0, 1)

	_, err := c.Extract(context.Background(), ExtractRequest{
		Model:     "claude-sonnet-4-5-20250929",
		MediaType: "image/png",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty document")
}

func TestTokenUsage_EstimateCost(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}

	assert.InDelta(t, 18.00, u.EstimateCost("claude-sonnet-4-5-20250929"), 0.001)
	assert.InDelta(t, 4.80, u.EstimateCost("claude-haiku-4-5-20251001"), 0.001)
	assert.Equal(t, 0.0, u.EstimateCost("unknown-model"))
}
