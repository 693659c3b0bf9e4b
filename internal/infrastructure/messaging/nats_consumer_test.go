package messaging

import (
	"encoding/json"
	"sync"
	"testing"

	"holder-risk-engine/internal/domain/entity"
	"holder-risk-engine/internal/infrastructure/config"
	"holder-risk-engine/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAnalysisRequest(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    entity.AnalysisRequest
		wantErr bool
	}{
		{
			name: "valid request",
			data: `{"request_id":"r1","token_address":"HEZ6KcNNUKaWvUCBEe4BtfoeDHEHPkCHY9JaDNqrpump"}`,
			want: entity.AnalysisRequest{RequestID: "r1", TokenAddress: "HEZ6KcNNUKaWvUCBEe4BtfoeDHEHPkCHY9JaDNqrpump"},
		},
		{
			name: "address is trimmed",
			data: `{"token_address":"  abc  "}`,
			want: entity.AnalysisRequest{TokenAddress: "abc"},
		},
		{name: "missing address", data: `{"request_id":"r1"}`, wantErr: true},
		{name: "invalid json", data: `not json`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeAnalysisRequest([]byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newTestConsumer(capacity int) *NATSConsumer {
	return NewNATSConsumer(&config.NATSConfig{MaxPendingMessages: capacity}, logger.NewNopLogger())
}

func TestNATSConsumer_EnqueueRejectsWhenFull(t *testing.T) {
	n := newTestConsumer(1)

	assert.True(t, n.enqueue(&entity.AnalysisJob{Request: entity.AnalysisRequest{TokenAddress: "a"}}))
	assert.False(t, n.enqueue(&entity.AnalysisJob{Request: entity.AnalysisRequest{TokenAddress: "b"}}))

	job := <-n.GetJobChannel()
	assert.Equal(t, "a", job.Request.TokenAddress)
}

func TestNATSConsumer_DisconnectClosesChannelOnce(t *testing.T) {
	n := newTestConsumer(1)

	require.NoError(t, n.Disconnect())
	require.NoError(t, n.Disconnect())

	assert.False(t, n.enqueue(&entity.AnalysisJob{}))
	_, ok := <-n.GetJobChannel()
	assert.False(t, ok)
	assert.False(t, n.IsConnected())
}

func TestNATSConsumer_DisconnectConcurrentWithReaders(t *testing.T) {
	n := newTestConsumer(8)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				n.IsConnected()
				n.Conn()
				n.enqueue(&entity.AnalysisJob{Request: entity.AnalysisRequest{TokenAddress: "a"}})
			}
		}()
	}

	require.NoError(t, n.Disconnect())
	wg.Wait()

	assert.Nil(t, n.Conn())
	assert.False(t, n.IsConnected())
}

func TestErrorReply(t *testing.T) {
	var body map[string]string
	require.NoError(t, json.Unmarshal(errorReply(errEmptyTokenAddress), &body))
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, errEmptyTokenAddress.Error(), body["message"])
}
