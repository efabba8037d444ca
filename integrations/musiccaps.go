package integrations

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go"
	"go.uber.org/zap"
)

// MusicCapsClient calls an LP-MusicCaps Gradio space to caption audio clips.
// A nil client (or one with an empty SpaceURL) is treated as disabled.
type MusicCapsClient struct {
	Client   *http.Client
	SpaceURL string
}

// CaptionResult is the outcome of one captioning request.
type CaptionResult struct {
	Caption          string `json:"caption"`
	ModelUsed        string `json:"modelUsed"`
	ProcessingTimeMs int64  `json:"processingTimeMs"`
}

const musicCapsModel = "LP-MusicCaps (seungheondoh/lp-music-caps)"

func NewMusicCapsClient(spaceURL string) *MusicCapsClient {
	return &MusicCapsClient{
		Client:   &http.Client{Timeout: 60 * time.Second},
		SpaceURL: spaceURL,
	}
}

// Enabled reports whether a captioning endpoint is configured.
func (mc *MusicCapsClient) Enabled() bool {
	return mc != nil && mc.SpaceURL != ""
}

// Caption sends the audio bytes to the captioning model and returns the
// generated description. Transient failures are retried a few times before
// the error is surfaced.
func (mc *MusicCapsClient) Caption(ctx context.Context, audio []byte) (*CaptionResult, error) {
	if !mc.Enabled() {
		return nil, fmt.Errorf("music captioning is not configured")
	}

	payload, err := json.Marshal(map[string]any{
		"data": []any{map[string]any{
			"name":    "audio.wav",
			"data":    "data:audio/wav;base64," + base64.StdEncoding.EncodeToString(audio),
			"is_file": false,
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode caption request: %w", err)
	}

	start := time.Now()
	var caption string
	err = retry.Do(
		func() error {
			c, err := mc.predict(ctx, payload)
			if err != nil {
				return err
			}
			caption = c
			return nil
		},
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			zap.L().Warn("Retrying music caption request", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		return nil, err
	}

	return &CaptionResult{
		Caption:          caption,
		ModelUsed:        musicCapsModel,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

func (mc *MusicCapsClient) predict(ctx context.Context, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, mc.SpaceURL+"/api/predict", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create caption request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := mc.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send caption request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("caption API returned non-200 status: %s, body: %s", resp.Status, string(bodyBytes))
	}

	var result struct {
		Data []string `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode caption response: %w", err)
	}
	if len(result.Data) == 0 || result.Data[0] == "" {
		return "", fmt.Errorf("caption API returned no caption")
	}

	return result.Data[0], nil
}
