package integrations

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"go.uber.org/zap"
)

const (
	clapModel    = "CLAP (laion/larger_clap_music_and_speech)"
	clapProvider = "Hugging Face"

	defaultClapEndpoint = "https://api-inference.huggingface.co/models/laion/larger_clap_music_and_speech"
)

// clapLabels are the candidate labels for zero-shot classification, grouped
// by musical aspect.
var clapLabels = []string{
	// genres
	"rock music", "pop music", "jazz music", "classical music",
	"electronic music", "hip hop music", "folk music", "country music",
	"blues music", "reggae music", "metal music", "punk music",

	// moods
	"happy upbeat music", "sad melancholic music", "energetic exciting music",
	"calm relaxing music", "aggressive intense music", "romantic love song",
	"party dance music", "peaceful ambient music", "dramatic epic music",

	// instruments
	"guitar music", "piano music", "violin music", "drums music",
	"synthesizer electronic", "saxophone jazz", "acoustic guitar",
	"electric guitar", "orchestral music", "vocal singing",

	// styles
	"instrumental music", "vocal music", "slow ballad", "fast tempo",
	"acoustic unplugged", "heavy distorted", "melodic harmonic",
}

// ClapClient runs zero-shot genre/mood/instrument classification of audio
// clips against a CLAP model. A nil client (or one without a token) is
// treated as disabled.
type ClapClient struct {
	Client   *http.Client
	Endpoint string
	Token    string
}

// MusicAnalysis is the structured interpretation of the classification
// scores.
type MusicAnalysis struct {
	Genre       string   `json:"genre"`
	Mood        string   `json:"mood"`
	Instruments []string `json:"instruments"`
	Style       string   `json:"style"`
	Confidence  float64  `json:"confidence"`
}

// AnalysisResult is the outcome of one analysis request.
type AnalysisResult struct {
	MusicNotes string        `json:"musicNotes"`
	Analysis   MusicAnalysis `json:"analysis"`
	Model      string        `json:"model"`
	Provider   string        `json:"provider"`
}

func NewClapClient(token string) *ClapClient {
	return &ClapClient{
		Client:   &http.Client{Timeout: 60 * time.Second},
		Endpoint: defaultClapEndpoint,
		Token:    token,
	}
}

// Enabled reports whether an API token is configured.
func (cc *ClapClient) Enabled() bool {
	return cc != nil && cc.Token != ""
}

// Analyze classifies the audio bytes and returns the structured analysis plus
// formatted notes ready to store on a card.
func (cc *ClapClient) Analyze(ctx context.Context, audio []byte) (*AnalysisResult, error) {
	if !cc.Enabled() {
		return nil, fmt.Errorf("music analysis is not configured")
	}

	payload, err := json.Marshal(map[string]any{
		"inputs": map[string]any{
			"audio": base64.StdEncoding.EncodeToString(audio),
		},
		"parameters": map[string]any{
			"candidate_labels": clapLabels,
			"multi_label":      true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis request: %w", err)
	}

	var scores []clapScore
	err = retry.Do(
		func() error {
			s, err := cc.classify(ctx, payload)
			if err != nil {
				return err
			}
			scores = s
			return nil
		},
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			zap.L().Warn("Retrying music analysis request", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		return nil, err
	}

	analysis := interpretScores(scores)
	return &AnalysisResult{
		MusicNotes: formatMusicNotes(analysis),
		Analysis:   analysis,
		Model:      clapModel,
		Provider:   clapProvider,
	}, nil
}

type clapScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func (cc *ClapClient) classify(ctx context.Context, payload []byte) ([]clapScore, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cc.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cc.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := cc.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send analysis request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusServiceUnavailable:
		return nil, fmt.Errorf("analysis model is loading, please try again in a few minutes")
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("invalid analysis API token")
	default:
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("analysis API returned non-200 status: %s, body: %s", resp.Status, string(bodyBytes))
	}

	var scores []clapScore
	if err := json.NewDecoder(resp.Body).Decode(&scores); err != nil {
		return nil, fmt.Errorf("failed to decode analysis response: %w", err)
	}
	if len(scores) == 0 {
		return nil, fmt.Errorf("analysis API returned no scores")
	}
	return scores, nil
}

// clapMinScore is the confidence floor below which labels are ignored.
const clapMinScore = 0.1

var clapGenres = []string{
	"rock", "pop", "jazz", "classical", "electronic", "hip hop",
	"folk", "country", "blues", "reggae", "metal", "punk",
}

var clapMoods = []struct {
	keywords []string
	mood     string
}{
	{[]string{"happy", "upbeat"}, "happy"},
	{[]string{"sad", "melancholic"}, "sad"},
	{[]string{"energetic", "exciting", "party", "dance"}, "energetic"},
	{[]string{"calm", "relaxing", "peaceful"}, "calm"},
	{[]string{"aggressive", "intense"}, "intense"},
	{[]string{"romantic", "love"}, "romantic"},
	{[]string{"dramatic", "epic"}, "dramatic"},
}

var clapInstruments = []string{"guitar", "piano", "violin", "drums", "synthesizer", "saxophone"}

var clapStyles = []struct {
	keywords []string
	style    string
}{
	{[]string{"instrumental"}, "instrumental"},
	{[]string{"vocal", "singing"}, "vocal"},
	{[]string{"acoustic", "unplugged"}, "acoustic"},
	{[]string{"electronic", "synthesizer"}, "electronic"},
	{[]string{"slow", "ballad"}, "slow"},
	{[]string{"fast", "tempo"}, "fast"},
}

// interpretScores reduces the ranked label scores to one genre, one mood, one
// style and the detected instruments. The first confident match per aspect
// wins; instruments accumulate.
func interpretScores(scores []clapScore) MusicAnalysis {
	sorted := make([]clapScore, len(scores))
	copy(sorted, scores)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	analysis := MusicAnalysis{
		Genre:       "unknown",
		Mood:        "unknown",
		Style:       "unknown",
		Instruments: []string{},
	}

	for _, s := range sorted {
		if s.Score <= clapMinScore {
			continue
		}
		label := strings.ToLower(s.Label)

		if analysis.Genre == "unknown" {
			for _, genre := range clapGenres {
				if strings.Contains(label, genre) {
					analysis.Genre = genre
					if s.Score > analysis.Confidence {
						analysis.Confidence = s.Score
					}
					break
				}
			}
		}
		if analysis.Mood == "unknown" {
			for _, m := range clapMoods {
				if containsAny(label, m.keywords) {
					analysis.Mood = m.mood
					break
				}
			}
		}
		for _, instrument := range clapInstruments {
			if strings.Contains(label, instrument) && !contains(analysis.Instruments, instrument) {
				analysis.Instruments = append(analysis.Instruments, instrument)
			}
		}
		if analysis.Style == "unknown" {
			for _, st := range clapStyles {
				if containsAny(label, st.keywords) {
					analysis.Style = st.style
					break
				}
			}
		}
	}
	return analysis
}

// formatMusicNotes renders the analysis as the markdown text stored in a
// card's music notes field.
func formatMusicNotes(a MusicAnalysis) string {
	var b strings.Builder
	b.WriteString("🎵 **Music AI Analysis**\n\n")

	if a.Genre != "unknown" {
		fmt.Fprintf(&b, "**Genre:** %s\n", capitalize(a.Genre))
	}
	if a.Mood != "unknown" {
		fmt.Fprintf(&b, "**Mood:** %s\n", capitalize(a.Mood))
	}
	if a.Style != "unknown" {
		fmt.Fprintf(&b, "**Style:** %s\n", capitalize(a.Style))
	}
	if len(a.Instruments) > 0 {
		names := make([]string, len(a.Instruments))
		for i, instrument := range a.Instruments {
			names[i] = capitalize(instrument)
		}
		fmt.Fprintf(&b, "**Instruments:** %s\n", strings.Join(names, ", "))
	}
	if a.Confidence > 0 {
		fmt.Fprintf(&b, "**Confidence:** %d%%\n", int(a.Confidence*100+0.5))
	}

	b.WriteString("\n*Generated by CLAP (Contrastive Language-Audio Pretraining)*")
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
