package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/hammamikhairi/talkytime/internal/domain"
	"github.com/hammamikhairi/talkytime/internal/logger"
)

var _ domain.Synthesizer = (*AzureClient)(nil)

// AzureOption configures the Azure TTS client.
type AzureOption func(*AzureClient)

// WithVoice sets the voice flagged as the backend default.
func WithVoice(voice string) AzureOption {
	return func(c *AzureClient) {
		c.voice = voice
	}
}

// WithAudioFormat sets the audio output format.
func WithAudioFormat(format string) AzureOption {
	return func(c *AzureClient) {
		c.format = format
	}
}

// WithHTTPTimeout sets the HTTP client timeout for TTS requests.
func WithHTTPTimeout(d time.Duration) AzureOption {
	return func(c *AzureClient) {
		c.httpClient.Timeout = d
	}
}

// WithBaseURL points the client at another endpoint, e.g. a test server.
func WithBaseURL(url string) AzureOption {
	return func(c *AzureClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// AzureClient handles text-to-speech synthesis via Azure Cognitive Services.
type AzureClient struct {
	subscriptionKey string
	region          string
	baseURL         string
	voice           string
	format          string
	httpClient      *http.Client
	log             *logger.Logger
}

// NewAzureClient creates an Azure TTS client with the given credentials.
func NewAzureClient(key, region string, log *logger.Logger, opts ...AzureOption) *AzureClient {
	c := &AzureClient{
		subscriptionKey: key,
		region:          region,
		baseURL:         fmt.Sprintf("https://%s.tts.speech.microsoft.com", region),
		voice:           DefaultAzureVoice,
		format:          DefaultAudioFormat,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name identifies the backend.
func (c *AzureClient) Name() string { return BackendAzure }

// Synthesize converts an utterance to WAV bytes.
func (c *AzureClient) Synthesize(ctx context.Context, u domain.Utterance) ([]byte, error) {
	voice := u.Voice.ID
	if voice == "" {
		voice = c.voice
	}
	ssml := buildSSML(voice, u.Voice.Lang, u.Text, u.Prosody)
	c.log.Debug("azure tts: synthesizing %d chars with voice %s", len(u.Text), voice)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/cognitiveservices/v1", strings.NewReader(ssml))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", c.format)
	req.Header.Set("User-Agent", "TalkyTime/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("azure tts error %d: %s", resp.StatusCode, string(body))
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading audio data: %w", err)
	}

	c.log.Debug("azure tts: got %d bytes of audio", len(audioData))
	return audioData, nil
}

// azureVoice is one entry of the voices/list response.
type azureVoice struct {
	ShortName   string `json:"ShortName"`
	DisplayName string `json:"DisplayName"`
	LocalName   string `json:"LocalName"`
	Locale      string `json:"Locale"`
}

// Voices lists the voices available in the region. The configured voice is
// flagged as the default.
func (c *AzureClient) Voices(ctx context.Context) ([]domain.Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/cognitiveservices/voices/list", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voice list request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("azure voice list error %d: %s", resp.StatusCode, string(body))
	}

	var raw []azureVoice
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding voice list: %w", err)
	}

	out := make([]domain.Voice, 0, len(raw))
	for _, v := range raw {
		name := v.DisplayName
		if name == "" {
			name = v.ShortName
		}
		out = append(out, domain.Voice{
			ID:      v.ShortName,
			Name:    name,
			Lang:    v.Locale,
			Default: v.ShortName == c.voice,
		})
	}
	c.log.Debug("azure tts: %d voices in %s", len(out), c.region)
	return out, nil
}

// buildSSML wraps text in a voice and prosody element. Rate and pitch are
// sent as relative percentages, volume as an absolute 0-100 level.
func buildSSML(voice, lang, text string, p domain.Prosody) string {
	if lang == "" {
		lang = "en-US"
	}
	var esc bytes.Buffer
	_ = xml.EscapeText(&esc, []byte(text))

	return fmt.Sprintf(
		`<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='%s'>`+
			`<voice xml:lang='%s' name='%s'>`+
			`<prosody rate='%s' pitch='%s' volume='%s'>%s</prosody>`+
			`</voice></speak>`,
		lang, lang, voice,
		relative(p.Rate), relative(p.Pitch), absoluteVolume(p.Volume), esc.String(),
	)
}

// relative renders a multiplier around 1.0 as "+25%" or "-40%".
func relative(mult float64) string {
	pct := int(math.Round((mult - 1) * 100))
	if pct >= 0 {
		return fmt.Sprintf("+%d%%", pct)
	}
	return fmt.Sprintf("%d%%", pct)
}

func absoluteVolume(v float64) string {
	v = math.Max(0, math.Min(1, v))
	return fmt.Sprintf("%d", int(math.Round(v*100)))
}
