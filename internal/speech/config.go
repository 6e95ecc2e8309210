package speech

// Azure defaults. Full voice list:
// https://learn.microsoft.com/en-us/azure/ai-services/speech-service/language-support
const (
	DefaultAzureVoice  = "en-US-AvaNeural"
	DefaultAudioFormat = "riff-24khz-16bit-mono-pcm"
)

// DefaultEspeakVoice is used when the user has not picked one.
const DefaultEspeakVoice = "en-us"

// Output parameters of the player. Other WAV layouts are converted.
const (
	SampleRate   = 24000
	ChannelCount = 1
	BitDepth     = 16
)

// Env var names for Azure Speech credentials.
const (
	EnvAzureSpeechKey    = "AZURE_SPEECH_KEY"
	EnvAzureSpeechRegion = "AZURE_SPEECH_REGION"
)

// Backend names, as reported by Synthesizer.Name.
const (
	BackendAzure  = "azure"
	BackendEspeak = "espeak"
	BackendNoOp   = "noop"
)
