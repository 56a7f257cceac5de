package config

const (
	defaultWorkDir           = "~/.local/share/revoice/work"
	defaultLibraryDir        = "~/library/shorts"
	defaultLogDir            = "~/.local/share/revoice/logs"
	defaultInboxDir          = "~/.local/share/revoice/inbox"
	defaultAPIBind           = "127.0.0.1:7910"
	defaultHeartbeatInterval = 15
	defaultHeartbeatTimeout  = 120
	defaultStageTimeout      = 600
	defaultDownloadBinary    = "yt-dlp"
	defaultDownloadFormat    = "mp4"
	defaultTranscribeBinary  = "whisper"
	defaultTranscribeModel   = "base"
	defaultLLMBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel          = "google/gemini-3-flash-preview"
	defaultLLMTimeout        = 60
	defaultSynthesizeBinary  = "edge-tts"
	defaultSynthesizeVoice   = "en-US-AriaNeural"
	defaultNotifyTimeout     = 10
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:    defaultWorkDir,
			LibraryDir: defaultLibraryDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Workflow: Workflow{
			HeartbeatInterval: defaultHeartbeatInterval,
			HeartbeatTimeout:  defaultHeartbeatTimeout,
		},
		Stages: Stages{
			DefaultTimeout: defaultStageTimeout,
		},
		Download: Download{
			Binary: defaultDownloadBinary,
			Format: defaultDownloadFormat,
		},
		Transcribe: Transcribe{
			Binary: defaultTranscribeBinary,
			Model:  defaultTranscribeModel,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeout,
		},
		Synthesize: Synthesize{
			Binary: defaultSynthesizeBinary,
			Voice:  defaultSynthesizeVoice,
		},
		Inbox: Inbox{
			Dir: defaultInboxDir,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Publishes:      true,
			Failures:       true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
