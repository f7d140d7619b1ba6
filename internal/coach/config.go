package coach

import "github.com/MrWong99/gardencoach/pkg/audio"

// DefaultSystemInstruction is the coaching persona sent when none is
// configured.
const DefaultSystemInstruction = `Eres un experto Coach de Pitch para un ecosistema emprendedor llamado 'The Garden Method' (El Método del Jardín).
Tu objetivo es ayudar al usuario a pulir su "elevator pitch" de 30 segundos.
Metáfora: eres un jardinero experimentado ayudando a una semilla a crecer.
Estilo: alentador, conciso, haz una pregunta a la vez.
Idioma: español latino.
Empieza pidiendo al usuario que presente brevemente su idea.`

// Defaults applied by [Config.withDefaults].
const (
	DefaultModel      = "gemini-2.5-flash-native-audio-preview-12-2025"
	DefaultVoice      = "Kore"
	DefaultSendBuffer = 64
)

// Config is the per-session configuration. It is copied when a session
// starts; changes made through [Engine.UpdateConfig] apply to the next one.
type Config struct {
	// Model is the live model identifier. Empty uses the provider default.
	Model string

	// Voice is the prebuilt voice name.
	Voice string

	// SystemInstruction describes the coaching persona.
	SystemInstruction string

	// FrameSize is the number of samples per outbound frame.
	FrameSize int

	// InputSampleRate is the capture and upload rate in Hz.
	InputSampleRate int

	// OutputSampleRate is the assumed rate of model audio when a message does
	// not say.
	OutputSampleRate int

	// SendBuffer bounds the number of encoded frames waiting for the sender.
	SendBuffer int
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Voice == "" {
		c.Voice = DefaultVoice
	}
	if c.SystemInstruction == "" {
		c.SystemInstruction = DefaultSystemInstruction
	}
	if c.FrameSize <= 0 {
		c.FrameSize = audio.DefaultFrameSize
	}
	if c.InputSampleRate <= 0 {
		c.InputSampleRate = audio.InputSampleRate
	}
	if c.OutputSampleRate <= 0 {
		c.OutputSampleRate = audio.OutputSampleRate
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = DefaultSendBuffer
	}
	return c
}

func (c Config) inputFormat() audio.Format {
	return audio.Format{SampleRate: c.InputSampleRate, Channels: 1}
}
