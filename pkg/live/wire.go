package live

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/renandav/livia/pkg/errorsx"
	"github.com/renandav/livia/pkg/schema"
	"github.com/renandav/livia/pkg/tool"
)

const (
	mimePCM           = "audio/pcm"
	defaultSampleRate = 24000
)

// Client -> server messages. Exactly one field is set per message.
type clientMessage struct {
	Setup         *setupPayload        `json:"setup,omitempty"`
	RealtimeInput *realtimeInput       `json:"realtimeInput,omitempty"`
	ClientContent *clientContent       `json:"clientContent,omitempty"`
	ToolResponse  *toolResponsePayload `json:"toolResponse,omitempty"`
}

type setupPayload struct {
	Model             string            `json:"model"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Tools             []toolBundle      `json:"tools,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig *voiceConfig `json:"voiceConfig,omitempty"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig *prebuiltVoiceConfig `json:"prebuiltVoiceConfig,omitempty"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts,omitempty"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type toolBundle struct {
	FunctionDeclarations []functionDeclaration `json:"functionDeclarations"`
}

type functionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  *schema.Schema `json:"parameters,omitempty"`
}

type realtimeInput struct {
	MediaChunks []inlineData `json:"mediaChunks"`
}

type clientContent struct {
	Turns        []content `json:"turns,omitempty"`
	TurnComplete bool      `json:"turnComplete"`
}

type toolResponsePayload struct {
	FunctionResponses []tool.FunctionResponse `json:"functionResponses"`
}

// Server -> client messages.
type serverMessage struct {
	SetupComplete        *setupCompletePayload `json:"setupComplete,omitempty"`
	ServerContent        *serverContent        `json:"serverContent,omitempty"`
	ToolCall             *toolCallPayload      `json:"toolCall,omitempty"`
	ToolCallCancellation *toolCancelPayload    `json:"toolCallCancellation,omitempty"`
}

type setupCompletePayload struct{}

type serverContent struct {
	ModelTurn           *content       `json:"modelTurn,omitempty"`
	Interrupted         bool           `json:"interrupted,omitempty"`
	TurnComplete        bool           `json:"turnComplete,omitempty"`
	InputTranscription  *transcription `json:"inputTranscription,omitempty"`
	OutputTranscription *transcription `json:"outputTranscription,omitempty"`
}

type transcription struct {
	Text     string `json:"text,omitempty"`
	Finished bool   `json:"finished,omitempty"`
}

type toolCallPayload struct {
	FunctionCalls []tool.FunctionCall `json:"functionCalls"`
}

type toolCancelPayload struct {
	IDs []string `json:"ids"`
}

func newSetupMessage(cfg Config, decls []functionDeclaration) clientMessage {
	setup := &setupPayload{
		Model: cfg.Model,
		GenerationConfig: &generationConfig{
			ResponseModalities: cfg.ResponseModalities,
			SpeechConfig: &speechConfig{
				VoiceConfig: &voiceConfig{
					PrebuiltVoiceConfig: &prebuiltVoiceConfig{VoiceName: cfg.Voice},
				},
			},
		},
	}
	if cfg.SystemInstruction != "" {
		setup.SystemInstruction = &content{Parts: []part{{Text: cfg.SystemInstruction}}}
	}
	if len(decls) > 0 {
		setup.Tools = []toolBundle{{FunctionDeclarations: decls}}
	}
	return clientMessage{Setup: setup}
}

func newAudioMessage(pcm []byte) clientMessage {
	return clientMessage{
		RealtimeInput: &realtimeInput{
			MediaChunks: []inlineData{{
				MimeType: mimePCM,
				Data:     base64.StdEncoding.EncodeToString(pcm),
			}},
		},
	}
}

func newTextMessage(text string) clientMessage {
	return clientMessage{
		ClientContent: &clientContent{
			Turns:        []content{{Role: "user", Parts: []part{{Text: text}}}},
			TurnComplete: true,
		},
	}
}

func newToolResponseMessage(resps []tool.FunctionResponse) clientMessage {
	return clientMessage{
		ToolResponse: &toolResponsePayload{FunctionResponses: resps},
	}
}

// declarationsFor exports the enabled definitions in registration order.
func declarationsFor(defs []tool.Definition) []functionDeclaration {
	var decls []functionDeclaration
	for _, def := range defs {
		if !def.Enabled {
			continue
		}
		decls = append(decls, functionDeclaration{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  def.Parameters,
		})
	}
	return decls
}

// decodeServerMessage maps one wire message onto session events. A single
// serverContent may fan out into several events; their order follows the
// wire layout, with interruption and turn completion after the content that
// preceded them.
func decodeServerMessage(raw []byte) ([]Event, error) {
	var msg serverMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonLiveDecode)
	}

	now := time.Now()
	var evs []Event
	if msg.SetupComplete != nil {
		evs = append(evs, Event{Kind: KindSetupComplete, At: now})
	}
	if sc := msg.ServerContent; sc != nil {
		if sc.ModelTurn != nil {
			for _, p := range sc.ModelTurn.Parts {
				if p.InlineData != nil && strings.HasPrefix(p.InlineData.MimeType, mimePCM) {
					pcm, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
					if err != nil || len(pcm) == 0 {
						continue
					}
					evs = append(evs, Event{
						Kind:       KindAudio,
						At:         now,
						PCM:        pcm,
						SampleRate: pcmRate(p.InlineData.MimeType),
						Channels:   1,
					})
				}
				if p.Text != "" {
					evs = append(evs, Event{Kind: KindContent, At: now, Text: p.Text, Source: SourceModel})
				}
			}
		}
		if t := sc.InputTranscription; t != nil && t.Text != "" {
			evs = append(evs, Event{Kind: KindContent, At: now, Text: t.Text, Source: SourceInputTranscription, Final: t.Finished})
		}
		if t := sc.OutputTranscription; t != nil && t.Text != "" {
			evs = append(evs, Event{Kind: KindContent, At: now, Text: t.Text, Source: SourceOutputTranscription, Final: t.Finished})
		}
		if sc.Interrupted {
			evs = append(evs, Event{Kind: KindInterrupted, At: now})
		}
		if sc.TurnComplete {
			evs = append(evs, Event{Kind: KindTurnComplete, At: now})
		}
	}
	if msg.ToolCall != nil && len(msg.ToolCall.FunctionCalls) > 0 {
		evs = append(evs, Event{Kind: KindToolCall, At: now, Calls: msg.ToolCall.FunctionCalls})
	}
	if msg.ToolCallCancellation != nil && len(msg.ToolCallCancellation.IDs) > 0 {
		evs = append(evs, Event{Kind: KindToolCallCancellation, At: now, CancelledIDs: msg.ToolCallCancellation.IDs})
	}
	return evs, nil
}

// pcmRate reads the rate parameter out of a mime type such as
// "audio/pcm;rate=24000".
func pcmRate(mime string) int {
	for _, p := range strings.Split(mime, ";") {
		p = strings.TrimSpace(p)
		if !strings.HasPrefix(p, "rate=") {
			continue
		}
		if rate, err := strconv.Atoi(strings.TrimPrefix(p, "rate=")); err == nil && rate > 0 {
			return rate
		}
	}
	return defaultSampleRate
}
