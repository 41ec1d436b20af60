package live

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/renandav/livia/pkg/errorsx"
	"github.com/renandav/livia/pkg/schema"
	"github.com/renandav/livia/pkg/tool"
)

func TestDecodeAudioPart(t *testing.T) {
	pcm := []byte{1, 2, 3, 4}
	raw := `{"serverContent":{"modelTurn":{"parts":[{"inlineData":{"mimeType":"audio/pcm;rate=16000","data":"` +
		base64.StdEncoding.EncodeToString(pcm) + `"}}]}}}`

	evs, err := decodeServerMessage([]byte(raw))
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(evs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evs))
	}
	ev := evs[0]
	if ev.Kind != KindAudio {
		t.Fatalf("expected audio event, got %q", ev.Kind)
	}
	if !bytes.Equal(ev.PCM, pcm) {
		t.Fatalf("unexpected pcm payload: %v", ev.PCM)
	}
	if ev.SampleRate != 16000 || ev.Channels != 1 {
		t.Fatalf("unexpected format: %d/%d", ev.SampleRate, ev.Channels)
	}
}

func TestDecodeToolCall(t *testing.T) {
	raw := `{"toolCall":{"functionCalls":[{"id":"call-1","name":"get_voucher_status","args":{"voucherId":"VOUCHER123"}}]}}`

	evs, err := decodeServerMessage([]byte(raw))
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(evs) != 1 || evs[0].Kind != KindToolCall {
		t.Fatalf("expected a single tool_call event, got %+v", evs)
	}
	calls := evs[0].Calls
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].ID != "call-1" || calls[0].Name != "get_voucher_status" {
		t.Fatalf("unexpected call identity: %+v", calls[0])
	}
	if got := calls[0].Args["voucherId"]; got != "VOUCHER123" {
		t.Fatalf("unexpected args: %v", calls[0].Args)
	}
}

func TestDecodeContentThenTurnComplete(t *testing.T) {
	raw := `{"serverContent":{"modelTurn":{"parts":[{"text":"hello"}]},"turnComplete":true}}`

	evs, err := decodeServerMessage([]byte(raw))
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(evs) != 2 {
		t.Fatalf("expected 2 events, got %d", len(evs))
	}
	if evs[0].Kind != KindContent || evs[0].Text != "hello" || evs[0].Source != SourceModel {
		t.Fatalf("unexpected content event: %+v", evs[0])
	}
	if evs[1].Kind != KindTurnComplete {
		t.Fatalf("expected turn_complete after content, got %q", evs[1].Kind)
	}
}

func TestDecodeTranscriptions(t *testing.T) {
	raw := `{"serverContent":{"inputTranscription":{"text":"hi there","finished":true},"outputTranscription":{"text":"hello"}}}`

	evs, err := decodeServerMessage([]byte(raw))
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(evs) != 2 {
		t.Fatalf("expected 2 events, got %d", len(evs))
	}
	if evs[0].Source != SourceInputTranscription || !evs[0].Final {
		t.Fatalf("unexpected input transcription event: %+v", evs[0])
	}
	if evs[1].Source != SourceOutputTranscription || evs[1].Final {
		t.Fatalf("unexpected output transcription event: %+v", evs[1])
	}
}

func TestDecodeCancellation(t *testing.T) {
	raw := `{"toolCallCancellation":{"ids":["a","b"]}}`

	evs, err := decodeServerMessage([]byte(raw))
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(evs) != 1 || evs[0].Kind != KindToolCallCancellation {
		t.Fatalf("expected cancellation event, got %+v", evs)
	}
	if len(evs[0].CancelledIDs) != 2 || evs[0].CancelledIDs[0] != "a" {
		t.Fatalf("unexpected ids: %v", evs[0].CancelledIDs)
	}
}

func TestDecodeMalformedMessage(t *testing.T) {
	_, err := decodeServerMessage([]byte("{not json"))
	if err == nil {
		t.Fatalf("expected decode error")
	}
	if !errorsx.HasReason(err, errorsx.ReasonLiveDecode) {
		t.Fatalf("expected live_decode reason, got %v", err)
	}
}

func TestSetupMessageShape(t *testing.T) {
	cfg := Config{
		Model:             "models/gemini-2.0-flash-exp",
		SystemInstruction: "be brief",
	}.withDefaults()
	defs := []tool.Definition{
		{
			Name:        "render_chart",
			Description: "Render a chart",
			Parameters:  schema.Object(map[string]*schema.Schema{"series": schema.Array(schema.Number(""), "")}, "series"),
			Enabled:     true,
		},
		{Name: "disabled_tool", Enabled: false},
	}

	b, err := json.Marshal(newSetupMessage(cfg, declarationsFor(defs)))
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	setup, _ := got["setup"].(map[string]any)
	if setup == nil {
		t.Fatalf("missing setup: %s", b)
	}
	if setup["model"] != "models/gemini-2.0-flash-exp" {
		t.Fatalf("unexpected model: %v", setup["model"])
	}
	tools, _ := setup["tools"].([]any)
	if len(tools) != 1 {
		t.Fatalf("expected one tool bundle, got %v", setup["tools"])
	}
	decls, _ := tools[0].(map[string]any)["functionDeclarations"].([]any)
	if len(decls) != 1 {
		t.Fatalf("expected disabled tool to be excluded, got %v", decls)
	}
	if name := decls[0].(map[string]any)["name"]; name != "render_chart" {
		t.Fatalf("unexpected declaration name: %v", name)
	}
	gen, _ := setup["generationConfig"].(map[string]any)
	if gen == nil {
		t.Fatalf("missing generationConfig: %s", b)
	}
	mods, _ := gen["responseModalities"].([]any)
	if len(mods) != 1 || mods[0] != "AUDIO" {
		t.Fatalf("unexpected modalities: %v", gen["responseModalities"])
	}
}

func TestToolResponseMessageJSON(t *testing.T) {
	resps := []tool.FunctionResponse{{
		ID:       "c1",
		Name:     "get_voucher_status",
		Response: tool.ResponseBody{Result: `{"status":"active"}`},
	}}

	b, err := json.Marshal(newToolResponseMessage(resps))
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	want := `{"toolResponse":{"functionResponses":[{"id":"c1","name":"get_voucher_status","response":{"result":"{\"status\":\"active\"}"}}]}}`
	if string(b) != want {
		t.Fatalf("unexpected wire payload:\n got %s\nwant %s", b, want)
	}
}

func TestAudioMessageRoundTrip(t *testing.T) {
	pcm := []byte{9, 8, 7}
	b, err := json.Marshal(newAudioMessage(pcm))
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	var msg clientMessage
	if err := json.Unmarshal(b, &msg); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if msg.RealtimeInput == nil || len(msg.RealtimeInput.MediaChunks) != 1 {
		t.Fatalf("unexpected message: %s", b)
	}
	chunk := msg.RealtimeInput.MediaChunks[0]
	if chunk.MimeType != "audio/pcm" {
		t.Fatalf("unexpected mime type %q", chunk.MimeType)
	}
	decoded, err := base64.StdEncoding.DecodeString(chunk.Data)
	if err != nil || !bytes.Equal(decoded, pcm) {
		t.Fatalf("unexpected chunk data %q", chunk.Data)
	}
}

func TestPCMRateFallback(t *testing.T) {
	if got := pcmRate("audio/pcm"); got != 24000 {
		t.Fatalf("expected default rate, got %d", got)
	}
	if got := pcmRate("audio/pcm;rate=16000"); got != 16000 {
		t.Fatalf("expected parsed rate, got %d", got)
	}
	if got := pcmRate("audio/pcm;rate=bogus"); got != 24000 {
		t.Fatalf("expected fallback on bad rate, got %d", got)
	}
}
