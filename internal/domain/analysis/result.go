package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
)

// Shape discriminates the recognized analysis response layouts.
type Shape int

const (
	// ShapeUnrecognized marks a response that matched neither layout.
	ShapeUnrecognized Shape = iota
	// ShapeEnvelope is the backend's own `{success, data: {message}}` form.
	ShapeEnvelope
	// ShapeChatCompletion is the OpenAI-compatible completion form.
	ShapeChatCompletion
)

func (s Shape) String() string {
	switch s {
	case ShapeEnvelope:
		return "envelope"
	case ShapeChatCompletion:
		return "chat_completion"
	default:
		return "unrecognized"
	}
}

// Outcome is the normalized analysis result extracted from a raw response.
type Outcome struct {
	Shape Shape
	Text  string
	Model string
}

type envelopeProbe struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type envelopeData struct {
	Message string `json:"message"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type chatCompletionProbe struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// DecodeOutcome normalizes a raw response body into an Outcome. The
// envelope branch wins when `success` is truthy and `data` is present;
// otherwise the body is probed as an OpenAI-compatible chat completion.
// A body matching neither layout yields a ShapeUnrecognized outcome and an
// error; callers preserve the legacy behaviour by mapping that to empty
// display text rather than surfacing it.
func DecodeOutcome(raw []byte) (Outcome, error) {
	if len(raw) == 0 {
		return Outcome{}, fmt.Errorf("empty response body")
	}

	var env envelopeProbe
	if err := sonic.Unmarshal(raw, &env); err == nil && env.Success && rawPresent(env.Data) {
		var data envelopeData
		if err := sonic.Unmarshal(env.Data, &data); err != nil {
			return Outcome{}, fmt.Errorf("decode envelope data: %w", err)
		}
		// Model name is intentionally left empty on this branch.
		return Outcome{
			Shape: ShapeEnvelope,
			Text:  data.Message,
		}, nil
	}

	var completion chatCompletionProbe
	if err := sonic.Unmarshal(raw, &completion); err != nil {
		return Outcome{}, fmt.Errorf("decode chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return Outcome{}, fmt.Errorf("response matches no recognized shape")
	}

	text, err := decodeMessageContent(completion.Choices[0].Message.Content)
	if err != nil {
		return Outcome{}, err
	}

	return Outcome{
		Shape: ShapeChatCompletion,
		Text:  text,
		Model: completion.Model,
	}, nil
}

// decodeMessageContent handles the three content encodings seen in the
// wild: a parts list, a plain string, and a nested `{text}` object.
func decodeMessageContent(content json.RawMessage) (string, error) {
	if !rawPresent(content) {
		return "", fmt.Errorf("message content missing")
	}

	var parts []contentPart
	if err := sonic.Unmarshal(content, &parts); err == nil {
		for _, part := range parts {
			if part.Type == "output_text" || part.Type == "text" {
				return part.Text, nil
			}
		}
		return "", fmt.Errorf("no text part in message content")
	}

	var text string
	if err := sonic.Unmarshal(content, &text); err == nil {
		return text, nil
	}

	var nested struct {
		Text string `json:"text"`
	}
	if err := sonic.Unmarshal(content, &nested); err == nil && nested.Text != "" {
		return nested.Text, nil
	}

	return "", fmt.Errorf("unrecognized message content encoding")
}

func rawPresent(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}
