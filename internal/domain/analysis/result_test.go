package analysis

import "testing"

func TestDecodeOutcome(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantShape Shape
		wantText  string
		wantModel string
		wantErr   bool
	}{
		{
			name:      "envelope shape",
			raw:       `{"success": true, "data": {"message": "Healthy leaf"}}`,
			wantShape: ShapeEnvelope,
			wantText:  "Healthy leaf",
			wantModel: "",
		},
		{
			name:      "envelope ignores model in data",
			raw:       `{"success": true, "data": {"message": "Healthy leaf", "model": "sonar"}}`,
			wantShape: ShapeEnvelope,
			wantText:  "Healthy leaf",
			wantModel: "",
		},
		{
			name:      "chat completion with string content",
			raw:       `{"model": "sonar", "choices": [{"message": {"content": "Likely blight"}}]}`,
			wantShape: ShapeChatCompletion,
			wantText:  "Likely blight",
			wantModel: "sonar",
		},
		{
			name:      "chat completion with text part",
			raw:       `{"model": "sonar", "choices": [{"message": {"content": [{"type":"text", "text":"Rust disease"}]}}]}`,
			wantShape: ShapeChatCompletion,
			wantText:  "Rust disease",
			wantModel: "sonar",
		},
		{
			name:      "chat completion with output_text part",
			raw:       `{"model": "sonar-pro", "choices": [{"message": {"content": [{"type":"thinking","text":"hmm"},{"type":"output_text","text":"Powdery mildew"}]}}]}`,
			wantShape: ShapeChatCompletion,
			wantText:  "Powdery mildew",
			wantModel: "sonar-pro",
		},
		{
			name:      "chat completion with nested text object",
			raw:       `{"model": "sonar", "choices": [{"message": {"content": {"text": "Leaf spot"}}}]}`,
			wantShape: ShapeChatCompletion,
			wantText:  "Leaf spot",
			wantModel: "sonar",
		},
		{
			name:    "empty object",
			raw:     `{}`,
			wantErr: true,
		},
		{
			name:    "envelope without success flag falls through and fails",
			raw:     `{"success": false, "data": {"message": "nope"}}`,
			wantErr: true,
		},
		{
			name:    "choices without usable content",
			raw:     `{"model": "sonar", "choices": [{"message": {"content": [{"type":"image","url":"x"}]}}]}`,
			wantErr: true,
		},
		{
			name:    "not json",
			raw:     `plain text`,
			wantErr: true,
		},
		{
			name:    "empty body",
			raw:     ``,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := DecodeOutcome([]byte(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got outcome %+v", outcome)
				}
				if outcome.Shape != ShapeUnrecognized {
					t.Errorf("failed decode should be unrecognized, got %s", outcome.Shape)
				}
				if outcome.Text != "" {
					t.Errorf("failed decode should carry empty text, got %q", outcome.Text)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeOutcome: %v", err)
			}
			if outcome.Shape != tt.wantShape {
				t.Errorf("shape = %s, want %s", outcome.Shape, tt.wantShape)
			}
			if outcome.Text != tt.wantText {
				t.Errorf("text = %q, want %q", outcome.Text, tt.wantText)
			}
			if outcome.Model != tt.wantModel {
				t.Errorf("model = %q, want %q", outcome.Model, tt.wantModel)
			}
		})
	}
}

func TestShapeString(t *testing.T) {
	if ShapeEnvelope.String() != "envelope" ||
		ShapeChatCompletion.String() != "chat_completion" ||
		ShapeUnrecognized.String() != "unrecognized" {
		t.Error("unexpected shape names")
	}
}
