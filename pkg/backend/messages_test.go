package backend

import "testing"

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantKind frameKind
		wantBody string
	}{
		{
			name:     "context frame",
			raw:      `{"t":"cx","message_id":"m-1"}`,
			wantKind: frameContext,
		},
		{
			name:     "partial frame",
			raw:      `{"t":"cp","body":"Hel"}`,
			wantKind: framePartial,
			wantBody: "Hel",
		},
		{
			name:     "accumulated frame",
			raw:      `{"t":"cr","body":"Hello"}`,
			wantKind: frameAccumulated,
			wantBody: "Hello",
		},
		{
			name:     "final frame with metadata object body",
			raw:      `{"t":"ca","body":{"usage_stats":{"tokens":12}}}`,
			wantKind: frameFinal,
		},
		{
			name:     "done frame",
			raw:      `{"t":"cd"}`,
			wantKind: frameDone,
		},
		{
			name:     "error frame with error field",
			raw:      `{"t":"ce","error":"quota exceeded"}`,
			wantKind: frameError,
			wantBody: "quota exceeded",
		},
		{
			name:     "error frame falls back to body",
			raw:      `{"t":"ce","body":"backend unavailable"}`,
			wantKind: frameError,
			wantBody: "backend unavailable",
		},
		{
			name:     "error frame with no text",
			raw:      `{"t":"ce"}`,
			wantKind: frameError,
			wantBody: "unknown error",
		},
		{
			name:     "unknown tag ignored",
			raw:      `{"t":"zz","body":"whatever"}`,
			wantKind: frameIgnore,
		},
		{
			name:     "missing tag ignored",
			raw:      `{"body":"whatever"}`,
			wantKind: frameIgnore,
		},
		{
			name:     "malformed message ignored",
			raw:      `not json at all`,
			wantKind: frameIgnore,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := decodeFrame([]byte(tt.raw))
			if f.kind != tt.wantKind {
				t.Fatalf("kind = %v, want %v", f.kind, tt.wantKind)
			}
			if f.body != tt.wantBody {
				t.Errorf("body = %q, want %q", f.body, tt.wantBody)
			}
		})
	}
}
