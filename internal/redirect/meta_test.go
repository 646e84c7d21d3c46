package redirect

import "testing"

func TestMetaRefreshTarget(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		want   string
		wantOK bool
	}{
		{
			name:   "relative target",
			body:   `<html><head><meta http-equiv="refresh" content="0; url=/next"></head></html>`,
			want:   "/next",
			wantOK: true,
		},
		{
			name:   "upper case marker with quotes",
			body:   `<meta http-equiv="refresh" content="5;URL='http://x.com/landing'">`,
			want:   "http://x.com/landing",
			wantOK: true,
		},
		{
			name:   "double quotes inside content",
			body:   `<meta http-equiv="refresh" content='0;url="/a"'>`,
			want:   "/a",
			wantOK: true,
		},
		{
			name:   "empty url",
			body:   `<meta http-equiv="refresh" content="5;url=">`,
			want:   "",
			wantOK: true,
		},
		{
			name:   "delay only",
			body:   `<meta http-equiv="refresh" content="5">`,
			want:   "",
			wantOK: true,
		},
		{
			name:   "first tag wins",
			body:   `<meta http-equiv="refresh" content="0;url=/one"><meta http-equiv="refresh" content="0;url=/two">`,
			want:   "/one",
			wantOK: true,
		},
		{
			name:   "empty content",
			body:   `<meta http-equiv="refresh" content="">`,
			wantOK: false,
		},
		{
			name:   "no content attribute",
			body:   `<meta http-equiv="refresh">`,
			wantOK: false,
		},
		{
			name:   "no meta refresh",
			body:   `<html><head><meta charset="utf-8"><title>x</title></head></html>`,
			wantOK: false,
		},
		{
			name:   "plain text",
			body:   "just some text",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MetaRefreshTarget(tt.body)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractMetaRefresh_NilDocument(t *testing.T) {
	if _, ok := ExtractMetaRefresh(nil); ok {
		t.Error("expected no target for nil document")
	}
}
