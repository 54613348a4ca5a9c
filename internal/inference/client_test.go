package inference

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExtractText(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "success returns extracted text",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if err := r.ParseMultipartForm(1 << 20); err != nil {
					t.Errorf("expected multipart request: %v", err)
				}
				if _, _, err := r.FormFile("image"); err != nil {
					t.Errorf("missing image part: %v", err)
				}
				w.Write([]byte(`{"text":"MILK 2L $3.49"}`))
			},
			want: "MILK 2L $3.49",
		},
		{
			name: "server error yields status in text",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			want: "OCR Failed: 500",
		},
		{
			name: "empty text yields no-text marker",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"text":""}`))
			},
			want: "No text found",
		},
		{
			name: "malformed body yields no-text marker",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`not json`))
			},
			want: "No text found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClient(srv.URL, slog.Default())
			got := c.ExtractText(context.Background(), strings.NewReader("jpegbytes"), "capture.jpg")
			if got != tt.want {
				t.Errorf("ExtractText = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractTextTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := NewClient(srv.URL, slog.Default())
	got := c.ExtractText(context.Background(), strings.NewReader("jpegbytes"), "capture.jpg")
	if !strings.HasPrefix(got, "Error: ") {
		t.Errorf("got %q, want an Error: prefix", got)
	}
}

func TestGenerateImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate_image" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"image_url":"https://cdn.example.com/gen/1.jpg"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, slog.Default())
	url, err := c.GenerateImage(context.Background(), "a cat on a skateboard")
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if url != "https://cdn.example.com/gen/1.jpg" {
		t.Errorf("url = %q", url)
	}
}

func TestGenerateImageServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, slog.Default())
	_, err := c.GenerateImage(context.Background(), "a cat")
	if err == nil {
		t.Fatal("want error")
	}
	if err.Error() != "Server responded with code 503" {
		t.Errorf("error = %q", err.Error())
	}
}
