package gcsuploader

import (
	"context"
	"testing"

	"github.com/dvloznov/rental-tax/internal/gcs"
)

func TestParseGCSURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{"gs://tax-inputs/2023/airbnb.xlsx", "tax-inputs", "2023/airbnb.xlsx", false},
		{"gs://bucket/file.xlsx", "bucket", "file.xlsx", false},
		{"gs://bucket", "", "", true},
		{"gs://bucket/", "", "", true},
		{"gs:///file.xlsx", "", "", true},
		{"/tmp/airbnb.xlsx", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseGCSURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseGCSURI(%q) error = %v, wantErr %v", tt.uri, err, tt.wantErr)
			}
			if bucket != tt.wantBucket || object != tt.wantObject {
				t.Errorf("ParseGCSURI(%q) = (%q, %q), want (%q, %q)", tt.uri, bucket, object, tt.wantBucket, tt.wantObject)
			}
		})
	}
}

func TestIsGCSURI(t *testing.T) {
	if !IsGCSURI("gs://b/o") {
		t.Error("expected gs:// URI to be recognised")
	}
	if IsGCSURI("reports/Final_Taxes.xlsx") {
		t.Error("expected local path to be rejected")
	}
}

func TestExtractFilenameFromGCSURI(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"gs://bucket/folder/file.xlsx", "file.xlsx"},
		{"gs://bucket/file.xlsx", "file.xlsx"},
		{"gs://bucket", "bucket"},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			if got := ExtractFilenameFromGCSURI(tt.uri); got != tt.want {
				t.Errorf("ExtractFilenameFromGCSURI(%q) = %q, want %q", tt.uri, got, tt.want)
			}
		})
	}
}

func TestInvalidURIFailsBeforeClient(t *testing.T) {
	ctx := context.Background()
	if _, err := FetchFromGCS(ctx, "not-a-uri"); err == nil {
		t.Error("FetchFromGCS: expected error for invalid URI")
	}
	if err := UploadBytes(ctx, "gs://bucket-only", nil, ""); err == nil {
		t.Error("UploadBytes: expected error for URI without object")
	}
}

var _ gcs.StorageService = (*GCSStorageService)(nil)
