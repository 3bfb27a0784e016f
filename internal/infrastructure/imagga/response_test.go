package imagga

import (
	"reflect"
	"testing"

	"github.com/kirillkom/photo-tagger/internal/core/domain"
)

func TestParseUploadResponse(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		wantID  string
		wantErr bool
	}{
		{name: "first id wins", body: `{"uploaded":[{"id":"abc123"},{"id":"def456"}]}`, wantID: "abc123"},
		{name: "trailing element without id", body: `{"uploaded":[{"id":"abc123"},{"status":"pending"}]}`, wantID: "abc123"},
		{name: "trailing element with non-string id", body: `{"uploaded":[{"id":"abc123"},{"id":42},"x"]}`, wantID: "abc123"},
		{name: "sibling fields", body: `{"status":"success","uploaded":[{"id":"abc123","filename":"image.jpg"}]}`, wantID: "abc123"},
		{name: "first element without id", body: `{"uploaded":[{"status":"pending"},{"id":"abc123"}]}`, wantErr: true},
		{name: "first element not object", body: `{"uploaded":["abc123"]}`, wantErr: true},
		{name: "empty id", body: `{"uploaded":[{"id":""}]}`, wantErr: true},
		{name: "empty list", body: `{"uploaded":[]}`, wantErr: true},
		{name: "missing key", body: `{"status":"success"}`, wantErr: true},
		{name: "id not string", body: `{"uploaded":[{"id":42}]}`, wantErr: true},
		{name: "id missing", body: `{"uploaded":[{"filename":"image.jpg"}]}`, wantErr: true},
		{name: "uploaded not list", body: `{"uploaded":{"id":"abc123"}}`, wantErr: true},
		{name: "top level list", body: `[{"id":"abc123"}]`, wantErr: true},
		{name: "null", body: `null`, wantErr: true},
		{name: "not json", body: `<html>`, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseUploadResponse([]byte(tc.body))
			if tc.wantErr {
				if !domain.IsKind(err, domain.ErrResponseShape) {
					t.Fatalf("expected response shape error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseUploadResponse() error = %v", err)
			}
			if got.ContentID != tc.wantID {
				t.Fatalf("expected %q, got %q", tc.wantID, got.ContentID)
			}
		})
	}
}

func TestParseTagsResponse(t *testing.T) {
	cases := []struct {
		name        string
		body        string
		wantTags    []string
		wantSkipped int
		wantErr     bool
	}{
		{
			name:     "ordered tags",
			body:     `{"results":[{"tags":[{"tag":"cat"},{"tag":"pet"}]}]}`,
			wantTags: []string{"cat", "pet"},
		},
		{
			name:        "entry without tag is skipped",
			body:        `{"results":[{"tags":[{"tag":"cat"},{"confidence":0.9}]}]}`,
			wantTags:    []string{"cat"},
			wantSkipped: 1,
		},
		{
			name:        "non-object and non-string entries are skipped",
			body:        `{"results":[{"tags":["dog",{"tag":7},null,{"tag":"pet"}]}]}`,
			wantTags:    []string{"pet"},
			wantSkipped: 3,
		},
		{
			name:     "only first result is used",
			body:     `{"results":[{"tags":[{"tag":"a"}]},{"tags":[{"tag":"b"}]}]}`,
			wantTags: []string{"a"},
		},
		{
			name:     "trailing result without tags",
			body:     `{"results":[{"tags":[{"tag":"cat"},{"tag":"pet"}]},{"image":"x"}]}`,
			wantTags: []string{"cat", "pet"},
		},
		{
			name:     "trailing result not object",
			body:     `{"status":"success","results":[{"tags":[{"tag":"cat"}]},42]}`,
			wantTags: []string{"cat"},
		},
		{
			name:        "array entry inside tags is skipped",
			body:        `{"results":[{"tags":[["cat"],{"tag":"pet","confidence":"high"}]}]}`,
			wantTags:    []string{"pet"},
			wantSkipped: 1,
		},
		{
			name:     "no tags",
			body:     `{"results":[{"tags":[]}]}`,
			wantTags: []string{},
		},
		{name: "empty results", body: `{"results":[]}`, wantErr: true},
		{name: "missing tags", body: `{"results":[{"image":"abc"}]}`, wantErr: true},
		{name: "first result without tags", body: `{"results":[{"image":"abc"},{"tags":[{"tag":"cat"}]}]}`, wantErr: true},
		{name: "tags not list", body: `{"results":[{"tags":"cat"}]}`, wantErr: true},
		{name: "missing results", body: `{}`, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseTagsResponse([]byte(tc.body))
			if tc.wantErr {
				if !domain.IsKind(err, domain.ErrResponseShape) {
					t.Fatalf("expected response shape error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseTagsResponse() error = %v", err)
			}
			if !reflect.DeepEqual(got.Tags, tc.wantTags) {
				t.Fatalf("expected tags %v, got %v", tc.wantTags, got.Tags)
			}
			if got.Skipped != tc.wantSkipped {
				t.Fatalf("expected %d skipped, got %d", tc.wantSkipped, got.Skipped)
			}
		})
	}
}
