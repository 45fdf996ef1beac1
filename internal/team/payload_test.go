package team

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"quiz-tournament/internal/service"
)

func ptr(s string) *string { return &s }

func TestSubmitRequestDecoding(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    service.Submission
		wantErr bool
	}{
		{name: "string", body: `{"answer":" 22 "}`, want: service.Submission{Answer: ptr(" 22 ")}},
		{name: "number keeps literal", body: `{"answer":2.50}`, want: service.Submission{Answer: ptr("2.50")}},
		{name: "null answer", body: `{"answer":null}`, want: service.Submission{}},
		{name: "bool answer", body: `{"answer":true}`, wantErr: true},
		{
			name: "batch",
			body: `{"answers":[{"example_id":"abc","answer":"4"},{"example_id":7,"answer":6},{"answer":"x"}]}`,
			want: service.Submission{Batch: true, Answers: []service.ExampleSubmission{
				{ExampleID: "abc", Answer: "4"},
				{ExampleID: "7", Answer: "6"},
				{ExampleID: "", Answer: "x"},
			}},
		},
		{
			name: "batch item problems",
			body: `{"answers":[{"example_id":"abc"},1,{"example_id":"def","answer":null},{"example_id":"ghi","answer":[4]},{"example_id":"jkl","answer":"4"}]}`,
			want: service.Submission{Batch: true, Answers: []service.ExampleSubmission{
				{ExampleID: "abc", Problem: "answer required"},
				{Problem: "item must be an object"},
				{ExampleID: "def", Problem: "answer required"},
				{ExampleID: "ghi", Problem: "answer must be a string or a number"},
				{ExampleID: "jkl", Answer: "4"},
			}},
		},
		{name: "empty batch", body: `{"answers":[]}`, want: service.Submission{Batch: true, Answers: []service.ExampleSubmission{}}},
		{name: "answers object", body: `{"answers":{"1":"4"}}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req submitRequest
			err := json.Unmarshal([]byte(tt.body), &req)
			var got service.Submission
			if err == nil {
				got, err = req.submission()
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("submission mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
