package team

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"quiz-tournament/internal/service"
)

// answerText accepts a JSON string or number. Numbers keep their literal form.
type answerText struct {
	value string
	set   bool
}

func (t *answerText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &t.value); err != nil {
			return err
		}
		t.set = true
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("answer must be a string or a number")
	}
	t.value, t.set = n.String(), true
	return nil
}

type submitRequest struct {
	Answer  *answerText     `json:"answer"`
	Answers json.RawMessage `json:"answers"`
}

type exampleItem struct {
	ExampleID json.RawMessage `json:"example_id"`
	Answer    answerText      `json:"answer"`
}

var errAnswersNotList = errors.New("answers must be a list")

func (r submitRequest) submission() (service.Submission, error) {
	var sub service.Submission
	if r.Answer != nil && r.Answer.set {
		v := r.Answer.value
		sub.Answer = &v
	}

	raw := bytes.TrimSpace(r.Answers)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return sub, nil
	}
	if raw[0] != '[' {
		return sub, errAnswersNotList
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return sub, err
	}
	sub.Batch = true
	sub.Answers = make([]service.ExampleSubmission, 0, len(items))
	for _, item := range items {
		sub.Answers = append(sub.Answers, decodeItem(item))
	}
	return sub, nil
}

// decodeItem never fails: a malformed item is reported on its own.
func decodeItem(raw json.RawMessage) service.ExampleSubmission {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return service.ExampleSubmission{Problem: "item must be an object"}
	}
	var it exampleItem
	if err := json.Unmarshal(raw, &it); err != nil {
		var partial struct {
			ExampleID json.RawMessage `json:"example_id"`
		}
		json.Unmarshal(raw, &partial)
		return service.ExampleSubmission{ExampleID: rawID(partial.ExampleID), Problem: "answer must be a string or a number"}
	}
	out := service.ExampleSubmission{ExampleID: rawID(it.ExampleID), Answer: it.Answer.value}
	if !it.Answer.set {
		out.Problem = "answer required"
	}
	return out
}

// rawID turns a JSON id (string, number or null) into its text form.
func rawID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return string(raw)
}
