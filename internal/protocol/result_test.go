package protocol

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestResultRoundTrip(t *testing.T) {
	orig := &Result{
		Status: StatusSuccess,
		Output: "2\n",
		Visualizations: []Visualization{
			{Type: "image/png", Data: "aGVsbG8="},
		},
		ExecutionTime: 0.42,
		Timestamp:     time.Date(2025, 6, 1, 12, 0, 1, 0, time.UTC),
	}

	data, err := EncodeResult(orig)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeResult(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(orig, got) {
		t.Errorf("round trip mismatch:\n  orig: %+v\n  got:  %+v", orig, got)
	}
}

func TestResultValidate(t *testing.T) {
	for _, status := range []string{StatusSuccess, StatusError, StatusPending} {
		r := &Result{Status: status, Timestamp: time.Now()}
		if err := r.Validate(); err != nil {
			t.Errorf("Validate(%s) = %v", status, err)
		}
	}

	r := &Result{}
	if err := r.Validate(); !errors.Is(err, ErrMalformedMessage) {
		t.Errorf("empty status: err = %v, want ErrMalformedMessage", err)
	}
	r.Status = "maybe"
	if err := r.Validate(); !errors.Is(err, ErrMalformedMessage) {
		t.Errorf("unknown status: err = %v, want ErrMalformedMessage", err)
	}
}

func TestDecodeResult_MissingStatus(t *testing.T) {
	if _, err := DecodeResult([]byte(`{"output":"hi"}`)); !errors.Is(err, ErrMalformedMessage) {
		t.Fatalf("err = %v, want ErrMalformedMessage", err)
	}
}

func TestRemoteError_Message(t *testing.T) {
	err := &RemoteError{CommandID: "c1", Message: "ValueError: x"}
	if got := err.Error(); got != "remote execution of c1 failed: ValueError: x" {
		t.Errorf("Error() = %q", got)
	}
}
