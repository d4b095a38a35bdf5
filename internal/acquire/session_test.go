package acquire

import (
	"reflect"
	"testing"
)

func TestSession_DuplicatesNeverChangeCodes(t *testing.T) {
	scans := [][]string{
		{"A", "A"},
		{"A", "B", "A"},
		{"B", "A", "B", "A"},
		{"", "A", ""},
	}
	for _, seq := range scans {
		s := NewSession("s")
		var want []string
		for _, code := range seq {
			before := s.Codes()
			added := s.Add(code)
			if !added && !reflect.DeepEqual(before, s.Codes()) {
				t.Errorf("%v: rejected %q but codes changed %v -> %v", seq, code, before, s.Codes())
			}
			if added {
				want = append(want, code)
			}
		}
		if !reflect.DeepEqual(s.Codes(), want) {
			t.Errorf("%v: codes = %v, want %v", seq, s.Codes(), want)
		}
	}
}

func TestSession_CombinedKeepsScanOrder(t *testing.T) {
	s := NewSession("s")
	s.Add("9Z")
	if s.Combined() != "9Z" {
		t.Errorf("one code combined = %q", s.Combined())
	}
	s.Add("1A")
	if s.Combined() != "9Z1A" {
		t.Errorf("two codes combined = %q, want 9Z1A", s.Combined())
	}
}

func TestSession_CodesIsACopy(t *testing.T) {
	s := NewSession("s")
	s.Add("A")
	codes := s.Codes()
	codes[0] = "X"
	if s.Codes()[0] != "A" {
		t.Error("mutating Codes() result changed the session")
	}
}

func TestSession_Reset(t *testing.T) {
	s := NewSession("s")
	s.Mode = "camera"
	s.Add("A")
	s.Reset()
	if s.Len() != 0 || s.Mode != "" {
		t.Errorf("after reset len=%d mode=%q", s.Len(), s.Mode)
	}
}
