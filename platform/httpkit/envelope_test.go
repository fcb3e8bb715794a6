package httpkit

import (
	"reflect"
	"testing"
)

type item struct {
	ID string `json:"id"`
}

func TestDecodeList(t *testing.T) {
	want := []item{{ID: "a"}, {ID: "b"}}

	cases := []struct {
		name string
		body string
	}{
		{"flat data array", `{"data": [{"id":"a"},{"id":"b"}]}`},
		{"nested data object", `{"data": {"data": [{"id":"a"},{"id":"b"}], "total": 2}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got []item
			if err := DecodeList([]byte(tc.body), &got); err != nil {
				t.Fatalf("DecodeList: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("DecodeList = %v, want %v", got, want)
			}
		})
	}
}

func TestDecodeListMissingData(t *testing.T) {
	var got []item
	if err := DecodeList([]byte(`{"total": 2}`), &got); err == nil {
		t.Error("expected error for body without data field")
	}
	if err := DecodeList([]byte(`{"data": {"total": 2}}`), &got); err == nil {
		t.Error("expected error for nested body without data field")
	}
}
