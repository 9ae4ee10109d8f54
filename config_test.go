// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package compose_test

import (
	"strings"
	"testing"

	"code.hybscloud.com/compose"
)

func TestParseConfig(t *testing.T) {
	c, err := compose.ParseConfig([]byte("name: counter\npolicy: serial\nchannel_capacity: 128\n"))
	if err != nil {
		t.Fatal(err)
	}
	want := compose.Config{Name: "counter", Policy: "serial", ChannelCapacity: 128}
	if c != want {
		t.Fatalf("got %+v, want %+v", c, want)
	}
}

func TestParseConfigInvalid(t *testing.T) {
	for _, doc := range []string{
		"policy: fifo\n",
		"channel_capacity: 1\n",
		"channel_capacity: 1000000\n",
		"name: [1, 2]\n",
	} {
		if _, err := compose.ParseConfig([]byte(doc)); err == nil {
			t.Fatalf("ParseConfig(%q): got nil error", doc)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	c, err := compose.LoadConfig(strings.NewReader(""))
	if err != nil {
		t.Fatalf("empty document: %v", err)
	}
	if c != (compose.Config{}) {
		t.Fatalf("empty document: got %+v, want zero Config", c)
	}

	if _, err := compose.LoadConfig(strings.NewReader("policy: serial\nretries: 3\n")); err == nil {
		t.Fatal("unknown key: got nil error")
	}
}

func TestWithConfig(t *testing.T) {
	skipRace(t)

	s := compose.New(0, counterReducer(), compose.WithConfig(compose.Config{Policy: "serial", ChannelCapacity: 3}))
	if s.Policy() != compose.PolicySerial {
		t.Fatalf("Policy: got %v, want serial", s.Policy())
	}
	if err := s.Dispatch(t.Context(), increment(1)); err != nil {
		t.Fatal(err)
	}
}

func TestParsePolicy(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want compose.Policy
	}{
		{"", compose.PolicyConcurrent},
		{"concurrent", compose.PolicyConcurrent},
		{"serial", compose.PolicySerial},
	} {
		got, err := compose.ParsePolicy(tc.in)
		if err != nil || got != tc.want {
			t.Fatalf("ParsePolicy(%q): got (%v, %v), want (%v, nil)", tc.in, got, err, tc.want)
		}
		if tc.in != "" && got.String() != tc.in {
			t.Fatalf("String: got %q, want %q", got.String(), tc.in)
		}
	}
	if _, err := compose.ParsePolicy("fifo"); err == nil {
		t.Fatal("ParsePolicy(fifo): got nil error")
	}
	if got := compose.Policy(9).String(); got != "Policy(9)" {
		t.Fatalf("got %q, want %q", got, "Policy(9)")
	}
}
