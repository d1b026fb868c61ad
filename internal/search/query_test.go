package search

import (
	"reflect"
	"testing"
)

func TestPreprocess(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"한국전쟁", []string{"한국전쟁"}},
		{"한국 전쟁", []string{"한국전쟁"}},
		{"전쟁, 평화", []string{"전쟁", "평화"}},
		{"눈 (snow)@ko", []string{"눈"}},
		{"전쟁, 전쟁", []string{"전쟁"}},
		{"▼a건강관리▼0KSH1▲; ▼a러닝▼0KSH2▲", []string{"건강관리", "러닝"}},
		{"Korean Wars", []string{"Korean War"}},
		{"cats, dogs", []string{"cat", "dog"}},
		{"  ,  ", nil},
		{"", nil},
	}
	for _, c := range cases {
		if got := Preprocess(c.in); !reflect.DeepEqual(got, c.want) {
			t.Errorf("Preprocess(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestBuildMatchExpr(t *testing.T) {
	cases := []struct {
		terms []string
		want  string
	}{
		{[]string{"한국 전쟁"}, `"한국전쟁" OR "한국전쟁"*`},
		{[]string{"전쟁", "war"}, `"전쟁" OR "전쟁"* OR "war" OR "war"*`},
		{[]string{`say "hi"`}, `"sayhi" OR "sayhi"*`},
		{[]string{"6.25 전쟁"}, `"625전쟁" OR "625전쟁"*`},
		{[]string{"?!"}, ""},
		{nil, ""},
	}
	for _, c := range cases {
		if got := BuildMatchExpr(c.terms); got != c.want {
			t.Errorf("BuildMatchExpr(%v) = %q, want %q", c.terms, got, c.want)
		}
	}
}
