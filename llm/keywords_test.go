package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsComplexKeyword(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"계약 관련 소송 문의드립니다", true},
		{"법률 상담이 필요합니다", true},
		{"상담원 연결해 주세요", true},
		{"urgent: contract question", true},
		{"нужен юрист, это срочно", true},
		{"안녕하세요", false},
		{"배송 언제 오나요", false},
		{"", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ContainsComplexKeyword(c.text), "текст: %q", c.text)
	}
}

func TestContainsSimpleKeyword(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"안녕하세요!", true},
		{"영업시간 문의합니다", true},
		{"가격이 궁금해요", true},
		{"Hello, anyone there?", true},
		{"привет", true},
		{"주문 취소해 주세요", false},
		{"", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ContainsSimpleKeyword(c.text), "текст: %q", c.text)
	}
}

func TestKeywordMatchIsCaseInsensitive(t *testing.T) {
	assert.True(t, ContainsComplexKeyword("URGENT помощь"))
	assert.True(t, ContainsSimpleKeyword("HELLO"))
}
