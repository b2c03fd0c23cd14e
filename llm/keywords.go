package llm

import "strings"

// simpleKeywords — признаки простого вопроса (приветствие, FAQ),
// на который автоответчик может ответить сам.
var simpleKeywords = []string{
	"안녕", "문의", "궁금", "질문", "알려", "뭐", "어떻게",
	"hello", "hi", "привет",
}

// complexKeywords — признаки сложного обращения: договор, юридические
// вопросы, срочность, явная просьба связать с оператором.
// Их наличие всегда означает передачу живому оператору.
var complexKeywords = []string{
	"계약", "법률", "소송", "긴급", "상담원", "직접",
	"contract", "legal", "urgent", "lawsuit", "human",
	"договор", "юрист", "срочно", "оператор",
}

// ContainsComplexKeyword сообщает, требует ли текст живого оператора.
func ContainsComplexKeyword(text string) bool {
	return containsAny(text, complexKeywords)
}

// ContainsSimpleKeyword сообщает, похож ли текст на простой вопрос.
func ContainsSimpleKeyword(text string) bool {
	return containsAny(text, simpleKeywords)
}

func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
