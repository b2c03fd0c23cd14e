package handlers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func kakaoSkillPayload(t *testing.T) map[string]interface{} {
	t.Helper()
	raw := `{
		"userRequest": {
			"utterance": "배송 문의합니다",
			"user": {
				"id": "kakao-user-1",
				"properties": {
					"nickname": "홍길동",
					"profileImageUrl": "https://k.kakaocdn.net/p.jpg"
				}
			}
		}
	}`
	var payload map[string]interface{}
	assert.NoError(t, json.Unmarshal([]byte(raw), &payload))
	return payload
}

func TestDigString_SkillServerFormat(t *testing.T) {
	payload := kakaoSkillPayload(t)

	assert.Equal(t, "kakao-user-1", digString(payload, "userRequest", "user", "id"))
	assert.Equal(t, "배송 문의합니다", digString(payload, "userRequest", "utterance"))
	assert.Equal(t, "홍길동", digString(payload, "userRequest", "user", "properties", "nickname"))
}

func TestDigString_MissingPath(t *testing.T) {
	payload := kakaoSkillPayload(t)

	assert.Equal(t, "", digString(payload, "нет", "такого", "пути"))
	assert.Equal(t, "", digString(payload, "userRequest", "user", "id", "deeper"))
}

func TestDigString_NonStringLeaf(t *testing.T) {
	payload := map[string]interface{}{"count": float64(42)}

	assert.Equal(t, "", digString(payload, "count"))
}

func TestFirstString(t *testing.T) {
	assert.Equal(t, "a", firstString("", "a", "b"))
	assert.Equal(t, "", firstString("", "", ""))
	// запасное значение в конце цепочки
	assert.Equal(t, "Kakao User", firstString("", "", "Kakao User"))
}

func TestKakaoEventType(t *testing.T) {
	leave := map[string]interface{}{"type": "leave"}
	assert.Equal(t, "leave", kakaoEventType(leave))

	nested := map[string]interface{}{
		"event": map[string]interface{}{"type": "end_chat"},
	}
	assert.Equal(t, "end_chat", kakaoEventType(nested))

	// обычное сообщение скилл-сервера события не содержит
	assert.Equal(t, "", kakaoEventType(kakaoSkillPayload(t)))
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 1, totalPages(0, 20))
	assert.Equal(t, 1, totalPages(20, 20))
	assert.Equal(t, 2, totalPages(21, 20))
	assert.Equal(t, 5, totalPages(100, 20))
}
