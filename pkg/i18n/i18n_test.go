package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		locale string
		want   language.Tag
	}{
		{"", language.Korean},
		{"ko", language.Korean},
		{"ko-KR", language.Korean},
		{"en", language.English},
		{"en-US,en;q=0.9", language.English},
		{"fr", language.Korean},
		{"not a locale!!", language.Korean},
	}
	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.locale))
		})
	}
}

func TestTranslate(t *testing.T) {
	tr := New("en")
	assert.Equal(t, "Failed to generate a response: timeout", tr.T("chat.response_failed", map[string]string{"reason": "timeout"}))
	assert.Equal(t, "Generating image...", tr.T("image.generating", nil))
	assert.Equal(t, "unknown.key", tr.T("unknown.key", nil))

	tr.SetLocale("ko")
	assert.Equal(t, "새로운 기억이 추가되었습니다: 커피를 좋아함", tr.T("toast.memory_added", map[string]string{"memory": "커피를 좋아함"}))
}
