// Package complexity scores how emotionally dense and sustained a reflection
// dialogue was. The score only annotates records for trend charts.
package complexity

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"echo-moon/internal/journal"
)

const (
	turnWeight    = 0.4
	densityWeight = 0.6
	scale         = 8
	maxScore      = 100
)

// EmotiveWords is the bilingual affect vocabulary counted by Score.
var EmotiveWords = []string{
	"feel", "happy", "sad", "anxious", "calm", "love", "hate", "hope", "lost", "pain", "grateful",
	"感觉", "觉得", "开心", "难过", "焦虑", "平静", "爱", "恨", "怕", "希望", "温柔", "痛苦", "迷茫", "感恩", "治愈", "释放", "沉重",
}

var emotivePattern = compile(EmotiveWords)

func compile(words []string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)(` + strings.Join(quoted, "|") + `)`)
}

// Score returns a value in [0,100]; an empty dialogue scores 0.
func Score(turns []journal.Message) int {
	if len(turns) == 0 {
		return 0
	}

	texts := make([]string, len(turns))
	for i, m := range turns {
		texts[i] = m.Text
	}
	combined := strings.Join(texts, " ")

	length := max(1, utf8.RuneCountInString(combined))
	emotional := len(emotivePattern.FindAllStringIndex(combined, -1))
	density := float64(emotional) / float64(length) * 100

	return fromComponents(len(turns), density)
}

// EmotiveCount reports how many affect words text contains.
func EmotiveCount(text string) int {
	return len(emotivePattern.FindAllStringIndex(text, -1))
}

func fromComponents(turns int, density float64) int {
	raw := float64(turns)*turnWeight + density*densityWeight
	return min(maxScore, int(math.Floor(raw*scale)))
}
