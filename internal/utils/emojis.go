package utils

import "strings"

// Вспомогательные функции для эмодзи чувств и сценариев
func GetSenseEmoji(sense string) string {
	switch sense {
	case "visual":
		return "👁"
	case "audio":
		return "👂"
	case "touch":
		return "✋"
	case "smell":
		return "👃"
	case "taste":
		return "👅"
	default:
		return "✨"
	}
}

func GetScenarioEmoji(scenarioID string) string {
	switch scenarioID {
	case "moon":
		return "🌕"
	case "star":
		return "⭐"
	case "world":
		return "🌍"
	case "hermit":
		return "🏮"
	default:
		return "🧘"
	}
}

// EnergyBar рисует шкалу энергии из десяти делений
func EnergyBar(score int) string {
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	filled := score / 10
	return strings.Repeat("●", filled) + strings.Repeat("○", 10-filled)
}
