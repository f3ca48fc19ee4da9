package lunar

// Info is the symbolic reading attached to a phase.
type Info struct {
	Name     string
	Emoji    string
	Blessing string
	Tip      string
}

var phaseInfo = map[Phase]Info{
	NewMoon: {
		Name:     "新月",
		Emoji:    "🌑",
		Blessing: "在黑暗中播种，万物皆有可能。",
		Tip:      "适合开启新计划、设定意图，避免过度消耗。",
	},
	WaxingCrescent: {
		Name:     "眉月",
		Emoji:    "🌒",
		Blessing: "微光初现，希望正在萌芽。",
		Tip:      "收集信息，为你的计划注入第一波行动力。",
	},
	FirstQuarter: {
		Name:     "上弦月",
		Emoji:    "🌓",
		Blessing: "在张力中寻找平衡与突破。",
		Tip:      "可能会遇到挑战，这是宇宙在测试你的决心。",
	},
	WaxingGibbous: {
		Name:     "盈凸月",
		Emoji:    "🌔",
		Blessing: "能量充盈，接近圆满。",
		Tip:      "微调你的方向，在此刻全力以赴。",
	},
	FullMoon: {
		Name:     "满月",
		Emoji:    "🌕",
		Blessing: "光芒万丈，看见真实的自我。",
		Tip:      "情绪可能高涨，适合进行满月释放仪式，感恩收获。",
	},
	WaningGibbous: {
		Name:     "亏凸月",
		Emoji:    "🌖",
		Blessing: "分享智慧，回馈世界。",
		Tip:      "开始整理与回顾，将学到的经验分享给他人。",
	},
	LastQuarter: {
		Name:     "下弦月",
		Emoji:    "🌗",
		Blessing: "释放不再服务于你的事物。",
		Tip:      "断舍离的最佳时机，放下包袱，为下一次循环做准备。",
	},
	WaningCrescent: {
		Name:     "残月",
		Emoji:    "🌘",
		Blessing: "在静谧中休养生息，回归虚空。",
		Tip:      "深度休息，进行冥想，清理身心空间。",
	},
}

// InfoFor returns the reading of p. Unknown phases fall back to the raw name.
func InfoFor(p Phase) Info {
	if info, ok := phaseInfo[p]; ok {
		return info
	}
	return Info{Name: string(p), Emoji: "🌙"}
}

// Bright reports whether the phase is at or near full illumination.
func (p Phase) Bright() bool {
	return p == FullMoon || p == WaxingGibbous || p == WaningGibbous
}
